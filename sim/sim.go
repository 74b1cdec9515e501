// Package sim is a small state-vector backend for qasm programs.
//
// It executes the primitive instruction set (h, x, s, reset, cx, ccx, ry,
// cphase, measure, barrier) exactly, sampling measurements from a seeded
// generator so that runs are reproducible. Memory grows as 2^n amplitudes;
// programs wider than the configured limit are rejected.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/wippyai/qcircuit/errors"
	"github.com/wippyai/qcircuit/qasm"
)

// DefaultMaxQubits bounds the state vector at 2^24 amplitudes.
const DefaultMaxQubits = 24

// Simulator is a qasm.Backend. It is safe for concurrent use; each Execute
// works on its own state vector.
type Simulator struct {
	rng       *rand.Rand
	maxQubits int
	mu        sync.Mutex
}

var _ qasm.Backend = (*Simulator)(nil)

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed makes measurement sampling deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithMaxQubits overrides DefaultMaxQubits.
func WithMaxQubits(n int) Option {
	return func(s *Simulator) { s.maxQubits = n }
}

// New creates a simulator. Without WithSeed it draws from a random seed.
func New(opts ...Option) *Simulator {
	s := &Simulator{maxQubits: DefaultMaxQubits}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

func (s *Simulator) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Execute runs p once and returns one byte per classical bit.
func (s *Simulator) Execute(ctx context.Context, p *qasm.Program) ([]byte, error) {
	if p.NumQubits > s.maxQubits {
		return nil, errors.New(errors.PhaseExecute, errors.KindUnsupported).
			Module(p.Name).
			Value(p.NumQubits).
			Detail("program needs %d qubits, simulator limit is %d", p.NumQubits, s.maxQubits).
			Build()
	}
	st := newState(p.NumQubits)
	out := make([]byte, p.NumClbits())

	for pc, in := range p.Instructions {
		if pc%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for _, q := range in.Qubits {
			if q < 0 || q >= p.NumQubits {
				return nil, errors.New(errors.PhaseExecute, errors.KindInvalidData).
					Module(p.Name).
					Gate(in.Op).
					Value(q).
					Detail("instruction %d addresses qubit %d of %d", pc, q, p.NumQubits).
					Build()
			}
		}
		if err := arity(in); err != nil {
			return nil, errors.New(errors.PhaseExecute, errors.KindArity).
				Module(p.Name).
				Gate(in.Op).
				Detail("instruction %d: %s", pc, err.Error()).
				Build()
		}

		switch in.Op {
		case qasm.GateH:
			st.h(in.Qubits[0])
		case qasm.GateX:
			st.x(in.Qubits[0])
		case qasm.GateS:
			st.phase(in.Qubits[0], complex(0, 1))
		case qasm.GateRY:
			st.ry(in.Qubits[0], in.Params[0])
		case qasm.GateCX:
			st.cx(in.Qubits[0], in.Qubits[1])
		case qasm.GateCCX:
			st.ccx(in.Qubits[0], in.Qubits[1], in.Qubits[2])
		case qasm.GateCPhase:
			st.cphase(in.Qubits[0], in.Qubits[1], in.Params[0])
		case qasm.GateReset:
			if st.measure(in.Qubits[0], s.float()) == 1 {
				st.x(in.Qubits[0])
			}
		case qasm.GateMeasure:
			c := in.Clbits[0]
			if c < 0 || c >= len(out) {
				return nil, errors.New(errors.PhaseExecute, errors.KindInvalidData).
					Module(p.Name).
					Gate(in.Op).
					Value(c).
					Detail("instruction %d writes clbit %d of %d", pc, c, len(out)).
					Build()
			}
			out[c] = byte(st.measure(in.Qubits[0], s.float()))
		case qasm.GateBarrier:
		default:
			return nil, errors.New(errors.PhaseExecute, errors.KindUnsupported).
				Module(p.Name).
				Gate(in.Op).
				Detail("gate %q is not supported by the simulator", in.Op).
				Build()
		}
	}
	return out, nil
}

func arity(in qasm.Instruction) error {
	var q, p, c int
	switch in.Op {
	case qasm.GateH, qasm.GateX, qasm.GateS, qasm.GateReset:
		q = 1
	case qasm.GateRY:
		q, p = 1, 1
	case qasm.GateCX:
		q = 2
	case qasm.GateCPhase:
		q, p = 2, 1
	case qasm.GateCCX:
		q = 3
	case qasm.GateMeasure:
		q, c = 1, 1
	default:
		return nil
	}
	switch {
	case len(in.Qubits) != q:
		return fmt.Errorf("expected %d qubit(s), got %d", q, len(in.Qubits))
	case len(in.Params) != p:
		return fmt.Errorf("expected %d parameter(s), got %d", p, len(in.Params))
	case len(in.Clbits) != c:
		return fmt.Errorf("expected %d clbit(s), got %d", c, len(in.Clbits))
	}
	return nil
}

// state is a dense state vector; qubit k is bit k of the amplitude index.
type state struct {
	amp   []complex128
	probs []float64
}

func newState(n int) *state {
	st := &state{
		amp:   make([]complex128, 1<<uint(n)),
		probs: make([]float64, 1<<uint(n)),
	}
	st.amp[0] = 1
	return st
}

func (st *state) h(q int) {
	m := 1 << uint(q)
	r := complex(1/math.Sqrt2, 0)
	for i := range st.amp {
		if i&m != 0 {
			continue
		}
		a, b := st.amp[i], st.amp[i|m]
		st.amp[i] = (a + b) * r
		st.amp[i|m] = (a - b) * r
	}
}

func (st *state) x(q int) {
	m := 1 << uint(q)
	for i := range st.amp {
		if i&m == 0 {
			st.amp[i], st.amp[i|m] = st.amp[i|m], st.amp[i]
		}
	}
}

func (st *state) phase(q int, f complex128) {
	m := 1 << uint(q)
	for i := range st.amp {
		if i&m != 0 {
			st.amp[i] *= f
		}
	}
}

func (st *state) ry(q int, theta float64) {
	m := 1 << uint(q)
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	for i := range st.amp {
		if i&m != 0 {
			continue
		}
		a, b := st.amp[i], st.amp[i|m]
		st.amp[i] = c*a - s*b
		st.amp[i|m] = s*a + c*b
	}
}

func (st *state) cx(control, target int) {
	cm, tm := 1<<uint(control), 1<<uint(target)
	for i := range st.amp {
		if i&cm != 0 && i&tm == 0 {
			st.amp[i], st.amp[i|tm] = st.amp[i|tm], st.amp[i]
		}
	}
}

func (st *state) ccx(a, b, target int) {
	cm := 1<<uint(a) | 1<<uint(b)
	tm := 1 << uint(target)
	for i := range st.amp {
		if i&cm == cm && i&tm == 0 {
			st.amp[i], st.amp[i|tm] = st.amp[i|tm], st.amp[i]
		}
	}
}

func (st *state) cphase(a, b int, lambda float64) {
	m := 1<<uint(a) | 1<<uint(b)
	f := cmplx.Exp(complex(0, lambda))
	for i := range st.amp {
		if i&m == m {
			st.amp[i] *= f
		}
	}
}

// measure collapses qubit q using the uniform sample u and returns the outcome.
func (st *state) measure(q int, u float64) int {
	m := 1 << uint(q)
	for i, a := range st.amp {
		if i&m != 0 {
			st.probs[i] = real(a)*real(a) + imag(a)*imag(a)
		} else {
			st.probs[i] = 0
		}
	}
	p1 := math.Min(math.Max(floats.Sum(st.probs), 0), 1)

	outcome := 0
	if u < p1 || p1 == 1 {
		outcome = 1
	}
	keep := p1
	if outcome == 0 {
		keep = 1 - p1
	}
	norm := complex(1/math.Sqrt(keep), 0)
	for i := range st.amp {
		if (i&m != 0) == (outcome == 1) {
			st.amp[i] *= norm
		} else {
			st.amp[i] = 0
		}
	}
	return outcome
}
