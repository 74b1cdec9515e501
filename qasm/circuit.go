package qasm

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/qcircuit/errors"
)

const (
	// DefaultMaxQubits bounds the total number of qubits one circuit may allocate.
	DefaultMaxQubits = 1 << 12
	// DefaultMaxClbits bounds the total classical bits one circuit may allocate.
	DefaultMaxClbits = 1 << 16
)

// binding routes one flat classical bit to a position of a Bits register.
type binding struct {
	dst *Bits
	pos int
}

// Circuit is the construction context handed to a module's entry method.
// It owns every register allocated through it and records an ordered tape
// of primitive instructions. A Circuit is used for exactly one construction.
type Circuit struct {
	lib       *Library
	log       *zap.Logger
	name      string
	qregs     []*register
	cregs     []*Bits
	tape      []Instruction
	clbits    []binding
	names     map[string]bool
	numQubits int
	maxQubits int
	numClbits int
	maxClbits int
	done      bool
	failed    bool

	// declared holds the composite gates the module declared through
	// Requirer. It is nil outside Build, where any library gate may be used.
	declared map[string]bool
	depth    int
}

// Option configures a Circuit.
type Option func(*Circuit)

// WithLibrary sets the gate library. The default is StdLibrary().
func WithLibrary(l *Library) Option {
	return func(c *Circuit) { c.lib = l }
}

// WithName names the circuit; the name appears in faults and logs.
func WithName(name string) Option {
	return func(c *Circuit) { c.name = name }
}

// WithMaxQubits caps the total qubits the circuit may allocate.
func WithMaxQubits(n int) Option {
	return func(c *Circuit) { c.maxQubits = n }
}

// WithMaxClbits caps the total classical bits the circuit may allocate.
func WithMaxClbits(n int) Option {
	return func(c *Circuit) { c.maxClbits = n }
}

// NewCircuit creates an empty construction context.
func NewCircuit(opts ...Option) *Circuit {
	c := &Circuit{
		names:     make(map[string]bool),
		maxQubits: DefaultMaxQubits,
		maxClbits: DefaultMaxClbits,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.lib == nil {
		c.lib = StdLibrary()
	}
	c.log = Logger().With(zap.String("circuit", c.name))
	return c
}

func (c *Circuit) Name() string { return c.name }

func (c *Circuit) Library() *Library { return c.lib }

// NumQubits returns the number of qubits allocated so far.
func (c *Circuit) NumQubits() int { return c.numQubits }

// Len returns the number of recorded instructions.
func (c *Circuit) Len() int { return len(c.tape) }

// Done reports whether construction has finished.
func (c *Circuit) Done() bool { return c.done }

func (c *Circuit) fault(b *errors.Builder) {
	raise(b.Module(c.name).Build())
}

func (c *Circuit) live() {
	if c.done {
		c.fault(errors.New(errors.PhaseCircuit, errors.KindStaleHandle).
			Detail("circuit construction has already finished"))
	}
}

func (c *Circuit) claimName(name string) {
	if name == "" {
		c.fault(errors.New(errors.PhaseAlloc, errors.KindInvalidInput).Detail("register name cannot be empty"))
	}
	if c.names[name] {
		c.fault(errors.New(errors.PhaseAlloc, errors.KindInvalidInput).Detail("register %q already declared", name))
	}
	c.names[name] = true
}

func (c *Circuit) autoName(prefix string) string {
	for i := 0; ; i++ {
		n := fmt.Sprintf("%s%d", prefix, i)
		if !c.names[n] {
			return n
		}
	}
}

// Qalloc allocates a fresh register of n qubits in the ground state.
func (c *Circuit) Qalloc(n int) Qubits {
	return c.QallocNamed(c.autoName("q"), n)
}

// QallocNamed allocates a fresh named register of n qubits.
func (c *Circuit) QallocNamed(name string, n int) Qubits {
	c.live()
	if n <= 0 {
		raise(errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Module(c.name).
			Path(name).
			Value(n).
			Detail("cannot allocate qubit register of width %d", n).
			Build())
	}
	if c.numQubits+n > c.maxQubits {
		raise(errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Module(c.name).
			Path(name).
			Value(n).
			Detail("allocating %d qubits exceeds the limit of %d (%d in use)", n, c.maxQubits, c.numQubits).
			Build())
	}
	c.claimName(name)
	reg := &register{circuit: c, name: name, base: c.numQubits, size: n}
	c.qregs = append(c.qregs, reg)
	c.numQubits += n
	c.log.Debug("qalloc", zap.String("register", name), zap.Int("width", n), zap.Int("base", reg.base))
	return Qubits{reg: reg, width: n}
}

// Clalloc allocates a zeroed classical register of n bits owned by the circuit.
func (c *Circuit) Clalloc(n int) *Bits {
	return c.ClallocNamed(c.autoName("c"), n)
}

// ClallocNamed allocates a named classical register of n bits.
func (c *Circuit) ClallocNamed(name string, n int) *Bits {
	c.live()
	if n <= 0 {
		raise(errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Module(c.name).
			Path(name).
			Value(n).
			Detail("cannot allocate classical register of width %d", n).
			Build())
	}
	if n > c.maxClbits-c.numClbits {
		raise(errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Module(c.name).
			Path(name).
			Value(n).
			Detail("allocating %d classical bits exceeds the limit of %d (%d in use)", n, c.maxClbits, c.numClbits).
			Build())
	}
	c.claimName(name)
	b := NewBits(n)
	b.name = name
	b.owner = c
	c.cregs = append(c.cregs, b)
	c.numClbits += n
	return b
}

// adopt registers a caller-created bit vector as a classical register. A
// vector already bound to another circuit is rejected.
func (c *Circuit) adopt(b *Bits) {
	if b.owner == c {
		return
	}
	if b.owner != nil {
		c.fault(errors.New(errors.PhaseCircuit, errors.KindStaleHandle).
			Gate(GateMeasure).
			Path(b.name).
			Detail("classical register belongs to another circuit"))
	}
	if b.name == "" || c.names[b.name] {
		b.name = c.autoName("c")
	}
	c.names[b.name] = true
	b.owner = c
	c.cregs = append(c.cregs, b)
}

// own checks that q was allocated by this circuit and is still usable.
func (c *Circuit) own(gate string, q Qubits) {
	if q.reg == nil {
		c.fault(errors.New(errors.PhaseCircuit, errors.KindStaleHandle).
			Gate(gate).
			Detail("qubit handle does not refer to an allocation"))
	}
	if q.reg.circuit != c {
		c.fault(errors.New(errors.PhaseCircuit, errors.KindStaleHandle).
			Gate(gate).
			Path(q.reg.name).
			Detail("qubit handle belongs to another circuit"))
	}
	if q.offset < 0 || q.width < 1 || q.offset+q.width > q.reg.size {
		c.fault(errors.New(errors.PhaseCircuit, errors.KindOutOfBounds).
			Gate(gate).
			Path(q.reg.name).
			Detail("view [%d, %d) outside allocation of %d", q.offset, q.offset+q.width, q.reg.size))
	}
}

func (c *Circuit) emit(op string, qubits []int, params []float64) {
	for i := range qubits {
		for j := i + 1; j < len(qubits); j++ {
			if qubits[i] == qubits[j] {
				c.fault(errors.New(errors.PhaseCircuit, errors.KindInvalidInput).
					Gate(op).
					Value(qubits[i]).
					Detail("qubit %d used as more than one operand", qubits[i]))
			}
		}
	}
	c.tape = append(c.tape, Instruction{Op: op, Qubits: qubits, Params: params})
}

// Apply invokes the named gate from the circuit's library. Unknown names
// are resolution errors. Primitive gates that broadcast apply element-wise
// over wider handles; composite gates require width-1 operands.
func (c *Circuit) Apply(name string, params []float64, qs ...Qubits) {
	c.live()
	def, ok := c.lib.Lookup(name)
	if !ok {
		if c.declared != nil {
			// Declared gates were resolved before construction started.
			c.fault(errors.New(errors.PhaseCircuit, errors.KindMissingImport).
				Gate(name).
				Detail("gate %q is neither defined by the library nor declared by the module", name))
		}
		raise(errors.Unresolved(c.name, name))
	}
	if name == GateMeasure {
		err := errors.Unsupported(errors.PhaseCircuit, "measure produces a value; use Measure or MeasureInto")
		err.Module = c.name
		err.Gate = name
		raise(err)
	}
	if def.Composite() && c.declared != nil && c.depth == 0 && !c.declared[name] {
		c.fault(errors.New(errors.PhaseCircuit, errors.KindMissingImport).
			Gate(name).
			Detail("composite gate %q is not declared by the module's Requires", name))
	}
	if len(qs) != def.Qubits {
		raise(errors.Arity(name, def.Qubits, len(qs)))
	}
	if len(params) != def.Params {
		c.fault(errors.New(errors.PhaseCircuit, errors.KindArity).
			Gate(name).
			Value(len(params)).
			Detail("expected %d parameter(s), got %d", def.Params, len(params)))
	}
	for _, q := range qs {
		c.own(name, q)
	}

	if def.Composite() {
		for _, q := range qs {
			if q.width != 1 {
				raise(errors.New(errors.PhaseCircuit, errors.KindWidthMismatch).
					Module(c.name).
					Gate(name).
					Path(q.String()).
					Detail("composite gate operands must be single qubits, got width %d", q.width).
					Build())
			}
		}
		c.depth++
		def.Body(c, qs, params)
		c.depth--
		return
	}

	switch {
	case def.Broadcast && len(qs) == 1:
		for _, idx := range qs[0].Indices() {
			c.emit(name, []int{idx}, params)
		}
	case def.Broadcast && len(qs) == 2:
		a, b := qs[0], qs[1]
		switch {
		case a.width == b.width:
			for i := 0; i < a.width; i++ {
				c.emit(name, []int{a.Index(i), b.Index(i)}, params)
			}
		case a.width == 1:
			for _, idx := range b.Indices() {
				c.emit(name, []int{a.Index(0), idx}, params)
			}
		default:
			raise(errors.WidthMismatch(errors.PhaseCircuit, name, a.width, b.width))
		}
	default:
		idx := make([]int, len(qs))
		for i, q := range qs {
			if q.width != 1 {
				raise(errors.WidthMismatch(errors.PhaseCircuit, name, 1, q.width))
			}
			idx[i] = q.Index(0)
		}
		c.emit(name, idx, params)
	}
}

// H applies a Hadamard to every qubit of q.
func (c *Circuit) H(q Qubits) { c.Apply(GateH, nil, q) }

// X applies a Pauli-X to every qubit of q.
func (c *Circuit) X(q Qubits) { c.Apply(GateX, nil, q) }

// S applies the phase gate to every qubit of q.
func (c *Circuit) S(q Qubits) { c.Apply(GateS, nil, q) }

// Reset returns every qubit of q to the ground state.
func (c *Circuit) Reset(q Qubits) { c.Apply(GateReset, nil, q) }

// CX applies controlled-X pairwise, or from a single control onto every
// qubit of target.
func (c *Circuit) CX(control, target Qubits) { c.Apply(GateCX, nil, control, target) }

// CCX applies a Toffoli gate.
func (c *Circuit) CCX(a, b, target Qubits) { c.Apply(GateCCX, nil, a, b, target) }

// RY rotates every qubit of q about the Y axis by theta.
func (c *Circuit) RY(q Qubits, theta Float) {
	c.Apply(GateRY, []float64{theta.Value()}, q)
}

// CPhase applies a controlled phase rotation by lambda.
func (c *Circuit) CPhase(lambda Float, a, b Qubits) {
	c.Apply(GateCPhase, []float64{lambda.Value()}, a, b)
}

// Barrier records an ordering barrier across qs. It has no effect on state.
func (c *Circuit) Barrier(qs ...Qubits) {
	c.live()
	var idx []int
	for _, q := range qs {
		c.own(GateBarrier, q)
		idx = append(idx, q.Indices()...)
	}
	c.tape = append(c.tape, Instruction{Op: GateBarrier, Qubits: idx})
}

// Measure measures every qubit of q into a fresh classical register of the
// same width. The register is filled when the program has executed.
func (c *Circuit) Measure(q Qubits) *Bits {
	c.live()
	c.own(GateMeasure, q)
	dst := c.ClallocNamed(c.autoName("m"), q.width)
	c.measure(dst, Slice(0, q.width-1).Values(), q)
	return dst
}

// MeasureInto measures q into the positions of dst selected by r. Exactly
// len(r) positions are written when the program executes; every other bit
// of dst keeps its value.
func (c *Circuit) MeasureInto(dst *Bits, r SliceRange, q Qubits) {
	c.live()
	c.own(GateMeasure, q)
	if dst == nil {
		c.fault(errors.New(errors.PhaseCircuit, errors.KindInvalidInput).
			Gate(GateMeasure).
			Detail("measurement target is nil"))
	}
	if n := r.Len(); n != q.width {
		raise(errors.New(errors.PhaseCircuit, errors.KindWidthMismatch).
			Module(c.name).
			Gate(GateMeasure).
			Path(q.String()).
			Detail("measuring %d qubit(s) into %d bit position(s)", q.width, n).
			Build())
	}
	positions := r.Values()
	for _, p := range positions {
		if err := dst.check(p); err != nil {
			err.Module = c.name
			err.Gate = GateMeasure
			raise(err)
		}
	}
	c.adopt(dst)
	c.measure(dst, positions, q)
}

func (c *Circuit) measure(dst *Bits, positions []int, q Qubits) {
	for i, idx := range q.Indices() {
		clbit := len(c.clbits)
		c.clbits = append(c.clbits, binding{dst: dst, pos: positions[i]})
		c.tape = append(c.tape, Instruction{
			Op:     GateMeasure,
			Qubits: []int{idx},
			Clbits: []int{clbit},
		})
	}
}

// Registers returns the classical registers of the circuit by name.
func (c *Circuit) Registers() map[string]*Bits {
	out := make(map[string]*Bits, len(c.cregs))
	for _, b := range c.cregs {
		out[b.name] = b
	}
	return out
}

// Program snapshots the recorded tape.
func (c *Circuit) Program() *Program {
	p := &Program{
		Name:         c.name,
		NumQubits:    c.numQubits,
		Instructions: slices.Clone(c.tape),
		Clbits:       make([]ClbitRef, len(c.clbits)),
	}
	for _, r := range c.qregs {
		p.Registers = append(p.Registers, RegisterInfo{Name: r.name, Base: r.base, Width: r.size, Quantum: true})
	}
	for _, b := range c.cregs {
		p.Registers = append(p.Registers, RegisterInfo{Name: b.name, Width: b.width})
	}
	for i, bd := range c.clbits {
		p.Clbits[i] = ClbitRef{Register: bd.dst.name, Pos: bd.pos}
	}
	return p
}

// finish ends construction. Handles into the circuit are rejected afterwards.
func (c *Circuit) finish() *Program {
	c.done = true
	return c.Program()
}

// discard drops a partially built tape after a fault.
func (c *Circuit) discard() {
	c.done = true
	c.failed = true
	c.tape = nil
	c.clbits = nil
}

// Deliver writes backend outcomes into the bound classical registers, in
// tape order, so a later measurement of the same position wins.
func (c *Circuit) Deliver(outcome []byte) error {
	if !c.done || c.failed {
		return errors.New(errors.PhaseExecute, errors.KindLifecycle).
			Module(c.name).
			Detail("circuit construction has not completed").
			Build()
	}
	if len(outcome) != len(c.clbits) {
		return errors.New(errors.PhaseExecute, errors.KindWidthMismatch).
			Module(c.name).
			Detail("backend returned %d classical bit(s), program has %d", len(outcome), len(c.clbits)).
			Build()
	}
	for i, bd := range c.clbits {
		bd.dst.set(bd.pos, int(outcome[i]))
	}
	return nil
}
