package plugin

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/qcircuit/errors"
	"github.com/wippyai/qcircuit/qasm"
)

// handle is one entry of a session's register table.
type handle struct {
	bits    *qasm.Bits
	qubits  qasm.Qubits
	quantum bool
}

// session is the host-side state of one entry invocation. Handle 0 is never
// issued so that a zeroed guest variable is always invalid.
type session struct {
	circuit *qasm.Circuit
	err     error
	handles []handle
}

func newSession(c *qasm.Circuit) *session {
	return &session{circuit: c, handles: make([]handle, 1)}
}

type sessionKey struct{}

func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func (s *session) addQubits(q qasm.Qubits) uint64 {
	s.handles = append(s.handles, handle{qubits: q, quantum: true})
	return api.EncodeU32(uint32(len(s.handles) - 1))
}

func (s *session) addBits(b *qasm.Bits) uint64 {
	s.handles = append(s.handles, handle{bits: b})
	return api.EncodeU32(uint32(len(s.handles) - 1))
}

func (s *session) lookup(raw uint64) (handle, error) {
	h := api.DecodeU32(raw)
	if h == 0 || int(h) >= len(s.handles) {
		return handle{}, errors.New(errors.PhaseLink, errors.KindStaleHandle).
			Value(h).
			Detail("unknown register handle %d", h).
			Build()
	}
	return s.handles[h], nil
}

func (s *session) qubits(raw uint64) (qasm.Qubits, error) {
	h, err := s.lookup(raw)
	if err != nil {
		return qasm.Qubits{}, err
	}
	if !h.quantum {
		return qasm.Qubits{}, errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Value(api.DecodeU32(raw)).
			Detail("handle %d is a classical register, expected qubits", api.DecodeU32(raw)).
			Build()
	}
	return h.qubits, nil
}

func (s *session) bits(raw uint64) (*qasm.Bits, error) {
	h, err := s.lookup(raw)
	if err != nil {
		return nil, err
	}
	if h.quantum {
		return nil, errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Value(api.DecodeU32(raw)).
			Detail("handle %d is a qubit register, expected classical bits", api.DecodeU32(raw)).
			Build()
	}
	return h.bits, nil
}

// hostCall adapts a session operation to a wazero host function. A fault or
// error is recorded on the session and the guest is unwound; the entry
// invocation then reports the recorded error.
func hostCall(fn func(s *session, stack []uint64) error) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		s, _ := ctx.Value(sessionKey{}).(*session)
		if s == nil {
			panic(errors.NotInitialized(errors.PhaseLink, "circuit session"))
		}
		var err error
		if ferr := qasm.Try(func() { err = fn(s, stack) }); ferr != nil {
			err = ferr
		}
		if err != nil {
			s.err = err
			panic(err)
		}
	}
}

// registerHandlers are the implementations of HostABI, keyed by WIT name.
var registerHandlers = map[string]func(s *session, stack []uint64) error{
	"qalloc": func(s *session, stack []uint64) error {
		stack[0] = s.addQubits(s.circuit.Qalloc(int(api.DecodeU32(stack[0]))))
		return nil
	},
	"clalloc": func(s *session, stack []uint64) error {
		stack[0] = s.addBits(s.circuit.Clalloc(int(api.DecodeU32(stack[0]))))
		return nil
	},
	"at": func(s *session, stack []uint64) error {
		q, err := s.qubits(stack[0])
		if err != nil {
			return err
		}
		stack[0] = s.addQubits(q.At(int(api.DecodeI32(stack[1]))))
		return nil
	},
	"slice": func(s *session, stack []uint64) error {
		q, err := s.qubits(stack[0])
		if err != nil {
			return err
		}
		a, b := int(api.DecodeI32(stack[1])), int(api.DecodeI32(stack[2]))
		stack[0] = s.addQubits(q.Slice(qasm.Slice(a, b)))
		return nil
	},
	"view": func(s *session, stack []uint64) error {
		q, err := s.qubits(stack[0])
		if err != nil {
			return err
		}
		v, err := q.View(int(api.DecodeU32(stack[1])))
		if err != nil {
			return err
		}
		stack[0] = s.addQubits(v)
		return nil
	},
	"measure": func(s *session, stack []uint64) error {
		q, err := s.qubits(stack[0])
		if err != nil {
			return err
		}
		b, err := s.bits(stack[1])
		if err != nil {
			return err
		}
		off := int(api.DecodeI32(stack[2]))
		s.circuit.MeasureInto(b, qasm.Slice(off, off+q.Width()-1), q)
		return nil
	},
	"set-bit": func(s *session, stack []uint64) error {
		b, err := s.bits(stack[0])
		if err != nil {
			return err
		}
		b.SetBit(int(api.DecodeI32(stack[1])), int(api.DecodeU32(stack[2])))
		return nil
	},
	"get-bit": func(s *session, stack []uint64) error {
		b, err := s.bits(stack[0])
		if err != nil {
			return err
		}
		v, err := b.BitAt(int(api.DecodeI32(stack[1])))
		if err != nil {
			return err
		}
		stack[0] = api.EncodeU32(uint32(v))
		return nil
	},
	"barrier": func(s *session, stack []uint64) error {
		q, err := s.qubits(stack[0])
		if err != nil {
			return err
		}
		s.circuit.Barrier(q)
		return nil
	},
}

// gateHandler applies def with handles and angles taken from the stack.
func gateHandler(def *qasm.GateDef) func(s *session, stack []uint64) error {
	return func(s *session, stack []uint64) error {
		qs := make([]qasm.Qubits, def.Qubits)
		for i := range qs {
			q, err := s.qubits(stack[i])
			if err != nil {
				return err
			}
			qs[i] = q
		}
		var params []float64
		if def.Params > 0 {
			params = make([]float64, def.Params)
			for i := range params {
				params[i] = api.DecodeF64(stack[def.Qubits+i])
			}
		}
		s.circuit.Apply(def.Name, params, qs...)
		return nil
	}
}

// hostFunc is one export of the host module with its core signature.
type hostFunc struct {
	handler api.GoModuleFunc
	params  []api.ValueType
	results []api.ValueType
}

// hostFuncs assembles the register ABI and one import per library gate.
func hostFuncs(lib *qasm.Library) (map[string]hostFunc, error) {
	sigs, err := ParseSignatures(HostABI)
	if err != nil {
		return nil, err
	}

	funcs := make(map[string]hostFunc)
	for _, sig := range sigs {
		params, results, err := sig.Core()
		if err != nil {
			return nil, err
		}
		funcs[sig.Name] = hostFunc{
			handler: hostCall(registerHandlers[sig.Name]),
			params:  params,
			results: results,
		}
	}

	for _, name := range lib.Names() {
		def, _ := lib.Lookup(name)
		if name == qasm.GateMeasure {
			continue
		}
		if _, clash := funcs[name]; clash {
			return nil, errors.Registration(errors.PhaseLink, Namespace, name,
				errors.InvalidInput(errors.PhaseLink, "gate name collides with a register function"))
		}
		gs, err := ParseSignatures(GateWIT(def))
		if err != nil {
			return nil, err
		}
		params, results, err := gs[0].Core()
		if err != nil {
			return nil, err
		}
		funcs[name] = hostFunc{
			handler: hostCall(gateHandler(def)),
			params:  params,
			results: results,
		}
	}
	return funcs, nil
}

// instantiateHost registers the "qasm" host module on r.
func instantiateHost(ctx context.Context, r wazero.Runtime, funcs map[string]hostFunc) (api.Module, error) {
	b := r.NewHostModuleBuilder(Namespace)
	for name, f := range funcs {
		b.NewFunctionBuilder().
			WithGoModuleFunction(f.handler, f.params, f.results).
			Export(name)
	}
	mod, err := b.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLink, errors.KindInstantiation, err, "instantiate host module")
	}
	return mod, nil
}
