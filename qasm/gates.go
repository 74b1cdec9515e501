package qasm

import (
	"sort"
	"sync"

	"github.com/wippyai/qcircuit/errors"
)

// GateFunc is the body of a composite gate. Operands are width-1 handles in
// declaration order; params carry the gate's angle arguments.
type GateFunc func(c *Circuit, qs []Qubits, params []float64)

// GateDef describes one named operation of a Library.
type GateDef struct {
	Body GateFunc
	Name string
	// Qubits is the number of handle operands.
	Qubits int
	// Params is the number of angle operands.
	Params int
	// Broadcast lets wider handles apply the gate element-wise. For two
	// operands, a width-1 first operand is applied against every qubit of
	// the second.
	Broadcast bool
}

// Composite reports whether the gate is defined in terms of other gates.
func (g *GateDef) Composite() bool { return g.Body != nil }

// Library is a catalogue of gates a circuit may use. Circuits resolve gate
// names against their library; a name the library does not define is a
// resolution error.
type Library struct {
	gates map[string]*GateDef
	mu    sync.RWMutex
}

// NewLibrary creates a library holding defs.
func NewLibrary(defs ...GateDef) *Library {
	l := &Library{gates: make(map[string]*GateDef, len(defs))}
	for _, d := range defs {
		d := d
		l.gates[d.Name] = &d
	}
	return l
}

// Define adds a gate. Redefining an existing name is an error.
func (l *Library) Define(def GateDef) error {
	if def.Name == "" {
		return errors.InvalidInput(errors.PhaseValidate, "gate name cannot be empty")
	}
	if def.Qubits < 1 {
		return errors.New(errors.PhaseValidate, errors.KindArity).
			Gate(def.Name).
			Detail("gate needs at least one qubit operand").
			Build()
	}
	if def.Body != nil && def.Broadcast {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Gate(def.Name).
			Detail("composite gates take width-1 operands and cannot broadcast").
			Build()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.gates[def.Name]; exists {
		return errors.Registration(errors.PhaseValidate, "qasm", def.Name, errors.InvalidInput(errors.PhaseValidate, "gate already defined"))
	}
	l.gates[def.Name] = &def
	return nil
}

// Lookup returns the definition of name.
func (l *Library) Lookup(name string) (*GateDef, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, ok := l.gates[name]
	return g, ok
}

// Resolve checks that every name is defined. All missing names are reported
// together; module names the requesting module in the error.
func (l *Library) Resolve(module string, names ...string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var missing []string
	for _, n := range names {
		if _, ok := l.gates[n]; !ok {
			missing = append(missing, n)
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return errors.Unresolved(module, missing[0])
	}
	keys := make([]string, len(missing))
	for i, n := range missing {
		keys[i] = "qasm#" + n
	}
	return errors.NewMissingImportsError(module, keys)
}

// Names returns the defined gate names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.gates))
	for n := range l.gates {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy that can be extended without affecting l.
func (l *Library) Clone() *Library {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c := &Library{gates: make(map[string]*GateDef, len(l.gates))}
	for n, g := range l.gates {
		c.gates[n] = g
	}
	return c
}

// Without returns a copy of l with the named gates removed.
func (l *Library) Without(names ...string) *Library {
	c := l.Clone()
	for _, n := range names {
		delete(c.gates, n)
	}
	return c
}
