package qasm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/qcircuit/errors"
)

// Module is a circuit definition. Circuit is its single entry method: it
// allocates registers and applies gates through c. Faults raised during
// construction abort it and are returned by Build.
type Module interface {
	Circuit(c *Circuit) error
}

// Requirer is implemented by modules that use composite gates. Required
// names are resolved against the library before construction starts, which
// is what lets a loader reject a module before running it. Inside Build, a
// composite gate the module did not declare faults with KindMissingImport
// even when the library defines it.
type Requirer interface {
	Requires() []string
}

// Factory creates a fresh Module instance. It is the stable entry point a
// module exposes to a host driver.
type Factory func() Module

// ModuleFunc adapts a function to the Module interface.
type ModuleFunc func(c *Circuit) error

func (f ModuleFunc) Circuit(c *Circuit) error { return f(c) }

// Requires resolves the requirements of m against lib. Modules that do not
// implement Requirer resolve trivially.
func Requires(name string, m Module, lib *Library) error {
	r, ok := m.(Requirer)
	if !ok {
		return nil
	}
	return lib.Resolve(name, r.Requires()...)
}

// declared returns the gate names m declares, as a set. Modules without
// Requirer declare nothing.
func declared(m Module) map[string]bool {
	set := make(map[string]bool)
	if r, ok := m.(Requirer); ok {
		for _, n := range r.Requires() {
			set[n] = true
		}
	}
	return set
}

// Build runs the entry method of m against c and returns the finished
// program. A construction fault or returned error discards the partial tape;
// c cannot be used afterwards either way.
func Build(m Module, c *Circuit) (p *Program, err error) {
	if m == nil {
		return nil, errors.NotInitialized(errors.PhaseHost, "module")
	}
	if c == nil {
		c = NewCircuit()
	}
	if c.done {
		return nil, errors.Lifecycle(c.name, "circuit already used for a construction")
	}
	if err := Requires(c.name, m, c.lib); err != nil {
		c.discard()
		return nil, err
	}
	c.declared = declared(m)
	defer func() { c.declared = nil }()

	defer func() {
		if err != nil {
			c.discard()
			c.log.Debug("construction aborted", zap.Error(err))
		}
	}()
	defer recoverFault(&err)

	if err := m.Circuit(c); err != nil {
		return nil, err
	}
	p = c.finish()
	c.log.Debug("construction finished",
		zap.Int("qubits", p.NumQubits),
		zap.Int("clbits", p.NumClbits()),
		zap.Int("instructions", len(p.Instructions)))
	return p, nil
}

// Result is the outcome of one execution.
type Result struct {
	Program  *Program
	Outcome  []byte
	Duration time.Duration
	// Registers maps classical register names to their delivered values.
	Registers map[string]*Bits
}

// Register returns the named classical register, or nil.
func (r *Result) Register(name string) *Bits {
	return r.Registers[name]
}

// Execute hands the finished program of c to b and delivers the outcome into
// the classical registers bound by measurements.
func Execute(ctx context.Context, c *Circuit, b Backend) (*Result, error) {
	if b == nil {
		return nil, errors.NotInitialized(errors.PhaseExecute, "backend")
	}
	if !c.done {
		return nil, errors.Lifecycle(c.name, "circuit construction has not finished")
	}
	if c.failed {
		return nil, errors.Lifecycle(c.name, "circuit construction failed; nothing to execute")
	}
	p := c.Program()
	start := time.Now()
	outcome, err := b.Execute(ctx, p)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseExecute, errors.KindInstantiation, err, "backend execution failed")
	}
	if err := c.Deliver(outcome); err != nil {
		return nil, err
	}
	res := &Result{
		Program:   p,
		Outcome:   outcome,
		Duration:  time.Since(start),
		Registers: c.Registers(),
	}
	c.log.Debug("executed", zap.Duration("duration", res.Duration))
	return res, nil
}

// Run builds m on a fresh circuit configured by opts and executes it on b.
func Run(ctx context.Context, m Module, b Backend, opts ...Option) (*Result, error) {
	c := NewCircuit(opts...)
	if _, err := Build(m, c); err != nil {
		return nil, err
	}
	return Execute(ctx, c, b)
}
