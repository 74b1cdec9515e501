package plugin

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/qcircuit/errors"
	"github.com/wippyai/qcircuit/qasm"
)

// Releaser is implemented by native modules that hold resources. Release is
// called exactly once when the owning Instance is released.
type Releaser interface {
	Release(ctx context.Context) error
}

// contextModule is a module whose entry method needs the caller's context.
type contextModule interface {
	qasm.Module
	bind(ctx context.Context)
}

type instanceState int

const (
	stateReady instanceState = iota
	stateBuilt
	stateReleased
)

// Instance is a loaded module instance owned by the host driver. Its entry
// method runs at most once; Release must be called exactly once.
type Instance struct {
	module  qasm.Module
	lib     *qasm.Library
	release func(ctx context.Context) error
	log     *zap.Logger
	name    string
	id      string
	mu      sync.Mutex
	state   instanceState
}

func newInstance(name string, m qasm.Module, lib *qasm.Library, release func(ctx context.Context) error) *Instance {
	id := uuid.NewString()
	return &Instance{
		module:  m,
		lib:     lib,
		release: release,
		name:    name,
		id:      id,
		log:     Logger().With(zap.String("module", name), zap.String("instance", id)),
	}
}

func (i *Instance) Name() string { return i.name }

// ID returns a unique identifier for this instance.
func (i *Instance) ID() string { return i.id }

// Library returns the gate library the instance was resolved against.
func (i *Instance) Library() *qasm.Library { return i.lib }

// Module returns the underlying circuit module.
func (i *Instance) Module() qasm.Module { return i.module }

// Build invokes the entry method against c. A nil c gets a fresh circuit
// bound to the instance's library.
func (i *Instance) Build(ctx context.Context, c *qasm.Circuit) (*qasm.Program, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.state {
	case stateBuilt:
		return nil, errors.Lifecycle(i.name, "entry method already invoked")
	case stateReleased:
		return nil, errors.Lifecycle(i.name, "instance already released")
	}
	i.state = stateBuilt

	if c == nil {
		c = qasm.NewCircuit(qasm.WithLibrary(i.lib), qasm.WithName(i.name))
	}
	if cm, ok := i.module.(contextModule); ok {
		cm.bind(ctx)
	}
	p, err := qasm.Build(i.module, c)
	if err != nil {
		i.log.Debug("entry failed", zap.Error(err))
		return nil, err
	}
	i.log.Debug("entry finished", zap.Int("instructions", len(p.Instructions)))
	return p, nil
}

// Run builds the instance on a fresh circuit and executes it on b.
func (i *Instance) Run(ctx context.Context, b qasm.Backend, opts ...qasm.Option) (*qasm.Result, error) {
	opts = append([]qasm.Option{qasm.WithLibrary(i.lib), qasm.WithName(i.name)}, opts...)
	c := qasm.NewCircuit(opts...)
	if _, err := i.Build(ctx, c); err != nil {
		return nil, err
	}
	return qasm.Execute(ctx, c, b)
}

// Release frees the instance. Releasing twice is an error.
func (i *Instance) Release(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state == stateReleased {
		return errors.Lifecycle(i.name, "instance released twice")
	}
	i.state = stateReleased
	i.log.Debug("released")

	if i.release != nil {
		return i.release(ctx)
	}
	return nil
}

// Released reports whether Release has been called.
func (i *Instance) Released() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state == stateReleased
}
