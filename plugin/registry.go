package plugin

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/qcircuit/errors"
	"github.com/wippyai/qcircuit/qasm"
)

// Registry maps module names to native factories. Modules register
// themselves from init functions; the host looks them up by name.
type Registry struct {
	factories map[string]qasm.Factory
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]qasm.Factory)}
}

// Default is the registry used by Register and the qrun driver.
var Default = NewRegistry()

// Register adds a factory to the Default registry.
func Register(name string, f qasm.Factory) error {
	return Default.Register(name, f)
}

// MustRegister is Register for init functions; it panics on error.
func MustRegister(name string, f qasm.Factory) {
	if err := Default.Register(name, f); err != nil {
		panic(err)
	}
}

// Register adds a factory under name. Names are unique.
func (r *Registry) Register(name string, f qasm.Factory) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "module name cannot be empty")
	}
	if f == nil {
		return errors.InvalidInput(errors.PhaseHost, "factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Registration(errors.PhaseHost, "module", name, errors.InvalidInput(errors.PhaseHost, "module already registered"))
	}
	r.factories[name] = f
	return nil
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (qasm.Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Load calls the factory registered under name and resolves the module's
// gate requirements against lib. A nil lib means qasm.StdLibrary().
func (r *Registry) Load(name string, lib *qasm.Library) (*Instance, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "module", name)
	}
	if lib == nil {
		lib = qasm.StdLibrary()
	}

	m := f()
	if m == nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInstantiation).
			Module(name).
			Detail("factory returned no module").
			Build()
	}

	var release func(ctx context.Context) error
	if rel, ok := m.(Releaser); ok {
		release = rel.Release
	}

	if err := qasm.Requires(name, m, lib); err != nil {
		if release != nil {
			_ = release(context.Background())
		}
		Logger().Debug("module failed to resolve", zap.String("module", name), zap.Error(err))
		return nil, err
	}

	Logger().Debug("module loaded", zap.String("module", name))
	return newInstance(name, m, lib, release), nil
}
