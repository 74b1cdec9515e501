package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/qcircuit/errors"
	"github.com/wippyai/qcircuit/qasm"
)

// requireKind checks that err is an *errors.Error of the given kind.
func requireKind(t *testing.T, err error, kind errors.Kind) *errors.Error {
	t.Helper()
	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, kind, e.Kind, "unexpected error: %v", err)
	return e
}

type flip struct{}

func (flip) Circuit(c *qasm.Circuit) error {
	q := c.Qalloc(1)
	c.X(q)
	c.Measure(q)
	return nil
}

type carry struct {
	released int
}

func (m *carry) Requires() []string { return []string{qasm.GateMajority, qasm.GateUnmaj} }

func (m *carry) Circuit(c *qasm.Circuit) error {
	q := c.Qalloc(3)
	c.Apply(qasm.GateMajority, nil, q.At(0), q.At(1), q.At(2))
	c.Apply(qasm.GateUnmaj, nil, q.At(0), q.At(1), q.At(2))
	return nil
}

func (m *carry) Release(context.Context) error {
	m.released++
	return nil
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	factory := func() qasm.Module { return flip{} }

	tests := []struct {
		name    string
		module  string
		factory qasm.Factory
		kind    errors.Kind
	}{
		{"empty name", "", factory, errors.KindInvalidInput},
		{"nil factory", "flip", nil, errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireKind(t, r.Register(tt.module, tt.factory), tt.kind)
		})
	}

	require.NoError(t, r.Register("flip", factory))
	requireKind(t, r.Register("flip", factory), errors.KindRegistration)

	require.NoError(t, r.Register("carry", func() qasm.Module { return &carry{} }))
	assert.Equal(t, []string{"carry", "flip"}, r.Names())

	_, ok := r.Lookup("flip")
	assert.True(t, ok)
	_, ok = r.Lookup("nope")
	assert.False(t, ok)
}

func TestRegistryLoad(t *testing.T) {
	r := NewRegistry()
	m := &carry{}
	require.NoError(t, r.Register("carry", func() qasm.Module { return m }))
	require.NoError(t, r.Register("empty", func() qasm.Module { return nil }))

	t.Run("not found", func(t *testing.T) {
		_, err := r.Load("missing", nil)
		e := requireKind(t, err, errors.KindNotFound)
		assert.Equal(t, errors.PhaseLoad, e.Phase)
	})

	t.Run("nil module", func(t *testing.T) {
		_, err := r.Load("empty", nil)
		requireKind(t, err, errors.KindInstantiation)
	})

	t.Run("unresolved gates release the module", func(t *testing.T) {
		_, err := r.Load("carry", qasm.PrimitiveLibrary())
		require.Error(t, err)
		assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindMissingImport})
		assert.Equal(t, 1, m.released)
	})

	t.Run("resolved", func(t *testing.T) {
		inst, err := r.Load("carry", nil)
		require.NoError(t, err)
		assert.Equal(t, "carry", inst.Name())
		assert.NotEmpty(t, inst.ID())
		assert.Same(t, m, inst.Module())

		p, err := inst.Build(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "carry", p.Name)
		assert.NotContains(t, p.Ops(), qasm.GateMajority)

		require.NoError(t, inst.Release(context.Background()))
		assert.Equal(t, 2, m.released)
	})
}

func TestRegistryUndeclaredComposite(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("adderish", func() qasm.Module {
		return qasm.ModuleFunc(func(c *qasm.Circuit) error {
			q := c.Qalloc(3)
			c.Apply(qasm.GateMajority, nil, q.At(0), q.At(1), q.At(2))
			return nil
		})
	}))

	for _, lib := range []*qasm.Library{qasm.StdLibrary(), qasm.PrimitiveLibrary()} {
		inst, err := r.Load("adderish", lib)
		require.NoError(t, err)

		_, err = inst.Build(context.Background(), nil)
		e := requireKind(t, err, errors.KindMissingImport)
		assert.Equal(t, errors.PhaseCircuit, e.Phase)
		assert.Equal(t, qasm.GateMajority, e.Gate)
		require.NoError(t, inst.Release(context.Background()))
	}
}

func TestDefaultRegistry(t *testing.T) {
	name := "plugin-test-default"
	require.NoError(t, Register(name, func() qasm.Module { return flip{} }))
	assert.Panics(t, func() { MustRegister(name, func() qasm.Module { return flip{} }) })
	assert.Contains(t, Default.Names(), name)
}
