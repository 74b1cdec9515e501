package qasm_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/qcircuit/errors"
	"github.com/wippyai/qcircuit/qasm"
	"github.com/wippyai/qcircuit/sim"
)

type bell struct {
	out *qasm.Bits
}

func (b *bell) Circuit(c *qasm.Circuit) error {
	q := c.Qalloc(2)
	c.H(q.At(0))
	c.CX(q.At(0), q.At(1))
	b.out = c.Measure(q)
	return nil
}

type needsMajority struct{ called bool }

func (m *needsMajority) Requires() []string { return []string{qasm.GateMajority} }

func (m *needsMajority) Circuit(c *qasm.Circuit) error {
	m.called = true
	q := c.Qalloc(3)
	c.Apply(qasm.GateMajority, nil, q.At(0), q.At(1), q.At(2))
	return nil
}

func TestRunBell(t *testing.T) {
	backend := sim.New(sim.WithSeed(3))
	for i := 0; i < 20; i++ {
		m := &bell{}
		res, err := qasm.Run(context.Background(), m, backend, qasm.WithName("bell"))
		require.NoError(t, err)
		assert.Contains(t, []string{"00", "11"}, m.out.String())
		assert.Same(t, m.out, res.Register("m0"))
		assert.Equal(t, 2, res.Program.NumQubits)
	}
}

func TestBuildFaultDiscardsTape(t *testing.T) {
	c := qasm.NewCircuit(qasm.WithName("broken"))
	_, err := qasm.Build(qasm.ModuleFunc(func(c *qasm.Circuit) error {
		q := c.Qalloc(2)
		c.H(q)
		c.H(q.At(2))
		return nil
	}), c)

	require.Error(t, err)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCircuit, Kind: errors.KindOutOfBounds})
	assert.Equal(t, 0, c.Len())
	assert.True(t, c.Done())

	_, err = qasm.Execute(context.Background(), c, sim.New())
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseHost, Kind: errors.KindLifecycle})
}

func TestBuildReturnedError(t *testing.T) {
	want := fmt.Errorf("optimizer diverged")
	c := qasm.NewCircuit()
	_, err := qasm.Build(qasm.ModuleFunc(func(c *qasm.Circuit) error {
		c.H(c.Qalloc(1))
		return want
	}), c)
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 0, c.Len())
}

func TestBuildForeignPanic(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		_, _ = qasm.Build(qasm.ModuleFunc(func(c *qasm.Circuit) error {
			panic("boom")
		}), qasm.NewCircuit())
	})
}

func TestBuildResolvesRequirements(t *testing.T) {
	m := &needsMajority{}
	c := qasm.NewCircuit(qasm.WithName("adder"), qasm.WithLibrary(qasm.PrimitiveLibrary()))
	_, err := qasm.Build(m, c)

	require.Error(t, err)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindMissingImport})
	assert.False(t, m.called, "entry method must not run when resolution fails")
	assert.Contains(t, err.Error(), "majority")

	m = &needsMajority{}
	p, err := qasm.Build(m, qasm.NewCircuit())
	require.NoError(t, err)
	assert.True(t, m.called)
	assert.Len(t, p.Instructions, 3)
}

func TestBuildUndeclaredComposite(t *testing.T) {
	undeclared := qasm.ModuleFunc(func(c *qasm.Circuit) error {
		q := c.Qalloc(3)
		c.Apply(qasm.GateMajority, nil, q.At(0), q.At(1), q.At(2))
		return nil
	})

	tests := []struct {
		name string
		lib  *qasm.Library
	}{
		{"std library", qasm.StdLibrary()},
		{"primitive library", qasm.PrimitiveLibrary()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qasm.NewCircuit(qasm.WithName("adderish"), qasm.WithLibrary(tt.lib))
			_, err := qasm.Build(undeclared, c)
			require.Error(t, err)
			assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCircuit, Kind: errors.KindMissingImport})
			assert.Contains(t, err.Error(), "majority")
			assert.Equal(t, 0, c.Len())
		})
	}

	// Outside Build the circuit does not know the module, so any library gate goes.
	c := qasm.NewCircuit()
	q := c.Qalloc(3)
	c.Apply(qasm.GateMajority, nil, q.At(0), q.At(1), q.At(2))
	assert.Equal(t, 3, c.Len())
}

func TestBuildReusedCircuit(t *testing.T) {
	c := qasm.NewCircuit()
	_, err := qasm.Build(&bell{}, c)
	require.NoError(t, err)

	_, err = qasm.Build(&bell{}, c)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseHost, Kind: errors.KindLifecycle})

	_, err = qasm.Build(nil, qasm.NewCircuit())
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseHost, Kind: errors.KindNotInitialized})
}

func TestExecuteErrors(t *testing.T) {
	c := qasm.NewCircuit()
	_, err := qasm.Execute(context.Background(), c, sim.New())
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseHost, Kind: errors.KindLifecycle})

	_, err = qasm.Build(&bell{}, c)
	require.NoError(t, err)

	_, err = qasm.Execute(context.Background(), c, nil)
	assert.Error(t, err)

	failing := qasm.BackendFunc(func(context.Context, *qasm.Program) ([]byte, error) {
		return nil, fmt.Errorf("device offline")
	})
	_, err = qasm.Execute(context.Background(), c, failing)
	assert.ErrorContains(t, err, "device offline")

	short := qasm.BackendFunc(func(context.Context, *qasm.Program) ([]byte, error) {
		return []byte{1}, nil
	})
	_, err = qasm.Execute(context.Background(), c, short)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseExecute, Kind: errors.KindWidthMismatch})
}

func TestQASMExport(t *testing.T) {
	c := qasm.NewCircuit()
	q := c.QallocNamed("q", 2)
	ans := c.ClallocNamed("ans", 2)
	c.Reset(q)
	c.H(q.At(0))
	c.CPhase(qasm.F64(0.5), q.At(0), q.At(1))
	c.Barrier(q)
	c.MeasureInto(ans, qasm.Slice(0, 1), q)

	want := `OPENQASM 3.0;
include "stdgates.inc";

qubit[2] q;
bit[2] ans;

reset q[0];
reset q[1];
h q[0];
cphase(0.5) q[0], q[1];
barrier q[0], q[1];
ans[0] = measure q[0];
ans[1] = measure q[1];
`
	assert.Equal(t, want, c.QASM())
}

func TestQASMExportEmptyBarrier(t *testing.T) {
	c := qasm.NewCircuit()
	c.H(c.QallocNamed("q", 1))
	c.Barrier()

	assert.Contains(t, c.QASM(), "h q[0];\nbarrier;\n")
	assert.NotContains(t, c.QASM(), "barrier ;")
}
