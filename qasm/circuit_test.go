package qasm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/qcircuit/errors"
)

func TestQubitsChainedAt(t *testing.T) {
	c := NewCircuit()
	c.Qalloc(3)
	q := c.Qalloc(8)

	for i := 0; i < q.Width(); i++ {
		want := q.Index(i)
		h := q.At(i)
		for depth := 0; depth < 5; depth++ {
			h = h.At(0)
			assert.Equal(t, want, h.Index(0), "qubit %d at depth %d", i, depth)
		}
	}

	s := q.Slice(Slice(2, 6)).Slice(Slice(1, 3)).At(1)
	assert.Equal(t, 3+2+1+1, s.Index(0))
	assert.Equal(t, "q1[4]", s.String())
}

func TestQubitsBounds(t *testing.T) {
	c := NewCircuit()
	q := c.QallocNamed("r", 4)

	requireFault(t, errors.KindOutOfBounds, func() { q.At(4) })
	requireFault(t, errors.KindOutOfBounds, func() { q.At(-1) })
	requireFault(t, errors.KindOutOfBounds, func() { q.Slice(Slice(2, 4)) })
	requireFault(t, errors.KindOutOfBounds, func() { q.Slice(Slice(1, 2)).At(2) })
	requireFault(t, errors.KindInvalidRange, func() { q.Slice(SliceStep(0, 2, 3)) })
	requireFault(t, errors.KindInvalidRange, func() { q.Slice(Slice(2, 1)) })
	requireFault(t, errors.KindStaleHandle, func() { Qubits{}.At(0) })

	assert.Equal(t, "r", q.String())
	assert.Equal(t, "r[1:2]", q.Slice(Slice(1, 2)).String())
	assert.Equal(t, []int{1, 2}, q.Slice(Slice(1, 2)).Indices())
}

func TestQubitsView(t *testing.T) {
	c := NewCircuit()
	q := c.Qalloc(4)

	one := q.At(1)
	wide, err := one.View(3)
	require.NoError(t, err)
	assert.Equal(t, 3, wide.Width())
	assert.Equal(t, []int{1, 2, 3}, wide.Indices())

	_, err = one.View(4)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCircuit, Kind: errors.KindWidthMismatch})

	narrow, err := q.View(1)
	require.NoError(t, err)
	assert.Equal(t, q.Index(0), narrow.Index(0))

	_, err = q.View(0)
	assert.Error(t, err)
	_, err = Qubits{}.View(1)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCircuit, Kind: errors.KindNotInitialized})

	requireFault(t, errors.KindWidthMismatch, func() { q.At(3).MustView(2) })
}

func TestQalloc(t *testing.T) {
	c := NewCircuit(WithMaxQubits(10))

	a := c.Qalloc(4)
	b := c.QallocNamed("anc", 2)
	assert.Equal(t, "q0", a.Register())
	assert.Equal(t, 4, b.Index(0))
	assert.Equal(t, 6, c.NumQubits())

	requireFault(t, errors.KindAllocation, func() { c.Qalloc(0) })
	requireFault(t, errors.KindAllocation, func() { c.Qalloc(-2) })
	requireFault(t, errors.KindAllocation, func() { c.Qalloc(5) })
	requireFault(t, errors.KindInvalidInput, func() { c.QallocNamed("anc", 1) })
	requireFault(t, errors.KindAllocation, func() { c.Clalloc(0) })

	creg := c.Clalloc(3)
	assert.Equal(t, "c0", creg.Name())
	assert.Equal(t, 3, creg.Width())
}

func TestClallocLimit(t *testing.T) {
	c := NewCircuit(WithMaxClbits(8))
	c.Clalloc(5)

	e := requireFault(t, errors.KindAllocation, func() { c.Clalloc(4) })
	assert.Equal(t, errors.PhaseAlloc, e.Phase)

	c.Clalloc(3)
	q := c.Qalloc(1)
	requireFault(t, errors.KindAllocation, func() { c.Measure(q) })

	requireFault(t, errors.KindAllocation, func() { NewCircuit().Clalloc(DefaultMaxClbits + 1) })
	assert.Equal(t, DefaultMaxClbits, NewCircuit().Clalloc(DefaultMaxClbits).Width())
}

func TestQubitsSliceExtremeRanges(t *testing.T) {
	c := NewCircuit()
	q := c.Qalloc(2)

	requireFault(t, errors.KindInvalidRange, func() { q.Slice(Slice(0, math.MaxInt)) })
	requireFault(t, errors.KindOutOfBounds, func() { q.Slice(Slice(1, math.MaxInt-1)) })
	requireFault(t, errors.KindOutOfBounds, func() { q.Slice(Slice(2, 2)) })
	requireFault(t, errors.KindOutOfBounds, func() { q.Slice(Slice(-1, 0)) })
	requireFault(t, errors.KindWidthMismatch, func() { c.MeasureInto(NewBits(2), Slice(0, math.MaxInt-1), q) })

	assert.Equal(t, 2, q.Slice(Slice(0, 1)).Width())
}

func TestGateBroadcast(t *testing.T) {
	c := NewCircuit()
	a := c.Qalloc(3)
	b := c.Qalloc(3)

	c.H(a)
	c.CX(a.At(0), b)
	c.CX(a, b)
	c.RY(b.At(2), F64(0.25))

	p := c.Program()
	counts := p.Counts()
	assert.Equal(t, 3, counts[GateH])
	assert.Equal(t, 6, counts[GateCX])
	assert.Equal(t, 1, counts[GateRY])

	assert.Equal(t, []int{0, 3}, p.Instructions[3].Qubits)
	assert.Equal(t, []int{0, 5}, p.Instructions[5].Qubits)
	assert.Equal(t, []int{2, 5}, p.Instructions[8].Qubits)
	assert.Equal(t, []float64{0.25}, p.Instructions[9].Params)
	assert.Equal(t, []string{GateCX, GateH, GateRY}, p.Ops())
}

func TestGateFaults(t *testing.T) {
	c := NewCircuit()
	a := c.Qalloc(3)
	b := c.Qalloc(2)

	e := requireFault(t, errors.KindWidthMismatch, func() { c.CX(a, b) })
	assert.Equal(t, GateCX, e.Gate)
	requireFault(t, errors.KindWidthMismatch, func() { c.CCX(a, b.At(0), b.At(1)) })
	requireFault(t, errors.KindWidthMismatch, func() { c.Apply(GateMajority, nil, a, b.At(0), b.At(1)) })
	requireFault(t, errors.KindInvalidInput, func() { c.CX(a.At(1), a.At(1)) })
	requireFault(t, errors.KindInvalidInput, func() { c.CX(a.At(0), a) })
	requireFault(t, errors.KindArity, func() { c.Apply(GateCX, nil, a) })
	requireFault(t, errors.KindArity, func() { c.Apply(GateRY, nil, a) })
	e = requireFault(t, errors.KindUnsupported, func() { c.Apply(GateMeasure, nil, a) })
	assert.Equal(t, GateMeasure, e.Gate)
	assert.Equal(t, errors.PhaseCircuit, e.Phase)
	requireFault(t, errors.KindStaleHandle, func() { c.H(Qubits{}) })

	e = requireFault(t, errors.KindMissingImport, func() { c.Apply("toffoli4", nil, a) })
	assert.Equal(t, "toffoli4", e.Gate)

	other := NewCircuit().Qalloc(3)
	requireFault(t, errors.KindStaleHandle, func() { c.H(other) })
}

func TestCompositeGates(t *testing.T) {
	c := NewCircuit()
	q := c.Qalloc(3)
	c.Apply(GateMajority, nil, q.At(0), q.At(1), q.At(2))
	c.Apply(GateUnmaj, nil, q.At(0), q.At(1), q.At(2))

	var ops []string
	for _, in := range c.Program().Instructions {
		ops = append(ops, in.Op)
	}
	assert.Equal(t, []string{GateCX, GateCX, GateCCX, GateCCX, GateCX, GateCX}, ops)

	prim := NewCircuit(WithLibrary(PrimitiveLibrary()))
	pq := prim.Qalloc(3)
	e := requireFault(t, errors.KindMissingImport, func() {
		prim.Apply(GateMajority, nil, pq.At(0), pq.At(1), pq.At(2))
	})
	assert.Equal(t, errors.PhaseLoad, e.Phase)
	assert.Equal(t, 0, prim.Len())
}

func TestMeasureInto(t *testing.T) {
	c := NewCircuit()
	q := c.Qalloc(3)
	dst := BitsFrom(8, 0b1010_0101)

	c.MeasureInto(dst, Slice(2, 4), q)
	m := c.Measure(q.At(0))

	requireFault(t, errors.KindWidthMismatch, func() { c.MeasureInto(dst, Slice(0, 1), q) })
	requireFault(t, errors.KindOutOfBounds, func() { c.MeasureInto(dst, Slice(6, 8), q) })

	p := c.finish()
	require.Equal(t, 4, p.NumClbits())
	assert.Equal(t, []ClbitRef{
		{Register: "c0", Pos: 2},
		{Register: "c0", Pos: 3},
		{Register: "c0", Pos: 4},
		{Register: "m0", Pos: 0},
	}, p.Clbits)

	require.NoError(t, c.Deliver([]byte{0, 1, 0, 1}))
	assert.Equal(t, "10101001", dst.String())
	assert.Equal(t, 1, m.Bit(0))

	assert.Error(t, c.Deliver([]byte{1}))
	assert.Contains(t, c.Registers(), "m0")
}

func TestMeasureIntoForeignBits(t *testing.T) {
	owner := NewCircuit()
	dst := owner.ClallocNamed("out", 2)

	c := NewCircuit()
	c.ClallocNamed("out", 1)
	q := c.Qalloc(2)
	requireFault(t, errors.KindStaleHandle, func() { c.MeasureInto(dst, Slice(0, 1), q) })
	assert.Equal(t, "out", dst.Name())
	assert.NotSame(t, dst, c.Registers()["out"])

	free := NewBits(2)
	c.MeasureInto(free, Slice(0, 1), q)
	assert.Equal(t, "c0", free.Name())

	other := NewCircuit()
	requireFault(t, errors.KindStaleHandle, func() { other.MeasureInto(free, Slice(0, 1), other.Qalloc(2)) })
	assert.Equal(t, "c0", free.Name())
	assert.Empty(t, other.Registers())
}

func TestMeasureLastWriteWins(t *testing.T) {
	c := NewCircuit()
	q := c.Qalloc(2)
	dst := c.Clalloc(1)
	c.MeasureInto(dst, Slice(0, 0), q.At(0))
	c.MeasureInto(dst, Slice(0, 0), q.At(1))
	c.finish()

	require.NoError(t, c.Deliver([]byte{1, 0}))
	assert.Equal(t, 0, dst.Bit(0))
}

func TestDeliverBeforeFinish(t *testing.T) {
	c := NewCircuit()
	c.Measure(c.Qalloc(1))
	err := c.Deliver([]byte{1})
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseExecute, Kind: errors.KindLifecycle})
}

func TestCircuitFinished(t *testing.T) {
	c := NewCircuit()
	q := c.Qalloc(2)
	c.finish()

	requireFault(t, errors.KindStaleHandle, func() { c.H(q) })
	requireFault(t, errors.KindStaleHandle, func() { c.Qalloc(1) })
	assert.True(t, c.Done())
}

func TestBarrier(t *testing.T) {
	c := NewCircuit()
	a := c.Qalloc(2)
	b := c.Qalloc(1)
	c.Barrier(a, b)

	p := c.Program()
	require.Len(t, p.Instructions, 1)
	assert.Equal(t, Instruction{Op: GateBarrier, Qubits: []int{0, 1, 2}}, p.Instructions[0])
}
