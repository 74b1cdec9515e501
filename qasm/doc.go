// Package qasm is an embedded language for describing quantum circuits in Go.
//
// A circuit is described by ordinary sequential Go code that allocates
// registers and applies gates through a *Circuit:
//
//	c := qasm.NewCircuit(qasm.WithName("bell"))
//	q := c.Qalloc(2)
//	c.H(q.At(0))
//	c.CX(q.At(0), q.At(1))
//	out := c.Measure(q)
//
// Every gate call appends primitive instructions to the circuit's ordered
// tape. Nothing executes while the circuit is being built: the finished
// Program is handed to a Backend, and measurement outcomes are written back
// into the classical registers bound by Measure and MeasureInto.
//
// # Values
//
// Classical state uses fixed-width types with hardware-register semantics:
//
//	Uint   width 1..64, arithmetic wraps modulo 2^W
//	Float  width 16, 32 or 64, rounded to the declared precision
//	Bits   bit vector of any width, the target of measurements
//
// Indexing outside [0, width) is a fault, never an alias.
//
// # Handles and slices
//
// Qubits is a weak view {register, offset, width} into a register owned by
// the circuit that allocated it. At, Slice and View derive narrower or wider
// views that always resolve to absolute physical indices. SliceRange drives
// loops, including descending ranges for uncompute sequences:
//
//	for i := range qasm.SliceStep(2, -1, 0).All() { // 2, 1, 0
//		c.Apply("unmaj", nil, a.At(i), b.At(i+1), a.At(i+1))
//	}
//
// # Faults
//
// Width, index and allocation faults raised while a circuit is being built
// panic with a fault value wrapping *errors.Error, the same way an
// out-of-range slice index panics. Build and Run recover them at the entry
// method boundary and return them as ordinary errors; the partial tape is
// discarded. Checked variants (BitAt, View) return the error instead.
//
// # Thread Safety
//
// A Circuit is single-threaded: it must be built by one goroutine. A Library
// is safe for concurrent use.
package qasm
