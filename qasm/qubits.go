package qasm

import (
	"fmt"
	"strconv"

	"github.com/wippyai/qcircuit/errors"
)

// register is a contiguous block of physical qubits owned by one circuit.
type register struct {
	circuit *Circuit
	name    string
	base    int
	size    int
}

// Qubits is a weak reference to width qubits of a register, starting at
// offset. It owns nothing; its validity is tied to the circuit that
// allocated the register.
type Qubits struct {
	reg    *register
	offset int
	width  int
}

func (q Qubits) Width() int { return q.width }

// Offset returns the view's offset inside its register.
func (q Qubits) Offset() int { return q.offset }

// Register returns the name of the backing register.
func (q Qubits) Register() string {
	if q.reg == nil {
		return ""
	}
	return q.reg.name
}

// Valid reports whether q refers to an allocation.
func (q Qubits) Valid() bool { return q.reg != nil }

func (q Qubits) path() []string {
	if q.reg == nil {
		return []string{"qubits"}
	}
	return []string{q.reg.name}
}

func (q Qubits) mustValid() {
	if q.reg == nil {
		raise(errors.New(errors.PhaseCircuit, errors.KindStaleHandle).
			Detail("qubit handle does not refer to an allocation").
			Build())
	}
}

// At returns the width-1 view of qubit i of q. Indices are relative to q,
// so q.At(i).At(0) names the same physical qubit as q.At(i).
func (q Qubits) At(i int) Qubits {
	q.mustValid()
	if i < 0 || i >= q.width {
		raise(errors.OutOfBounds(errors.PhaseCircuit, q.path(), i, q.width))
	}
	return Qubits{reg: q.reg, offset: q.offset + i, width: 1}
}

// Slice returns the view covering the indices of r relative to q. The range
// must be non-empty, ascending and contiguous.
func (q Qubits) Slice(r SliceRange) Qubits {
	q.mustValid()
	lo, n, ok := r.Contiguous()
	if !ok {
		raise(errors.New(errors.PhaseCircuit, errors.KindInvalidRange).
			Path(q.path()...).
			Detail("qubit slice %s is not a non-empty contiguous ascending range", r).
			Build())
	}
	if lo < 0 || lo >= q.width {
		raise(errors.OutOfBounds(errors.PhaseCircuit, q.path(), lo, q.width))
	}
	if n < 1 || n > q.width-lo {
		last := lo + n - 1
		if n < 1 || last < lo {
			last = lo
		}
		raise(errors.OutOfBounds(errors.PhaseCircuit, q.path(), last, q.width))
	}
	return Qubits{reg: q.reg, offset: q.offset + lo, width: n}
}

// View reinterprets q as a handle of the given width starting at the same
// offset. Widening succeeds only when the backing allocation actually spans
// the requested width.
func (q Qubits) View(width int) (Qubits, error) {
	if q.reg == nil {
		return Qubits{}, errors.NotInitialized(errors.PhaseCircuit, "qubit handle")
	}
	if width < 1 {
		return Qubits{}, errors.AllocationFailed("qubit view", width)
	}
	if q.offset+width > q.reg.size {
		return Qubits{}, errors.New(errors.PhaseCircuit, errors.KindWidthMismatch).
			Path(q.path()...).
			Value(width).
			Detail("view of width %d at offset %d exceeds allocation of %d", width, q.offset, q.reg.size).
			Build()
	}
	return Qubits{reg: q.reg, offset: q.offset, width: width}, nil
}

// MustView is View that faults instead of returning an error.
func (q Qubits) MustView(width int) Qubits {
	v, err := q.View(width)
	if err != nil {
		raise(err.(*errors.Error))
	}
	return v
}

// Index returns the absolute physical index of qubit i of q.
func (q Qubits) Index(i int) int {
	q.mustValid()
	if i < 0 || i >= q.width {
		raise(errors.OutOfBounds(errors.PhaseCircuit, q.path(), i, q.width))
	}
	return q.reg.base + q.offset + i
}

// Indices returns the absolute physical indices covered by q, in order.
func (q Qubits) Indices() []int {
	q.mustValid()
	out := make([]int, q.width)
	for i := range out {
		out[i] = q.reg.base + q.offset + i
	}
	return out
}

func (q Qubits) String() string {
	if q.reg == nil {
		return "<nil>"
	}
	if q.offset == 0 && q.width == q.reg.size {
		return q.reg.name
	}
	if q.width == 1 {
		return q.reg.name + "[" + strconv.Itoa(q.offset) + "]"
	}
	return fmt.Sprintf("%s[%d:%d]", q.reg.name, q.offset, q.offset+q.width-1)
}
