package qasm

import (
	"strconv"

	"github.com/wippyai/qcircuit/errors"
)

// MaxUintWidth is the widest Uint supported.
const MaxUintWidth = 64

// Uint is a fixed-width unsigned integer. All arithmetic wraps modulo 2^W.
// The zero value has width 0 and faults on every bit access; use NewUint.
type Uint struct {
	width int
	value uint64
}

func mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(width) - 1
}

func checkUintWidth(width int) {
	if width < 1 || width > MaxUintWidth {
		raise(errors.AllocationFailed("uint", width))
	}
}

// NewUint creates a width-bit integer from v, truncating the high bits.
func NewUint(width int, v uint64) Uint {
	checkUintWidth(width)
	return Uint{width: width, value: v & mask(width)}
}

func (u Uint) Width() int { return u.width }

func (u Uint) Value() uint64 { return u.value }

// Int converts to a plain int for loop bounds and conditions.
func (u Uint) Int() int { return int(u.value) }

// Bool reports whether the value is non-zero.
func (u Uint) Bool() bool { return u.value != 0 }

// Bit returns bit i (0 or 1). It faults when i is outside [0, width).
func (u Uint) Bit(i int) int {
	if i < 0 || i >= u.width {
		raise(errors.OutOfBounds(errors.PhaseCircuit, []string{"uint"}, i, u.width))
	}
	return int(u.value>>uint(i)) & 1
}

// BitAt is the checked form of Bit.
func (u Uint) BitAt(i int) (int, error) {
	if i < 0 || i >= u.width {
		return 0, errors.OutOfBounds(errors.PhaseCircuit, []string{"uint"}, i, u.width)
	}
	return int(u.value>>uint(i)) & 1, nil
}

// Add returns u+n modulo 2^W. Negative n subtracts.
func (u Uint) Add(n int) Uint {
	return Uint{width: u.width, value: (u.value + uint64(n)) & mask(u.width)}
}

// AddUint returns n+u modulo 2^W, the mirror of u.Add(n).
func AddUint(n int, u Uint) Uint {
	return u.Add(n)
}

// Sub returns u-n modulo 2^W.
func (u Uint) Sub(n int) Uint {
	return Uint{width: u.width, value: (u.value - uint64(n)) & mask(u.width)}
}

// Mul returns u*n modulo 2^W.
func (u Uint) Mul(n int) Uint {
	return Uint{width: u.width, value: (u.value * uint64(n)) & mask(u.width)}
}

// Plus adds two sized integers; the result has the wider of the two widths.
func (u Uint) Plus(v Uint) Uint {
	w := max(u.width, v.width)
	checkUintWidth(w)
	return Uint{width: w, value: (u.value + v.value) & mask(w)}
}

// Resize zero-extends or truncates u to width.
func (u Uint) Resize(width int) Uint {
	return NewUint(width, u.value)
}

// Bits returns the value as a bit vector of the same width.
func (u Uint) Bits() *Bits {
	return BitsFrom(u.width, u.value)
}

func (u Uint) String() string {
	return strconv.FormatUint(u.value, 10)
}
