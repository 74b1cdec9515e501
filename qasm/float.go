package qasm

import (
	"math"
	"strconv"

	"github.com/wippyai/qcircuit/errors"
)

// Float is a fixed-width floating value, used for rotation angles.
// Supported widths are 16 (IEEE half), 32 and 64.
type Float struct {
	width int
	value float64
}

// NewFloat rounds v to the precision of a width-bit float.
func NewFloat(width int, v float64) Float {
	switch width {
	case 64:
	case 32:
		v = float64(float32(v))
	case 16:
		v = roundHalf(v)
	default:
		raise(errors.AllocationFailed("float", width))
	}
	return Float{width: width, value: v}
}

// F64 is shorthand for NewFloat(64, v).
func F64(v float64) Float {
	return Float{width: 64, value: v}
}

func (f Float) Width() int { return f.width }

func (f Float) Value() float64 { return f.value }

func (f Float) String() string {
	return strconv.FormatFloat(f.value, 'g', -1, 64)
}

const (
	halfMax        = 65504
	halfMinExp     = -14 // smallest normal exponent
	halfMantissa   = 10
	halfSubnormalQ = 1.0 / (1 << 24) // 2^-24
)

// roundHalf rounds v to the nearest binary16 value, ties to even.
func roundHalf(v float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	_, exp := math.Frexp(v) // |v| = frac * 2^exp, frac in [0.5, 1)
	var q float64
	if exp-1 < halfMinExp {
		q = halfSubnormalQ
	} else {
		q = math.Ldexp(1, exp-1-halfMantissa)
	}
	r := math.RoundToEven(v/q) * q
	if math.Abs(r) > halfMax {
		return math.Inf(int(math.Copysign(1, v)))
	}
	return r
}
