package qasm

import (
	"fmt"
	"iter"
	"math"

	"github.com/wippyai/qcircuit/errors"
)

// SliceRange is a finite arithmetic index sequence. A range whose step
// points away from its stop is empty rather than invalid.
type SliceRange struct {
	start     int
	stop      int
	step      int
	inclusive bool
}

// Slice returns the ascending closed range [a, b].
func Slice(a, b int) SliceRange {
	return SliceRange{start: a, stop: b, step: 1, inclusive: true}
}

// SliceStep returns the OpenQASM range start:step:stop, closed at stop.
// SliceStep(2, -1, 0) yields 2, 1, 0.
func SliceStep(start, step, stop int) SliceRange {
	checkStep(step)
	return SliceRange{start: start, stop: stop, step: step, inclusive: true}
}

// Range returns the half-open range from start up to but excluding stop.
// Range(2, -1, -1) yields 2, 1, 0.
func Range(start, stop, step int) SliceRange {
	checkStep(step)
	return SliceRange{start: start, stop: stop, step: step}
}

func checkStep(step int) {
	if step == 0 {
		raise(errors.New(errors.PhaseCircuit, errors.KindInvalidRange).
			Detail("slice step must be non-zero").
			Build())
	}
}

func (r SliceRange) Start() int { return r.start }

func (r SliceRange) Step() int { return r.step }

// last returns the final reachable bound of the range, inclusive.
func (r SliceRange) last() int {
	if r.inclusive {
		return r.stop
	}
	if r.step > 0 {
		return r.stop - 1
	}
	return r.stop + 1
}

// Len returns the number of indices the range produces. A range with more
// indices than an int can count faults with KindInvalidRange.
func (r SliceRange) Len() int {
	if r.step == 0 || r.empty() {
		return 0
	}
	last := r.last()
	// Differences are taken in uint64 so extreme bounds cannot overflow.
	var span, step uint64
	if r.step > 0 {
		span, step = uint64(last)-uint64(r.start), uint64(r.step)
	} else {
		span, step = uint64(r.start)-uint64(last), -uint64(r.step)
	}
	if span/step >= math.MaxInt {
		raise(errors.New(errors.PhaseCircuit, errors.KindInvalidRange).
			Detail("range %d:%d:%d has more than %d indices", r.start, r.step, last, math.MaxInt).
			Build())
	}
	return int(span/step + 1)
}

// empty reports whether the step points away from the stop.
func (r SliceRange) empty() bool {
	switch {
	case r.inclusive && r.step > 0:
		return r.start > r.stop
	case r.inclusive:
		return r.start < r.stop
	case r.step > 0:
		return r.start >= r.stop
	default:
		return r.start <= r.stop
	}
}

// All returns the index sequence for use with range-over-func.
func (r SliceRange) All() iter.Seq[int] {
	n := r.Len()
	return func(yield func(int) bool) {
		for k := 0; k < n; k++ {
			if !yield(r.start + k*r.step) {
				return
			}
		}
	}
}

// Values materialises the sequence.
func (r SliceRange) Values() []int {
	out := make([]int, 0, r.Len())
	for i := range r.All() {
		out = append(out, i)
	}
	return out
}

// Contiguous reports the lowest index and length when the range covers a
// run of adjacent ascending indices.
func (r SliceRange) Contiguous() (lo, n int, ok bool) {
	n = r.Len()
	if n == 0 {
		return r.start, 0, false
	}
	if n == 1 || r.step == 1 {
		return r.start, n, true
	}
	return 0, 0, false
}

// String renders the range in OpenQASM start:step:stop form with a closed stop.
func (r SliceRange) String() string {
	n := r.Len()
	if n == 0 {
		return fmt.Sprintf("%d:%d:%d", r.start, r.step, r.last())
	}
	end := r.start + (n-1)*r.step
	if r.step == 1 {
		return fmt.Sprintf("%d:%d", r.start, end)
	}
	return fmt.Sprintf("%d:%d:%d", r.start, r.step, end)
}
