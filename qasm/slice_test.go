package qasm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wippyai/qcircuit/errors"
)

func TestSliceRanges(t *testing.T) {
	tests := []struct {
		name string
		r    SliceRange
		want []int
		str  string
	}{
		{"closed ascending", Slice(0, 3), []int{0, 1, 2, 3}, "0:3"},
		{"single", Slice(5, 5), []int{5}, "5:5"},
		{"inverted is empty", Slice(3, 1), []int{}, "3:1:1"},
		{"qasm descending", SliceStep(2, -1, 0), []int{2, 1, 0}, "2:-1:0"},
		{"qasm stepped", SliceStep(0, 2, 7), []int{0, 2, 4, 6}, "0:2:6"},
		{"half-open descending", Range(2, -1, -1), []int{2, 1, 0}, "2:-1:0"},
		{"half-open ascending", Range(0, 4, 1), []int{0, 1, 2, 3}, "0:3"},
		{"half-open empty", Range(3, 3, 1), []int{}, "3:1:2"},
		{"direction mismatch", Range(0, 5, -1), []int{}, "0:-1:6"},
		{"descending stepped", Range(9, 0, -4), []int{9, 5, 1}, "9:-4:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Values())
			assert.Equal(t, len(tt.want), tt.r.Len())
			assert.Equal(t, tt.str, tt.r.String())
		})
	}
}

func TestSliceAscendingProperty(t *testing.T) {
	for a := -3; a < 6; a++ {
		for b := a; b < 8; b++ {
			got := Slice(a, b).Values()
			if len(got) != b-a+1 {
				t.Fatalf("Slice(%d, %d) has %d elements", a, b, len(got))
			}
			for k, v := range got {
				if v != a+k {
					t.Fatalf("Slice(%d, %d)[%d] = %d", a, b, k, v)
				}
			}
		}
	}
}

func TestSliceIteration(t *testing.T) {
	r := SliceStep(4, -2, 0)

	var got []int
	for i := range r.All() {
		got = append(got, i)
		if i == 2 {
			break
		}
	}
	assert.Equal(t, []int{4, 2}, got)

	// A range value can be walked again from the start.
	assert.Equal(t, []int{4, 2, 0}, r.Values())
	assert.Equal(t, 4, r.Start())
	assert.Equal(t, -2, r.Step())
}

func TestSliceContiguous(t *testing.T) {
	lo, n, ok := Slice(2, 5).Contiguous()
	assert.True(t, ok)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 4, n)

	lo, n, ok = SliceStep(3, -1, 3).Contiguous()
	assert.True(t, ok)
	assert.Equal(t, 3, lo)
	assert.Equal(t, 1, n)

	_, _, ok = SliceStep(0, 2, 4).Contiguous()
	assert.False(t, ok)
	_, _, ok = Slice(4, 2).Contiguous()
	assert.False(t, ok)
}

func TestSliceZeroStep(t *testing.T) {
	requireFault(t, errors.KindInvalidRange, func() { SliceStep(0, 0, 3) })
	requireFault(t, errors.KindInvalidRange, func() { Range(0, 3, 0) })
}

func TestSliceExtremeBounds(t *testing.T) {
	tests := []struct {
		name string
		r    SliceRange
		want int
	}{
		{"max span", Slice(0, math.MaxInt-1), math.MaxInt},
		{"negative start", Slice(-5, 5), 11},
		{"min step", SliceStep(math.MaxInt, math.MinInt, -1), 2},
		{"half-open at min", Range(0, math.MinInt, 1), 0},
		{"half-open descending to min", Range(math.MinInt+2, math.MinInt, -1), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Len())
		})
	}

	requireFault(t, errors.KindInvalidRange, func() { Slice(0, math.MaxInt).Len() })
	requireFault(t, errors.KindInvalidRange, func() { Slice(math.MinInt, math.MaxInt).Len() })
	requireFault(t, errors.KindInvalidRange, func() { SliceStep(math.MaxInt, -1, math.MinInt).Len() })
}
