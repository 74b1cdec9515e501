package sim

import (
	"context"
	"slices"
	"strings"

	"github.com/wippyai/qcircuit/errors"
	"github.com/wippyai/qcircuit/qasm"
)

// Counts maps outcome strings to the number of shots that produced them.
type Counts map[string]int

// Keys returns the observed outcomes, most frequent first.
func (c Counts) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c[a] != c[b] {
			return c[b] - c[a]
		}
		return strings.Compare(a, b)
	})
	return keys
}

// Total returns the number of shots.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Format renders an outcome highest clbit first, the way OpenQASM prints a
// bit register.
func Format(outcome []byte) string {
	var sb strings.Builder
	sb.Grow(len(outcome))
	for i := len(outcome) - 1; i >= 0; i-- {
		if outcome[i] != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Sample executes p shots times and tallies the outcomes.
func (s *Simulator) Sample(ctx context.Context, p *qasm.Program, shots int) (Counts, error) {
	if shots < 1 {
		return nil, errors.New(errors.PhaseExecute, errors.KindInvalidInput).
			Module(p.Name).
			Value(shots).
			Detail("shots must be positive").
			Build()
	}
	counts := make(Counts)
	for i := 0; i < shots; i++ {
		out, err := s.Execute(ctx, p)
		if err != nil {
			return nil, err
		}
		counts[Format(out)]++
	}
	return counts, nil
}
