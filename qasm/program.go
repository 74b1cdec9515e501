package qasm

import (
	"context"
	"sort"
)

// Instruction is one primitive operation on absolute qubit indices.
// Measure instructions also name the classical bits they write.
type Instruction struct {
	Op     string    `msgpack:"op" json:"op"`
	Qubits []int     `msgpack:"qubits" json:"qubits"`
	Params []float64 `msgpack:"params,omitempty" json:"params,omitempty"`
	Clbits []int     `msgpack:"clbits,omitempty" json:"clbits,omitempty"`
}

// RegisterInfo describes a quantum or classical register of a program.
// Base is the absolute index of the register's first qubit or clbit.
type RegisterInfo struct {
	Name    string `msgpack:"name" json:"name"`
	Base    int    `msgpack:"base" json:"base"`
	Width   int    `msgpack:"width" json:"width"`
	Quantum bool   `msgpack:"quantum" json:"quantum"`
}

// ClbitRef locates a flat classical bit inside a named classical register.
type ClbitRef struct {
	Register string `msgpack:"register" json:"register"`
	Pos      int    `msgpack:"pos" json:"pos"`
}

// Program is a completely constructed circuit, ready for a Backend.
type Program struct {
	Name         string         `msgpack:"name" json:"name"`
	Registers    []RegisterInfo `msgpack:"registers" json:"registers"`
	Clbits       []ClbitRef     `msgpack:"clbits" json:"clbits"`
	Instructions []Instruction  `msgpack:"instructions" json:"instructions"`
	NumQubits    int            `msgpack:"num_qubits" json:"num_qubits"`
}

// NumClbits returns the number of classical bits measurements write.
func (p *Program) NumClbits() int { return len(p.Clbits) }

// Counts returns the number of instructions per operation.
func (p *Program) Counts() map[string]int {
	out := make(map[string]int)
	for _, in := range p.Instructions {
		out[in.Op]++
	}
	return out
}

// Ops returns the distinct operations used, sorted.
func (p *Program) Ops() []string {
	counts := p.Counts()
	out := make([]string, 0, len(counts))
	for op := range counts {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// Backend executes a complete program. It returns one byte (0 or 1) per
// classical bit of the program.
type Backend interface {
	Execute(ctx context.Context, p *Program) ([]byte, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, p *Program) ([]byte, error)

func (f BackendFunc) Execute(ctx context.Context, p *Program) ([]byte, error) {
	return f(ctx, p)
}
