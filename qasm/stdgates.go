package qasm

// Primitive gate names. These are the instruction set a Backend executes.
const (
	GateH       = "h"
	GateX       = "x"
	GateS       = "s"
	GateReset   = "reset"
	GateCX      = "cx"
	GateCCX     = "ccx"
	GateRY      = "ry"
	GateCPhase  = "cphase"
	GateMeasure = "measure"
	GateBarrier = "barrier"
)

// Composite gate names defined by StdLibrary.
const (
	GateMajority = "majority"
	GateUnmaj    = "unmaj"
)

func primitives() []GateDef {
	return []GateDef{
		{Name: GateH, Qubits: 1, Broadcast: true},
		{Name: GateX, Qubits: 1, Broadcast: true},
		{Name: GateS, Qubits: 1, Broadcast: true},
		{Name: GateReset, Qubits: 1, Broadcast: true},
		{Name: GateMeasure, Qubits: 1, Broadcast: true},
		{Name: GateRY, Qubits: 1, Params: 1, Broadcast: true},
		{Name: GateCX, Qubits: 2, Broadcast: true},
		{Name: GateCPhase, Qubits: 2, Params: 1},
		{Name: GateCCX, Qubits: 3},
	}
}

// majority computes the carry of a, b, c into c (Cuccaro ripple-carry adder).
func majority(c *Circuit, q []Qubits, _ []float64) {
	c.CX(q[2], q[1])
	c.CX(q[2], q[0])
	c.CCX(q[0], q[1], q[2])
}

// unmaj undoes majority and leaves the sum bit in b.
func unmaj(c *Circuit, q []Qubits, _ []float64) {
	c.CCX(q[0], q[1], q[2])
	c.CX(q[2], q[0])
	c.CX(q[0], q[1])
}

// PrimitiveLibrary returns a library holding only the primitive gates.
func PrimitiveLibrary() *Library {
	return NewLibrary(primitives()...)
}

// StdLibrary returns the primitives plus the majority and unmaj composites.
func StdLibrary() *Library {
	defs := append(primitives(),
		GateDef{Name: GateMajority, Qubits: 3, Body: majority},
		GateDef{Name: GateUnmaj, Qubits: 3, Body: unmaj},
	)
	return NewLibrary(defs...)
}
