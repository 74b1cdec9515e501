package qasm

import (
	"fmt"
	"strconv"
	"strings"
)

// QASM renders the program as OpenQASM 3 source.
func (p *Program) QASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 3.0;\n")
	sb.WriteString("include \"stdgates.inc\";\n\n")

	qubitName := make([]string, p.NumQubits)
	for _, r := range p.Registers {
		if r.Quantum {
			fmt.Fprintf(&sb, "qubit[%d] %s;\n", r.Width, r.Name)
			for i := 0; i < r.Width; i++ {
				qubitName[r.Base+i] = r.Name + "[" + strconv.Itoa(i) + "]"
			}
		} else {
			fmt.Fprintf(&sb, "bit[%d] %s;\n", r.Width, r.Name)
		}
	}
	sb.WriteString("\n")

	operands := func(qs []int) string {
		names := make([]string, len(qs))
		for i, q := range qs {
			names[i] = qubitName[q]
		}
		return strings.Join(names, ", ")
	}

	for _, in := range p.Instructions {
		switch in.Op {
		case GateMeasure:
			ref := p.Clbits[in.Clbits[0]]
			fmt.Fprintf(&sb, "%s[%d] = measure %s;\n", ref.Register, ref.Pos, qubitName[in.Qubits[0]])
		case GateReset:
			fmt.Fprintf(&sb, "reset %s;\n", operands(in.Qubits))
		case GateBarrier:
			// An operand-free barrier spans every qubit.
			if len(in.Qubits) == 0 {
				sb.WriteString("barrier;\n")
				continue
			}
			fmt.Fprintf(&sb, "barrier %s;\n", operands(in.Qubits))
		default:
			sb.WriteString(in.Op)
			if len(in.Params) > 0 {
				ps := make([]string, len(in.Params))
				for i, v := range in.Params {
					ps[i] = strconv.FormatFloat(v, 'g', -1, 64)
				}
				sb.WriteString("(" + strings.Join(ps, ", ") + ")")
			}
			fmt.Fprintf(&sb, " %s;\n", operands(in.Qubits))
		}
	}
	return sb.String()
}

// QASM renders the instructions recorded so far as OpenQASM 3 source.
func (c *Circuit) QASM() string {
	return c.Program().QASM()
}
