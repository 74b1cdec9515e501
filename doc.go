// Package qcircuit describes quantum circuits as ordinary Go code and hosts
// circuit modules as native plugins or WebAssembly guests.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	qcircuit/
//	├── qasm/            Circuit DSL: sized values, qubit handles, slices, gates
//	├── sim/             State-vector backend used to execute programs
//	├── plugin/          Module registry, instances and the wasm loader
//	│   └── wasmgen/     Core wasm assembler for authoring guest modules
//	├── config/          YAML and environment configuration for qrun
//	├── errors/          Structured error types for debugging
//	├── examples/        Sample circuits (adder, GHZ, QFT, ansatz)
//	└── cmd/qrun/        Command line driver with an interactive browser
//
// # Quick Start
//
// Describe a circuit with a module and run it:
//
//	type bell struct{ out *qasm.Bits }
//
//	func (b *bell) Circuit(c *qasm.Circuit) error {
//	    q := c.Qalloc(2)
//	    c.H(q.At(0))
//	    c.CX(q.At(0), q.At(1))
//	    b.out = c.Measure(q)
//	    return nil
//	}
//
//	m := &bell{}
//	_, err := qasm.Run(ctx, m, sim.New())
//	fmt.Println(m.out) // "00" or "11"
//
// # Plugins
//
// Native modules register a factory from an init function:
//
//	func init() {
//	    plugin.MustRegister("bell", func() qasm.Module { return &bell{} })
//	}
//
// Wasm modules import their operations from the "qasm" host namespace and
// export qasm_abi_version, qasm_constructor and qasm_circuit:
//
//	loader, err := plugin.NewWasmLoader(ctx, nil)
//	inst, err := loader.Load(ctx, "bell", wasmBytes)
//	defer inst.Release(ctx)
//	res, err := inst.Run(ctx, sim.New())
//
// Every gate a module uses is resolved against the host's gate library when
// the module is loaded. A module that names an unknown gate fails to load;
// it never runs with the gate silently dropped.
//
// # Thread Safety
//
// Registry, WasmLoader and Dir are safe for concurrent use. A Circuit and the
// Instance that builds it are single-threaded.
package qcircuit
