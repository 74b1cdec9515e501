// Package plugin loads circuit modules and drives them for a host.
//
// A circuit module is anything that yields a qasm.Module from a factory.
// Two loaders are provided:
//
//	Registry    - build-time table of named native factories
//	WasmLoader  - dynamic loading of core WebAssembly modules on wazero
//
// Both produce an Instance, which the host owns. The entry method of an
// Instance runs at most once and the Instance must be released exactly once.
//
// # Resolution
//
// Every gate a module depends on is resolved against the host's gate
// library when the module is loaded, never when it runs. Native modules
// declare their dependencies through qasm.Requirer. Wasm modules declare
// them as function imports from the "qasm" namespace; an import the host
// cannot satisfy fails the load with a *errors.MissingImportsError.
//
// # Wasm ABI
//
// A wasm circuit module exports:
//
//	qasm_abi_version: func() -> u32     packed major<<16 | minor<<8 | patch
//	qasm_constructor: func() -> u32     factory; returns the instance handle
//	qasm_circuit:     func(self: u32)   entry method
//	qasm_release:     func(self: u32)   optional destructor
//
// and may import the host functions described by HostABI plus one function
// per library gate, taking the gate's qubit handles as u32 followed by its
// angles as f64. Register handles are indices into a table that lives for
// one entry invocation.
//
// # Thread Safety
//
// Registry and WasmLoader are safe for concurrent use. Instance is not.
package plugin
