// Package wasmgen assembles small core WebAssembly modules.
//
// It covers the subset needed to package circuit definitions as plugins:
// function imports, function bodies built from straight-line instruction
// sequences, and function exports. Modules are produced in memory:
//
//	m := wasmgen.New()
//	qalloc := m.Import("qasm", "qalloc", wasmgen.Sig([]wasmgen.ValType{wasmgen.I32}, wasmgen.I32))
//	body := wasmgen.NewCode().I32Const(4).Call(qalloc).Drop()
//	entry := m.Func(wasmgen.Sig([]wasmgen.ValType{wasmgen.I32}), nil, body)
//	m.Export("qasm_circuit", entry)
//	bin := m.Encode()
//
// All imports must be declared before the first Func, because imported
// functions occupy the low end of the function index space.
package wasmgen
