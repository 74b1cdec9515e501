package wasmgen

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ValType is a core wasm value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

func (t ValType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return fmt.Sprintf("valtype(0x%02x)", byte(t))
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Sig builds a FuncType from params and results.
func Sig(params []ValType, results ...ValType) FuncType {
	return FuncType{Params: params, Results: results}
}

func (ft FuncType) key() string {
	return string(valBytes(ft.Params)) + "|" + string(valBytes(ft.Results))
}

func valBytes(ts []ValType) []byte {
	b := make([]byte, len(ts))
	for i, t := range ts {
		b[i] = byte(t)
	}
	return b
}

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionExport   = 7
	sectionCode     = 10

	kindFunc = 0x00
)

type importEntry struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	locals  []ValType
	code    *Code
}

type export struct {
	name string
	fn   uint32
}

// Module accumulates the sections of a core module.
type Module struct {
	types   []FuncType
	typeIdx map[string]uint32
	imports []importEntry
	funcs   []function
	exports []export
}

// New creates an empty module.
func New() *Module {
	return &Module{typeIdx: make(map[string]uint32)}
}

func (m *Module) typeOf(ft FuncType) uint32 {
	k := ft.key()
	if idx, ok := m.typeIdx[k]; ok {
		return idx
	}
	idx := uint32(len(m.types))
	m.types = append(m.types, ft)
	m.typeIdx[k] = idx
	return idx
}

// Import declares a function import and returns its function index.
// It panics when called after Func.
func (m *Module) Import(module, name string, ft FuncType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmgen: imports must be declared before functions")
	}
	m.imports = append(m.imports, importEntry{module: module, name: name, typeIdx: m.typeOf(ft)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function with the given extra locals and body. The body is
// terminated automatically. It returns the function index.
func (m *Module) Func(ft FuncType, locals []ValType, body *Code) uint32 {
	m.funcs = append(m.funcs, function{typeIdx: m.typeOf(ft), locals: locals, code: body})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Export exports function fn under name.
func (m *Module) Export(name string, fn uint32) {
	m.exports = append(m.exports, export{name: name, fn: fn})
}

// Encode renders the module in the binary format.
func (m *Module) Encode() []byte {
	var w bytes.Buffer
	w.Write([]byte{0x00, 0x61, 0x73, 0x6d})
	_ = binary.Write(&w, binary.LittleEndian, uint32(1))

	if len(m.types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.types)))
		for _, ft := range m.types {
			sec.WriteByte(0x60)
			writeValTypes(&sec, ft.Params)
			writeValTypes(&sec, ft.Results)
		}
		writeSection(&w, sectionType, sec.Bytes())
	}

	if len(m.imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.imports)))
		for _, imp := range m.imports {
			writeName(&sec, imp.module)
			writeName(&sec, imp.name)
			sec.WriteByte(kindFunc)
			writeU32(&sec, imp.typeIdx)
		}
		writeSection(&w, sectionImport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			writeU32(&sec, f.typeIdx)
		}
		writeSection(&w, sectionFunction, sec.Bytes())
	}

	if len(m.exports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.exports)))
		for _, e := range m.exports {
			writeName(&sec, e.name)
			sec.WriteByte(kindFunc)
			writeU32(&sec, e.fn)
		}
		writeSection(&w, sectionExport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body bytes.Buffer
			writeLocals(&body, f.locals)
			if f.code != nil {
				body.Write(f.code.buf.Bytes())
			}
			body.WriteByte(opEnd)
			writeU32(&sec, uint32(body.Len()))
			sec.Write(body.Bytes())
		}
		writeSection(&w, sectionCode, sec.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(data)))
	w.Write(data)
}

func writeValTypes(w *bytes.Buffer, types []ValType) {
	writeU32(w, uint32(len(types)))
	for _, t := range types {
		w.WriteByte(byte(t))
	}
}

// writeLocals groups runs of equal types the way the code section expects.
func writeLocals(w *bytes.Buffer, locals []ValType) {
	type group struct {
		n uint32
		t ValType
	}
	var groups []group
	for _, t := range locals {
		if len(groups) > 0 && groups[len(groups)-1].t == t {
			groups[len(groups)-1].n++
			continue
		}
		groups = append(groups, group{n: 1, t: t})
	}
	writeU32(w, uint32(len(groups)))
	for _, g := range groups {
		writeU32(w, g.n)
		w.WriteByte(byte(g.t))
	}
}
