package wasmgen

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestLEB128(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*bytes.Buffer)
		want []byte
	}{
		{"u32 zero", func(b *bytes.Buffer) { writeU32(b, 0) }, []byte{0x00}},
		{"u32 127", func(b *bytes.Buffer) { writeU32(b, 127) }, []byte{0x7f}},
		{"u32 128", func(b *bytes.Buffer) { writeU32(b, 128) }, []byte{0x80, 0x01}},
		{"u32 624485", func(b *bytes.Buffer) { writeU32(b, 624485) }, []byte{0xe5, 0x8e, 0x26}},
		{"s32 -1", func(b *bytes.Buffer) { writeS32(b, -1) }, []byte{0x7f}},
		{"s32 63", func(b *bytes.Buffer) { writeS32(b, 63) }, []byte{0x3f}},
		{"s32 64", func(b *bytes.Buffer) { writeS32(b, 64) }, []byte{0xc0, 0x00}},
		{"s32 -123456", func(b *bytes.Buffer) { writeS32(b, -123456) }, []byte{0xc0, 0xbb, 0x78}},
		{"name", func(b *bytes.Buffer) { writeName(b, "qasm") }, []byte{0x04, 'q', 'a', 's', 'm'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			tt.fn(&b)
			assert.Equal(t, tt.want, b.Bytes())
		})
	}
}

func TestEmptyModule(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, New().Encode())
}

func TestTypesAreShared(t *testing.T) {
	m := New()
	unary := Sig([]ValType{I32}, I32)
	m.Import("env", "a", unary)
	m.Import("env", "b", unary)
	m.Import("env", "c", Sig(nil))
	assert.Len(t, m.types, 2)
}

func TestImportAfterFuncPanics(t *testing.T) {
	m := New()
	m.Func(Sig(nil), nil, nil)
	assert.Panics(t, func() { m.Import("env", "late", Sig(nil)) })
}

func TestCompilesAndRuns(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	var seen []float64
	_, err := r.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			seen = append(seen, api.DecodeF64(stack[0]))
			stack[0] = uint64(len(seen))
		}), []api.ValueType{api.ValueTypeF64}, []api.ValueType{api.ValueTypeI32}).
		Export("record").
		Instantiate(ctx)
	require.NoError(t, err)

	m := New()
	record := m.Import("env", "record", Sig([]ValType{F64}, I32))
	body := NewCode().
		F64Const(0.5).Call(record).Drop().
		LocalGet(0).I32Const(-2).I32Add().LocalSet(1).
		F64Const(-1.25).Call(record).
		LocalGet(1).I32Add()
	fn := m.Func(Sig([]ValType{I32}, I32), []ValType{I32}, body)
	m.Export("run", fn)

	mod, err := r.Instantiate(ctx, m.Encode())
	require.NoError(t, err)

	res, err := mod.ExportedFunction("run").Call(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2+8), res[0])
	assert.Equal(t, []float64{0.5, -1.25}, seen)
}

func TestValTypeString(t *testing.T) {
	assert.Equal(t, "f64", F64.String())
	assert.Equal(t, "i32", I32.String())
	assert.Equal(t, "valtype(0x01)", ValType(1).String())
}
