package wasmgen

import (
	"bytes"
	"encoding/binary"
	"math"
)

const (
	opUnreachable = 0x00
	opEnd         = 0x0b
	opReturn      = 0x0f
	opCall        = 0x10
	opDrop        = 0x1a
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opLocalTee    = 0x22
	opI32Const    = 0x41
	opI64Const    = 0x42
	opF64Const    = 0x44
	opI32Add      = 0x6a
)

// Code is a straight-line instruction sequence. Methods append one
// instruction and return the receiver for chaining.
type Code struct {
	buf bytes.Buffer
}

// NewCode returns an empty instruction sequence.
func NewCode() *Code { return &Code{} }

// Len returns the encoded size in bytes.
func (c *Code) Len() int { return c.buf.Len() }

func (c *Code) Unreachable() *Code {
	c.buf.WriteByte(opUnreachable)
	return c
}

func (c *Code) Return() *Code {
	c.buf.WriteByte(opReturn)
	return c
}

func (c *Code) Call(fn uint32) *Code {
	c.buf.WriteByte(opCall)
	writeU32(&c.buf, fn)
	return c
}

func (c *Code) Drop() *Code {
	c.buf.WriteByte(opDrop)
	return c
}

func (c *Code) LocalGet(i uint32) *Code {
	c.buf.WriteByte(opLocalGet)
	writeU32(&c.buf, i)
	return c
}

func (c *Code) LocalSet(i uint32) *Code {
	c.buf.WriteByte(opLocalSet)
	writeU32(&c.buf, i)
	return c
}

func (c *Code) LocalTee(i uint32) *Code {
	c.buf.WriteByte(opLocalTee)
	writeU32(&c.buf, i)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.buf.WriteByte(opI32Const)
	writeS32(&c.buf, v)
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.buf.WriteByte(opI64Const)
	writeS64(&c.buf, v)
	return c
}

func (c *Code) F64Const(v float64) *Code {
	c.buf.WriteByte(opF64Const)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	c.buf.Write(b[:])
	return c
}

func (c *Code) I32Add() *Code {
	c.buf.WriteByte(opI32Add)
	return c
}
