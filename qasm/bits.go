package qasm

import (
	"strings"

	"github.com/wippyai/qcircuit/errors"
)

// Bits is a fixed-width classical bit vector. It is the only storage that
// measurement results can be written into.
type Bits struct {
	// owner is the circuit the vector is registered with, if any.
	owner *Circuit
	name  string
	words []uint64
	width int
}

// NewBits creates a zeroed bit vector of the given width.
func NewBits(width int) *Bits {
	if width < 1 {
		raise(errors.AllocationFailed("bit vector", width))
	}
	return &Bits{
		width: width,
		words: make([]uint64, (width+63)/64),
	}
}

// BitsFrom creates a width-bit vector holding the low bits of v.
func BitsFrom(width int, v uint64) *Bits {
	b := NewBits(width)
	b.words[0] = v & mask(min(width, 64))
	return b
}

// ParseBits parses an OpenQASM bit string literal, most significant bit
// first ("0101" has bit 0 and bit 2 set). Underscores are ignored.
func ParseBits(s string) (*Bits, error) {
	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return nil, errors.InvalidInput(errors.PhaseValidate, "empty bit string")
	}
	b := &Bits{width: len(s), words: make([]uint64, (len(s)+63)/64)}
	for i := 0; i < len(s); i++ {
		pos := len(s) - 1 - i
		switch s[i] {
		case '0':
		case '1':
			b.words[pos/64] |= 1 << uint(pos%64)
		default:
			return nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Value(s).
				Detail("invalid bit %q at offset %d", s[i], i).
				Build()
		}
	}
	return b, nil
}

func (b *Bits) Width() int { return b.width }

// Name returns the register name given by Clalloc, or "".
func (b *Bits) Name() string { return b.name }

func (b *Bits) check(i int) *errors.Error {
	if i < 0 || i >= b.width {
		path := []string{"bits"}
		if b.name != "" {
			path = []string{b.name}
		}
		return errors.OutOfBounds(errors.PhaseCircuit, path, i, b.width)
	}
	return nil
}

// Bit returns bit i (0 or 1). It faults when i is outside [0, width).
func (b *Bits) Bit(i int) int {
	if err := b.check(i); err != nil {
		raise(err)
	}
	return int(b.words[i/64]>>uint(i%64)) & 1
}

// BitAt is the checked form of Bit.
func (b *Bits) BitAt(i int) (int, error) {
	if err := b.check(i); err != nil {
		return 0, err
	}
	return int(b.words[i/64]>>uint(i%64)) & 1, nil
}

// SetBit sets bit i to v (any non-zero v is 1); all other bits are retained.
func (b *Bits) SetBit(i, v int) {
	if err := b.check(i); err != nil {
		raise(err)
	}
	b.set(i, v)
}

func (b *Bits) set(i, v int) {
	if v != 0 {
		b.words[i/64] |= 1 << uint(i%64)
	} else {
		b.words[i/64] &^= 1 << uint(i%64)
	}
}

// Assign writes src into the positions selected by r, in range order: the
// k-th position of r receives bit k of src. Positions outside r are left
// unchanged. The range length must equal src's width.
func (b *Bits) Assign(r SliceRange, src *Bits) {
	if n := r.Len(); n != src.width {
		raise(errors.WidthMismatch(errors.PhaseCircuit, "assign", n, src.width))
	}
	positions := r.Values()
	for _, p := range positions {
		if err := b.check(p); err != nil {
			raise(err)
		}
	}
	if src == b {
		src = src.Clone()
	}
	for k, p := range positions {
		b.set(p, src.Bit(k))
	}
}

// Set copies src into b. Widths must match.
func (b *Bits) Set(src *Bits) {
	if src.width != b.width {
		raise(errors.WidthMismatch(errors.PhaseCircuit, "assign", b.width, src.width))
	}
	copy(b.words, src.words)
}

// Uint converts the vector to a Uint of the same width (at most 64 bits).
func (b *Bits) Uint() Uint {
	checkUintWidth(b.width)
	return Uint{width: b.width, value: b.words[0] & mask(b.width)}
}

// OnesCount returns the number of set bits.
func (b *Bits) OnesCount() int {
	n := 0
	for i := 0; i < b.width; i++ {
		n += int(b.words[i/64]>>uint(i%64)) & 1
	}
	return n
}

// Equal reports whether b and o have the same width and contents.
func (b *Bits) Equal(o *Bits) bool {
	if b.width != o.width {
		return false
	}
	for i := range b.words {
		if b.words[i] != o.words[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (b *Bits) Clone() *Bits {
	c := &Bits{name: b.name, width: b.width, words: make([]uint64, len(b.words))}
	copy(c.words, b.words)
	return c
}

// String renders the vector most significant bit first.
func (b *Bits) String() string {
	var sb strings.Builder
	sb.Grow(b.width)
	for i := b.width - 1; i >= 0; i-- {
		if b.words[i/64]>>uint(i%64)&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
