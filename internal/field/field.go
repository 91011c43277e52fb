// Package field describes fixed-offset little-endian header fields and the
// tables that group them.
package field

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// UnknownFlag prefixes a flag value that has no registered name.
const UnknownFlag = "UNKNOWN FLAG MAPPING"

// TimeLayout renders Time fields.
const TimeLayout = "Mon Jan _2 15:04:05 2006 MST"

// Value is the set of widths a field can hold.
type Value interface {
	uint8 | uint16 | uint32 | uint64
}

// Lookup resolves a flag value of a field to its symbolic name.
type Lookup interface {
	Lookup(field string, value uint64) (string, bool)
}

// Descriptor is the static part of a field: where it lives and how it
// prints.
type Descriptor struct {
	Offset      uint64
	Description string
	Rules       Rules
}

// Valid reports whether the descriptor is usable for display.
func (d Descriptor) Valid() bool {
	return d.Description != ""
}

// Field is a decoded header field of any width. Only *Typed implements it.
type Field interface {
	Descriptor() Descriptor
	Size() int
	Uint64() uint64
	Decode(buf []byte, base uint64) error
	Render(flags Lookup, key string) string
	FlagLines(flags Lookup, key string) []string
	Validate() bool

	sealed()
}

// Typed is a field holding a value of width T.
type Typed[T Value] struct {
	desc  Descriptor
	value T
}

var _ Field = (*Typed[uint32])(nil)

// New builds a field with a zero value.
func New[T Value](offset uint64, description string, rules Rules) (*Typed[T], error) {
	if err := rules.Check(); err != nil {
		return nil, errors.Wrapf(err, "field %q", description)
	}
	return &Typed[T]{desc: Descriptor{Offset: offset, Description: description, Rules: rules}}, nil
}

// MustNew is like New but panics on an unsupported rule set. It is meant
// for static schemas.
func MustNew[T Value](offset uint64, description string, rules Rules) *Typed[T] {
	f, err := New[T](offset, description, rules)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Typed[T]) sealed() {}

func (f *Typed[T]) Descriptor() Descriptor { return f.desc }

// Value returns the last decoded value.
func (f *Typed[T]) Value() T { return f.value }

func (f *Typed[T]) Uint64() uint64 { return uint64(f.value) }

// Size returns the width of the field in bytes.
func (f *Typed[T]) Size() int {
	switch any(f.value).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	default:
		return 8
	}
}

// Decode reads the field from buf at base+Offset. The value is left
// untouched when the read does not fit.
func (f *Typed[T]) Decode(buf []byte, base uint64) error {
	size := uint64(f.Size())
	start := base + f.desc.Offset
	end := start + size
	if start < base || end < start || end > uint64(len(buf)) {
		return errors.Wrapf(ErrOutOfBounds, "%q at 0x%x+0x%x needs %d bytes, buffer has %d",
			f.desc.Description, base, f.desc.Offset, size, len(buf))
	}

	b := buf[start:end]
	switch size {
	case 1:
		f.value = T(b[0])
	case 2:
		f.value = T(binary.LittleEndian.Uint16(b))
	case 4:
		f.value = T(binary.LittleEndian.Uint32(b))
	default:
		f.value = T(binary.LittleEndian.Uint64(b))
	}
	return nil
}

// Render formats the value according to the field's rules. Hidden fields
// render as "". key selects the flag table for Flag fields.
func (f *Typed[T]) Render(flags Lookup, key string) string {
	rules := f.desc.Rules
	v := uint64(f.value)

	var sb strings.Builder
	switch {
	case rules.Has(Hex | Char):
		sb.WriteString(hexValue(v) + " (" + f.chars() + ")")
	case rules.Has(Dec | Hex):
		fmt.Fprintf(&sb, "%s (%d bytes)", hexValue(v), v)
	case rules.Has(Dec):
		sb.WriteString(strconv.FormatUint(v, 10) + " ")
	case rules.Has(Hex):
		sb.WriteString(hexValue(v))
	case rules.Has(Char):
		sb.WriteString(f.chars())
	}

	if rules.Has(Time) {
		sb.WriteString("(" + time.Unix(int64(v), 0).UTC().Format(TimeLayout) + ")")
	}

	if rules.Has(Flag) {
		if name, ok := lookup(flags, key, v); ok {
			sb.WriteString(" " + name)
		} else {
			fmt.Fprintf(&sb, " %s: 0x%x", UnknownFlag, v)
		}
	}
	return sb.String()
}

// FlagLines names every set bit of a Flags field, lowest bit first.
func (f *Typed[T]) FlagLines(flags Lookup, key string) []string {
	if !f.desc.Rules.Has(Flags) {
		return nil
	}

	var lines []string
	for _, bit := range setBits(f.value) {
		if name, ok := lookup(flags, key, uint64(bit)); ok {
			lines = append(lines, name)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: 0x%x", UnknownFlag, uint64(bit)))
	}
	return lines
}

// Validate reports whether the field can be displayed.
func (f *Typed[T]) Validate() bool {
	return f.desc.Valid()
}

// chars returns the value's little-endian bytes without trailing NULs.
func (f *Typed[T]) chars() string {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(f.value))
	return strings.TrimRight(string(b[:f.Size()]), "\x00")
}

func lookup(flags Lookup, key string, v uint64) (string, bool) {
	if flags == nil {
		return "", false
	}
	return flags.Lookup(key, v)
}

// hexValue renders zero as a bare "0".
func hexValue(v uint64) string {
	if v == 0 {
		return "0"
	}
	return "0x" + strconv.FormatUint(v, 16)
}

// setBits returns each set bit of v as its own mask, ascending.
func setBits[T constraints.Unsigned](v T) []T {
	var bits []T
	for mask := T(1); mask != 0; mask <<= 1 {
		if v&mask != 0 {
			bits = append(bits, mask)
		}
	}
	return bits
}
