package field

import (
	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Line is one rendered, visible field of a table.
type Line struct {
	Key   string   `json:"key" yaml:"key"`
	Label string   `json:"label" yaml:"label"`
	Value string   `json:"value" yaml:"value"`
	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Table is an insertion-ordered set of fields sharing a base offset.
type Table struct {
	title   string
	base    uint64
	fields  *ordereddict.Dict
	offsets map[uint64]string
	serial  bool
}

// NewTable returns an empty table rooted at base.
func NewTable(title string, base uint64) *Table {
	return &Table{
		title:   title,
		base:    base,
		fields:  ordereddict.NewDict(),
		offsets: make(map[uint64]string),
	}
}

func (t *Table) Title() string { return t.title }

func (t *Table) Base() uint64 { return t.base }

// SetBase moves the table before it is parsed.
func (t *Table) SetBase(base uint64) { t.base = base }

// SetSerial makes Validate check fields one at a time.
func (t *Table) SetSerial(serial bool) { t.serial = serial }

func (t *Table) Len() int { return t.fields.Len() }

// Keys returns the field keys in insertion order.
func (t *Table) Keys() []string { return t.fields.Keys() }

// Field returns the field stored under key.
func (t *Table) Field(key string) (Field, bool) {
	v, ok := t.fields.Get(key)
	if !ok {
		return nil, false
	}
	f, ok := v.(Field)
	return f, ok
}

// Add appends a field. Keys and offsets must be unique within the table.
func (t *Table) Add(key string, f Field) error {
	if _, ok := t.fields.Get(key); ok {
		return errors.Wrapf(ErrDuplicateKey, "%s: %s", t.title, key)
	}
	off := f.Descriptor().Offset
	if other, ok := t.offsets[off]; ok {
		return errors.Wrapf(ErrDuplicateOffset, "%s: %s and %s at 0x%x", t.title, other, key, off)
	}
	t.offsets[off] = key
	t.fields.Set(key, f)
	return nil
}

// Parse decodes every field in order and stops at the first failure.
func (t *Table) Parse(buf []byte) error {
	return t.each(func(key string, f Field) error {
		return errors.Wrapf(f.Decode(buf, t.base), "%s: %s", t.title, key)
	})
}

// Validate checks every field concurrently. The result does not depend on
// scheduling.
func (t *Table) Validate() bool {
	var g errgroup.Group
	if t.serial {
		g.SetLimit(1)
	}
	_ = t.each(func(key string, f Field) error {
		g.Go(func() error {
			if !f.Validate() {
				return errors.Wrap(errInvalidField, key)
			}
			return nil
		})
		return nil
	})
	return g.Wait() == nil
}

// Render returns the visible fields in insertion order. Fields whose value
// renders empty are skipped.
func (t *Table) Render(flags Lookup) []Line {
	var lines []Line
	_ = t.each(func(key string, f Field) error {
		value := f.Render(flags, key)
		if value == "" {
			return nil
		}
		lines = append(lines, Line{
			Key:   key,
			Label: f.Descriptor().Description,
			Value: value,
			Flags: f.FlagLines(flags, key),
		})
		return nil
	})
	return lines
}

func (t *Table) each(fn func(key string, f Field) error) error {
	for _, key := range t.fields.Keys() {
		f, ok := t.Field(key)
		if !ok {
			continue
		}
		if err := fn(key, f); err != nil {
			return err
		}
	}
	return nil
}
