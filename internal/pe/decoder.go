package pe

import (
	"io"
	"log"

	"github.com/pkg/errors"

	"github.com/ZacharyZcR/readpe/internal/field"
)

// Kind tells which header a table holds.
type Kind int

const (
	KindDOS Kind = iota
	KindCOFF
	KindSection
)

func (k Kind) String() string {
	switch k {
	case KindDOS:
		return "dos"
	case KindCOFF:
		return "coff"
	case KindSection:
		return "section"
	}
	return "unknown"
}

// Visitor receives each header once it is decoded and validated. A
// non-nil error stops the walk.
type Visitor func(kind Kind, t *field.Table) error

// Options tune a walk.
type Options struct {
	// Logger traces the stages. Nil discards.
	Logger *log.Logger
	// SerialValidate checks fields on the calling goroutine only.
	SerialValidate bool
}

// Headers holds everything decoded so far.
type Headers struct {
	DOS      *DOSHeader
	COFF     *COFFHeader
	Sections []*SectionHeader
}

// Tables returns the decoded tables in file order.
func (h *Headers) Tables() []*field.Table {
	var tables []*field.Table
	if h.DOS != nil {
		tables = append(tables, h.DOS.Table)
	}
	if h.COFF != nil {
		tables = append(tables, h.COFF.Table)
	}
	for _, s := range h.Sections {
		tables = append(tables, s.Table)
	}
	return tables
}

// Offsets lists where each decoded header starts.
type Offsets struct {
	COFF         uint64
	SectionTable uint64
	Sections     []SectionOffsetInfo
}

// SectionOffsetInfo locates one section header.
type SectionOffsetInfo struct {
	Index  int
	Name   string
	Offset uint64
}

// Offsets returns the resolved header offsets.
func (h *Headers) Offsets() Offsets {
	var o Offsets
	if h.COFF != nil {
		o.COFF = h.COFF.Base()
		o.SectionTable = h.COFF.SectionTableOffset()
	}
	for _, s := range h.Sections {
		o.Sections = append(o.Sections, SectionOffsetInfo{Index: s.Index, Name: s.Name(), Offset: s.Base()})
	}
	return o
}

type decoder struct {
	buf     []byte
	opts    Options
	visit   Visitor
	log     *log.Logger
	headers *Headers
}

type stage struct {
	name string
	run  func(*decoder) error
}

var stages = []stage{
	{"dos header", (*decoder).decodeDOS},
	{"coff header", (*decoder).decodeCOFF},
	{"section headers", (*decoder).decodeSections},
}

// Walk decodes the DOS header, the COFF header and every section header
// of buf in that order, handing each to visit. It stops at the first
// failure and returns what was decoded up to that point.
func Walk(buf []byte, opts Options, visit Visitor) (*Headers, error) {
	d := &decoder{
		buf:     buf,
		opts:    opts,
		visit:   visit,
		log:     opts.Logger,
		headers: &Headers{},
	}
	if d.log == nil {
		d.log = log.New(io.Discard, "", 0)
	}

	for _, s := range stages {
		d.log.Printf("stage %s", s.name)
		if err := s.run(d); err != nil {
			d.log.Printf("stage %s failed: %v", s.name, err)
			return d.headers, err
		}
	}
	return d.headers, nil
}

// Decode is Walk without a visitor.
func Decode(buf []byte, opts Options) (*Headers, error) {
	return Walk(buf, opts, nil)
}

func (d *decoder) emit(kind Kind, t *field.Table) error {
	if d.visit == nil {
		return nil
	}
	return d.visit(kind, t)
}

func (d *decoder) decodeDOS() error {
	h := NewDOSHeader()
	h.SetSerial(d.opts.SerialValidate)
	if err := h.Parse(d.buf); err != nil {
		return errors.Wrap(err, "DOS header")
	}
	if !h.Validate() {
		return errors.Wrap(ErrInvalidMagic, "DOS header invalid")
	}
	d.headers.DOS = h
	d.log.Printf("e_lfanew 0x%x", h.PEHeaderOffset())
	return d.emit(KindDOS, h.Table)
}

func (d *decoder) decodeCOFF() error {
	h := NewCOFFHeader(d.headers.DOS.Base() + uint64(d.headers.DOS.PEHeaderOffset()))
	h.SetSerial(d.opts.SerialValidate)
	if err := h.Parse(d.buf); err != nil {
		return errors.Wrap(err, "COFF header")
	}
	if !h.Validate() {
		return errors.Wrap(ErrInvalidMagic, "COFF header invalid")
	}
	d.headers.COFF = h
	d.log.Printf("%d sections at 0x%x", h.NumberOfSections(), h.SectionTableOffset())
	return d.emit(KindCOFF, h.Table)
}

func (d *decoder) decodeSections() error {
	coff := d.headers.COFF
	table := coff.SectionTableOffset()
	for i := 0; i < int(coff.NumberOfSections()); i++ {
		h := NewSectionHeader(i, SectionOffset(table, i))
		h.SetSerial(d.opts.SerialValidate)
		if err := h.Parse(d.buf); err != nil {
			return errors.Wrapf(err, "section %d", i)
		}
		if !h.Validate() {
			return errors.Wrapf(ErrInvalidSection, "section %d invalid", i)
		}
		d.headers.Sections = append(d.headers.Sections, h)
		d.log.Printf("section %d %q at 0x%x", i, h.Name(), h.Base())
		if err := d.emit(KindSection, h.Table); err != nil {
			return err
		}
	}
	return nil
}
