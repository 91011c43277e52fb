package pe

import "github.com/ZacharyZcR/readpe/internal/field"

const (
	// DOSMagic is the rendered form of a valid e_magic.
	DOSMagic = "0x5a4d (MZ)"
	// PESignature is "PE\0\0" read as a little-endian uint32.
	PESignature uint32 = 0x00004550
)

const (
	// COFFHeaderSize covers the PE signature and the file header.
	COFFHeaderSize = 0x18
	// SectionHeaderSize is the stride of the section table.
	SectionHeaderSize = 0x28
)

// Field keys that carry flag names.
const (
	KeyMachine                = "coff_machine"
	KeyCharacteristics        = "coff_characteristics"
	KeySectionCharacteristics = "section_characteristics"
)

// SectionTableOffset returns where the section table starts for a COFF
// header at coffBase.
func SectionTableOffset(coffBase uint64, sizeOfOptionalHeader uint16) uint64 {
	return coffBase + COFFHeaderSize + uint64(sizeOfOptionalHeader)
}

// SectionOffset returns the offset of the i-th section header.
func SectionOffset(tableBase uint64, i int) uint64 {
	return tableBase + uint64(i)*SectionHeaderSize
}

func addField[T field.Value](t *field.Table, key string, offset uint64, description string, rules field.Rules) *field.Typed[T] {
	f := field.MustNew[T](offset, description, rules)
	if err := t.Add(key, f); err != nil {
		panic(err)
	}
	return f
}

// DOSHeader is the MZ header at the start of the image.
type DOSHeader struct {
	*field.Table

	magic  *field.Typed[uint16]
	lfanew *field.Typed[uint32]
}

// NewDOSHeader returns an undecoded DOS header table.
func NewDOSHeader() *DOSHeader {
	h := &DOSHeader{Table: field.NewTable("DOS Header", 0)}
	t := h.Table

	h.magic = addField[uint16](t, "dos_e_magic", 0x00, "Magic number", field.Hex|field.Char)
	addField[uint16](t, "dos_e_cblp", 0x02, "Bytes in last page", field.Dec)
	addField[uint16](t, "dos_e_cp", 0x04, "Pages in file", field.Dec)
	addField[uint16](t, "dos_e_crlc", 0x06, "Relocations", field.Dec)
	addField[uint16](t, "dos_e_cparhdr", 0x08, "Size of header in paragraphs", field.Dec)
	addField[uint16](t, "dos_e_minalloc", 0x0A, "Minimum extra paragraphs", field.Dec)
	addField[uint16](t, "dos_e_maxalloc", 0x0C, "Maximum extra paragraphs", field.Dec)
	addField[uint16](t, "dos_e_ss", 0x0E, "Initial (relative) SS value", field.Dec)
	addField[uint16](t, "dos_e_sp", 0x10, "Initial SP value", field.Hex)
	addField[uint16](t, "dos_e_ip", 0x14, "Initial IP value", field.Hex)
	addField[uint16](t, "dos_e_cs", 0x16, "Initial (relative) CS value", field.Hex)
	addField[uint16](t, "dos_e_lfarlc", 0x18, "Address of relocation table", field.Hex)
	addField[uint16](t, "dos_e_ovno", 0x1A, "Overlay number", field.Dec)
	addField[uint16](t, "dos_e_oemid", 0x24, "OEM identifier", field.Dec)
	addField[uint16](t, "dos_e_oeminfo", 0x26, "OEM information", field.Dec)
	h.lfanew = addField[uint32](t, "dos_e_lfanew", 0x3C, "PE header offset", field.Hex)
	return h
}

// Validate checks the fields and the MZ magic.
func (h *DOSHeader) Validate() bool {
	return h.Table.Validate() && h.magic.Render(nil, "dos_e_magic") == DOSMagic
}

// PEHeaderOffset returns e_lfanew.
func (h *DOSHeader) PEHeaderOffset() uint32 {
	return h.lfanew.Value()
}

// COFFHeader is the PE signature followed by the file header.
type COFFHeader struct {
	*field.Table

	signature      *field.Typed[uint32]
	sections       *field.Typed[uint16]
	sizeOfOptional *field.Typed[uint16]
}

// NewCOFFHeader returns an undecoded COFF header table rooted at base.
func NewCOFFHeader(base uint64) *COFFHeader {
	h := &COFFHeader{Table: field.NewTable("COFF/File header", base)}
	t := h.Table

	h.signature = addField[uint32](t, "coff_signature", 0x00, "Signature", field.Hidden)
	addField[uint16](t, KeyMachine, 0x04, "Machine", field.Hex|field.Flag)
	h.sections = addField[uint16](t, "coff_sections", 0x06, "Number of Sections", field.Dec)
	addField[uint32](t, "coff_timedatestamp", 0x08, "Date/time stamp", field.Dec|field.Time)
	addField[uint32](t, "coff_symbol_table", 0x0C, "Symbol Table offset", field.Dec)
	addField[uint32](t, "coff_symbols", 0x10, "Number of symbols", field.Dec)
	h.sizeOfOptional = addField[uint16](t, "coff_optional_header_size", 0x14, "Size of optional header", field.Hex)
	addField[uint16](t, KeyCharacteristics, 0x16, "Characteristics", field.Hex|field.Flags)
	return h
}

// Validate checks the fields and the PE signature.
func (h *COFFHeader) Validate() bool {
	return h.Table.Validate() && h.signature.Value() == PESignature
}

// NumberOfSections returns the declared section count.
func (h *COFFHeader) NumberOfSections() uint16 {
	return h.sections.Value()
}

// SizeOfOptionalHeader returns the size of the optional header that sits
// between the file header and the section table.
func (h *COFFHeader) SizeOfOptionalHeader() uint16 {
	return h.sizeOfOptional.Value()
}

// SectionTableOffset returns the absolute offset of the first section
// header.
func (h *COFFHeader) SectionTableOffset() uint64 {
	return SectionTableOffset(h.Base(), h.SizeOfOptionalHeader())
}

// SectionHeader is one entry of the section table.
type SectionHeader struct {
	*field.Table

	Index int
	name  *field.Typed[uint64]
}

// NewSectionHeader returns the undecoded i-th section header at base.
func NewSectionHeader(i int, base uint64) *SectionHeader {
	h := &SectionHeader{Table: field.NewTable("Section", base), Index: i}
	t := h.Table

	h.name = addField[uint64](t, "section_name", 0x00, "Name", field.Char)
	addField[uint32](t, "section_virtual_size", 0x08, "Virtual Size", field.Dec|field.Hex)
	addField[uint32](t, "section_virtual_address", 0x0C, "Virtual Address", field.Hex)
	addField[uint32](t, "section_raw_size", 0x10, "Size Of Raw Data", field.Dec|field.Hex)
	addField[uint32](t, "section_raw_offset", 0x14, "Pointer To Raw Data", field.Hex)
	addField[uint16](t, "section_relocations", 0x20, "Number Of Relocations", field.Hex)
	addField[uint32](t, KeySectionCharacteristics, 0x24, "Characteristics", field.Hex|field.Flags)
	return h
}

// Name returns the section name without padding.
func (h *SectionHeader) Name() string {
	return h.name.Render(nil, "section_name")
}
