// Package petest builds small synthetic PE images for tests.
package petest

import "encoding/binary"

// Section is one section table entry.
type Section struct {
	Name                string
	VirtualSize         uint32
	VirtualAddress      uint32
	SizeOfRawData       uint32
	PointerToRawData    uint32
	NumberOfRelocations uint16
	Characteristics     uint32
}

// Image describes the headers to lay out. NumberOfSections is written as
// is, so it may disagree with len(Sections).
type Image struct {
	Magic                [2]byte
	LFANew               uint32
	Signature            [4]byte
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
	Sections             []Section
}

// New returns a minimal valid AMD64 executable with no sections.
func New() *Image {
	return &Image{
		Magic:           [2]byte{'M', 'Z'},
		LFANew:          0x40,
		Signature:       [4]byte{'P', 'E', 0, 0},
		Machine:         0x8664,
		Characteristics: 0x0022,
	}
}

// AddSection appends s and bumps NumberOfSections.
func (img *Image) AddSection(s Section) *Image {
	img.Sections = append(img.Sections, s)
	img.NumberOfSections++
	return img
}

// Bytes lays the headers out. The buffer ends right after the last
// section header, or at 0x40 if that is later.
func (img *Image) Bytes() []byte {
	coff := int(img.LFANew)
	table := coff + 0x18 + int(img.SizeOfOptionalHeader)
	size := table + len(img.Sections)*0x28
	if size < 0x40 {
		size = 0x40
	}
	buf := make([]byte, size)
	le := binary.LittleEndian

	copy(buf[0x00:], img.Magic[:])
	le.PutUint16(buf[0x02:], 0x90)
	le.PutUint16(buf[0x04:], 3)
	le.PutUint16(buf[0x08:], 4)
	le.PutUint16(buf[0x0C:], 0xffff)
	le.PutUint16(buf[0x10:], 0xb8)
	le.PutUint16(buf[0x18:], 0x40)
	le.PutUint32(buf[0x3C:], img.LFANew)

	copy(buf[coff:], img.Signature[:])
	le.PutUint16(buf[coff+0x04:], img.Machine)
	le.PutUint16(buf[coff+0x06:], img.NumberOfSections)
	le.PutUint32(buf[coff+0x08:], img.TimeDateStamp)
	le.PutUint32(buf[coff+0x0C:], img.PointerToSymbolTable)
	le.PutUint32(buf[coff+0x10:], img.NumberOfSymbols)
	le.PutUint16(buf[coff+0x14:], img.SizeOfOptionalHeader)
	le.PutUint16(buf[coff+0x16:], img.Characteristics)

	for i, s := range img.Sections {
		off := table + i*0x28
		copy(buf[off:off+8], s.Name)
		le.PutUint32(buf[off+0x08:], s.VirtualSize)
		le.PutUint32(buf[off+0x0C:], s.VirtualAddress)
		le.PutUint32(buf[off+0x10:], s.SizeOfRawData)
		le.PutUint32(buf[off+0x14:], s.PointerToRawData)
		le.PutUint16(buf[off+0x20:], s.NumberOfRelocations)
		le.PutUint32(buf[off+0x24:], s.Characteristics)
	}
	return buf
}
