// Package pdbtest builds small synthetic PDB containers in memory so
// loader and reconstruction tests do not depend on checked-in binary
// fixtures.
package pdbtest

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/clayne/resym/pkg/pdb"
	"github.com/clayne/resym/pkg/pdb/codeview"
)

// Builder accumulates type records and assigns their indices in the
// order they are added.
type Builder struct {
	records [][]byte
	machine uint16
}

func NewBuilder() *Builder {
	return &Builder{machine: pdb.MachineAMD64}
}

// SetMachine overrides the machine type written to the DBI stream.
func (b *Builder) SetMachine(machine uint16) { b.machine = machine }

// Add appends a raw type record and returns its assigned index.
func (b *Builder) Add(kind uint16, payload []byte) codeview.TypeIndex {
	rec := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint16(rec[0:], uint16(2+len(payload)))
	binary.LittleEndian.PutUint16(rec[2:], kind)
	copy(rec[4:], payload)
	b.records = append(b.records, rec)
	return codeview.FirstTypeIndex + codeview.TypeIndex(len(b.records)-1)
}

// tagProperties for the synthetic records.
const (
	PropNone       uint16 = 0
	PropForwardRef uint16 = 0x0080
)

// AddStruct appends a complete structure record.
func (b *Builder) AddStruct(name string, fieldList codeview.TypeIndex, size uint64) codeview.TypeIndex {
	return b.Add(codeview.LF_STRUCTURE, tagPayload(0, PropNone, fieldList, size, name))
}

// AddClass appends a complete class record.
func (b *Builder) AddClass(name string, fieldList codeview.TypeIndex, size uint64) codeview.TypeIndex {
	return b.Add(codeview.LF_CLASS, tagPayload(0, PropNone, fieldList, size, name))
}

// AddStructForwardRef appends a forward declaration of a structure.
func (b *Builder) AddStructForwardRef(name string) codeview.TypeIndex {
	return b.Add(codeview.LF_STRUCTURE, tagPayload(0, PropForwardRef, 0, 0, name))
}

// AddUnion appends a complete union record.
func (b *Builder) AddUnion(name string, fieldList codeview.TypeIndex, size uint64) codeview.TypeIndex {
	var p bytes.Buffer
	writeU16(&p, 0) // member count, unused by the decoder
	writeU16(&p, PropNone)
	writeU32(&p, uint32(fieldList))
	writeNumeric(&p, size)
	writeString(&p, name)
	return b.Add(codeview.LF_UNION, p.Bytes())
}

// AddEnum appends a complete enum record with the given underlying
// primitive.
func (b *Builder) AddEnum(name string, underlying, fieldList codeview.TypeIndex) codeview.TypeIndex {
	var p bytes.Buffer
	writeU16(&p, 0)
	writeU16(&p, PropNone)
	writeU32(&p, uint32(underlying))
	writeU32(&p, uint32(fieldList))
	writeString(&p, name)
	return b.Add(codeview.LF_ENUM, p.Bytes())
}

// AddPointer appends a 64-bit pointer record.
func (b *Builder) AddPointer(underlying codeview.TypeIndex) codeview.TypeIndex {
	var p bytes.Buffer
	writeU32(&p, uint32(underlying))
	writeU32(&p, 0x0001000c) // 64-bit pointer kind, plain mode, size 8
	return b.Add(codeview.LF_POINTER, p.Bytes())
}

// AddArray appends an array record. Size is the total byte size.
func (b *Builder) AddArray(element codeview.TypeIndex, size uint64) codeview.TypeIndex {
	var p bytes.Buffer
	writeU32(&p, uint32(element))
	writeU32(&p, uint32(codeview.T_UQUAD)) // index type
	writeNumeric(&p, size)
	writeString(&p, "")
	return b.Add(codeview.LF_ARRAY, p.Bytes())
}

// AddBitfield appends a bitfield record.
func (b *Builder) AddBitfield(underlying codeview.TypeIndex, length, position uint8) codeview.TypeIndex {
	var p bytes.Buffer
	writeU32(&p, uint32(underlying))
	p.WriteByte(length)
	p.WriteByte(position)
	return b.Add(codeview.LF_BITFIELD, p.Bytes())
}

// AddModifier appends a const/volatile modifier record.
func (b *Builder) AddModifier(underlying codeview.TypeIndex, isConst, isVolatile bool) codeview.TypeIndex {
	var flags uint16
	if isConst {
		flags |= 0x01
	}
	if isVolatile {
		flags |= 0x02
	}
	var p bytes.Buffer
	writeU32(&p, uint32(underlying))
	writeU16(&p, flags)
	return b.Add(codeview.LF_MODIFIER, p.Bytes())
}

// AddProcedure appends a procedure record together with its argument
// list record.
func (b *Builder) AddProcedure(ret codeview.TypeIndex, args ...codeview.TypeIndex) codeview.TypeIndex {
	var al bytes.Buffer
	writeU32(&al, uint32(len(args)))
	for _, a := range args {
		writeU32(&al, uint32(a))
	}
	argList := b.Add(codeview.LF_ARGLIST, al.Bytes())

	var p bytes.Buffer
	writeU32(&p, uint32(ret))
	p.WriteByte(0) // calling convention
	p.WriteByte(0) // attributes
	writeU16(&p, uint16(len(args)))
	writeU32(&p, uint32(argList))
	return b.Add(codeview.LF_PROCEDURE, p.Bytes())
}

// AddFieldList appends a field list built from the given entries.
func (b *Builder) AddFieldList(fields ...[]byte) codeview.TypeIndex {
	var p bytes.Buffer
	for _, f := range fields {
		p.Write(f)
		for p.Len()%4 != 0 {
			p.WriteByte(byte(0xF0 + 4 - p.Len()%4))
		}
	}
	return b.Add(codeview.LF_FIELDLIST, p.Bytes())
}

// Member encodes an LF_MEMBER field list entry.
func Member(name string, typ codeview.TypeIndex, offset uint64, access codeview.Access) []byte {
	var p bytes.Buffer
	writeU16(&p, codeview.LF_MEMBER)
	writeU16(&p, uint16(access))
	writeU32(&p, uint32(typ))
	writeNumeric(&p, offset)
	writeString(&p, name)
	return p.Bytes()
}

// StaticMember encodes an LF_STMEMBER field list entry.
func StaticMember(name string, typ codeview.TypeIndex, access codeview.Access) []byte {
	var p bytes.Buffer
	writeU16(&p, codeview.LF_STMEMBER)
	writeU16(&p, uint16(access))
	writeU32(&p, uint32(typ))
	writeString(&p, name)
	return p.Bytes()
}

// Base encodes an LF_BCLASS field list entry.
func Base(typ codeview.TypeIndex, offset uint64, access codeview.Access) []byte {
	var p bytes.Buffer
	writeU16(&p, codeview.LF_BCLASS)
	writeU16(&p, uint16(access))
	writeU32(&p, uint32(typ))
	writeNumeric(&p, offset)
	return p.Bytes()
}

// Enumerator encodes an LF_ENUMERATE field list entry.
func Enumerator(name string, value int64) []byte {
	var p bytes.Buffer
	writeU16(&p, codeview.LF_ENUMERATE)
	writeU16(&p, uint16(codeview.AccessPublic))
	writeSignedNumeric(&p, value)
	writeString(&p, name)
	return p.Bytes()
}

// Continuation encodes an LF_INDEX field list entry pointing at the
// next field list record.
func Continuation(next codeview.TypeIndex) []byte {
	var p bytes.Buffer
	writeU16(&p, codeview.LF_INDEX)
	writeU16(&p, 0)
	writeU32(&p, uint32(next))
	return p.Bytes()
}

// tagPayload encodes the shared class/structure layout.
func tagPayload(count, prop uint16, fieldList codeview.TypeIndex, size uint64, name string) []byte {
	var p bytes.Buffer
	writeU16(&p, count)
	writeU16(&p, prop)
	writeU32(&p, uint32(fieldList))
	writeU32(&p, 0) // derived
	writeU32(&p, 0) // vshape
	writeNumeric(&p, size)
	writeString(&p, name)
	return p.Bytes()
}

// TPI assembles the records into a raw TPI stream.
func (b *Builder) TPI() []byte {
	var records bytes.Buffer
	for _, rec := range b.records {
		records.Write(rec)
	}

	header := codeview.TPIHeader{
		Version:         codeview.TPIVersionV80,
		HeaderSize:      56,
		TypeIndexBegin:  uint32(codeview.FirstTypeIndex),
		TypeIndexEnd:    uint32(codeview.FirstTypeIndex) + uint32(len(b.records)),
		TypeRecordBytes: uint32(records.Len()),
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, header)
	out.Write(records.Bytes())
	return out.Bytes()
}

// WritePDB assembles a complete MSF container holding the builder's
// type stream plus minimal info and DBI streams, and writes it to
// path.
func (b *Builder) WritePDB(path string) error {
	return os.WriteFile(path, b.Bytes(), 0o644)
}

// Bytes assembles the container in memory.
func (b *Builder) Bytes() []byte {
	const blockSize = 512
	magic := []byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00")

	// Blocks 0..2 are the superblock and the two free block maps.
	blocks := [][]byte{make([]byte, blockSize), make([]byte, blockSize), make([]byte, blockSize)}
	appendData := func(data []byte) []uint32 {
		var indices []uint32
		for off := 0; off < len(data); off += blockSize {
			block := make([]byte, blockSize)
			copy(block, data[off:])
			indices = append(indices, uint32(len(blocks)))
			blocks = append(blocks, block)
		}
		return indices
	}

	streams := [][]byte{nil, b.infoStream(), b.TPI(), b.dbiStream()}
	streamBlocks := make([][]uint32, len(streams))
	for i, data := range streams {
		streamBlocks[i] = appendData(data)
	}

	var dir bytes.Buffer
	writeU32(&dir, uint32(len(streams)))
	for _, data := range streams {
		writeU32(&dir, uint32(len(data)))
	}
	for _, indices := range streamBlocks {
		for _, idx := range indices {
			writeU32(&dir, idx)
		}
	}
	dirBlocks := appendData(dir.Bytes())

	var blockMap bytes.Buffer
	for _, idx := range dirBlocks {
		writeU32(&blockMap, idx)
	}
	blockMapAddr := appendData(blockMap.Bytes())[0]

	// Superblock into block 0.
	head := blocks[0]
	copy(head, magic)
	binary.LittleEndian.PutUint32(head[32:], blockSize)
	binary.LittleEndian.PutUint32(head[36:], 1) // free block map
	binary.LittleEndian.PutUint32(head[40:], uint32(len(blocks)))
	binary.LittleEndian.PutUint32(head[44:], uint32(dir.Len()))
	binary.LittleEndian.PutUint32(head[48:], 0)
	binary.LittleEndian.PutUint32(head[52:], blockMapAddr)

	var out bytes.Buffer
	for _, block := range blocks {
		out.Write(block)
	}
	return out.Bytes()
}

func (b *Builder) infoStream() []byte {
	info := make([]byte, 28)
	binary.LittleEndian.PutUint32(info[0:], 20000404) // VC70
	binary.LittleEndian.PutUint32(info[4:], 0x5bd10000)
	binary.LittleEndian.PutUint32(info[8:], 1) // age
	for i := 0; i < 16; i++ {
		info[12+i] = byte(i + 1)
	}
	return info
}

func (b *Builder) dbiStream() []byte {
	dbi := make([]byte, 64)
	binary.LittleEndian.PutUint32(dbi[0:], 0xFFFFFFFF) // version signature -1
	binary.LittleEndian.PutUint32(dbi[4:], 19990903)
	binary.LittleEndian.PutUint32(dbi[8:], 1) // age
	binary.LittleEndian.PutUint16(dbi[58:], b.machine)
	return dbi
}

func writeU16(p *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	p.Write(buf[:])
}

func writeU32(p *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	p.Write(buf[:])
}

func writeString(p *bytes.Buffer, s string) {
	p.WriteString(s)
	p.WriteByte(0)
}

// writeNumeric encodes an unsigned CodeView numeric leaf.
func writeNumeric(p *bytes.Buffer, v uint64) {
	switch {
	case v < 0x8000:
		writeU16(p, uint16(v))
	case v <= 0xFFFFFFFF:
		writeU16(p, 0x8004) // LF_ULONG
		writeU32(p, uint32(v))
	default:
		writeU16(p, 0x800a) // LF_UQUADWORD
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], v)
		p.Write(buf[:])
	}
}

// writeSignedNumeric encodes a signed CodeView numeric leaf.
func writeSignedNumeric(p *bytes.Buffer, v int64) {
	if v >= 0 && v < 0x8000 {
		writeU16(p, uint16(v))
		return
	}
	writeU16(p, 0x8003) // LF_LONG
	writeU32(p, uint32(int32(v)))
}
