// Package codeview decodes CodeView type records from a PDB's TPI
// stream into structured values the reconstruction engine can render.
package codeview

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// TypeIndex identifies one type record within a single PDB. Indices
// below FirstTypeIndex denote built-in primitive types and have no
// backing record.
type TypeIndex uint32

// FirstTypeIndex is the index of the first real type record.
const FirstTypeIndex TypeIndex = 0x1000

// IsSimple reports whether the index denotes a built-in primitive.
func (ti TypeIndex) IsSimple() bool { return ti < FirstTypeIndex }

// Supported TPI stream versions.
const (
	TPIVersionV70 = 19990903
	TPIVersionV80 = 20040203
)

// TPIHeader is the fixed header of the TPI stream.
type TPIHeader struct {
	Version                 uint32
	HeaderSize              uint32
	TypeIndexBegin          uint32
	TypeIndexEnd            uint32
	TypeRecordBytes         uint32
	HashStreamIndex         uint16
	HashAuxStreamIndex      uint16
	HashKeySize             uint32
	NumHashBuckets          uint32
	HashValueBufferOffset   int32
	HashValueBufferLength   uint32
	IndexOffsetBufferOffset int32
	IndexOffsetBufferLength uint32
	HashAdjBufferOffset     int32
	HashAdjBufferLength     uint32
}

// Record is one raw type record: its assigned index, leaf kind, and
// payload (excluding the length and kind prefix).
type Record struct {
	Index TypeIndex
	Kind  uint16
	Data  []byte
}

// TypeStream holds the decoded TPI stream: every record in declaration
// order plus an index lookup.
type TypeStream struct {
	Header  TPIHeader
	Records []Record

	byIndex map[TypeIndex]*Record
}

// ParseTypeStream decodes a raw TPI stream. Individually malformed
// records are skipped; only a truncated header or record buffer is an
// error.
func ParseTypeStream(data []byte) (*TypeStream, error) {
	r := bytes.NewReader(data)

	var header TPIHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read TPI header: %w", err)
	}
	if header.Version != TPIVersionV70 && header.Version != TPIVersionV80 {
		return nil, fmt.Errorf("unsupported TPI version: %d", header.Version)
	}

	records := make([]byte, header.TypeRecordBytes)
	if _, err := io.ReadFull(r, records); err != nil {
		return nil, fmt.Errorf("failed to read type record buffer: %w", err)
	}

	ts := &TypeStream{
		Header:  header,
		byIndex: make(map[TypeIndex]*Record),
	}

	// Records are stored back to back: u16 length, u16 kind, payload.
	// Indices are assigned consecutively from TypeIndexBegin.
	offset := 0
	index := TypeIndex(header.TypeIndexBegin)
	for offset+2 <= len(records) && index < TypeIndex(header.TypeIndexEnd) {
		length := int(binary.LittleEndian.Uint16(records[offset:]))
		offset += 2
		if offset+length > len(records) {
			break
		}
		if length < 2 {
			// Degenerate record, skip but keep the index assignment.
			offset += length
			index++
			continue
		}

		rec := Record{
			Index: index,
			Kind:  binary.LittleEndian.Uint16(records[offset:]),
			Data:  records[offset+2 : offset+length],
		}
		ts.Records = append(ts.Records, rec)

		offset += length
		index++
	}
	for i := range ts.Records {
		ts.byIndex[ts.Records[i].Index] = &ts.Records[i]
	}

	return ts, nil
}

// Record returns the record for the given index, or nil if the index
// is simple or unknown.
func (ts *TypeStream) Record(index TypeIndex) *Record {
	return ts.byIndex[index]
}

// Count returns the number of decoded records.
func (ts *TypeStream) Count() int { return len(ts.Records) }
