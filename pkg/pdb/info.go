package pdb

import (
	"encoding/binary"
	"fmt"
	"io"
)

// infoStream is the fixed header of the PDB info stream (stream 1).
// The named-stream table that follows is not needed here.
type infoStream struct {
	Version   uint32
	Signature uint32
	Age       uint32
	GUID      [16]byte
}

func readInfoStream(r io.Reader) (*infoStream, error) {
	var info infoStream
	if err := binary.Read(r, binary.LittleEndian, &info); err != nil {
		return nil, fmt.Errorf("failed to read PDB info header: %w", err)
	}
	return &info, nil
}

func (i *infoStream) guidString() string {
	return fmt.Sprintf("%08X-%04X-%04X-%02X%02X-%02X%02X%02X%02X%02X%02X",
		binary.LittleEndian.Uint32(i.GUID[0:4]),
		binary.LittleEndian.Uint16(i.GUID[4:6]),
		binary.LittleEndian.Uint16(i.GUID[6:8]),
		i.GUID[8], i.GUID[9],
		i.GUID[10], i.GUID[11], i.GUID[12], i.GUID[13], i.GUID[14], i.GUID[15])
}
