package pdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Machine types seen in DBI headers.
const (
	MachineUnknown = 0x0000
	MachineI386    = 0x014c
	MachineIA64    = 0x0200
	MachineARM     = 0x01c0
	MachineARM64   = 0xAA64
	MachineAMD64   = 0x8664
)

// dbiHeader is the fixed 64-byte header of the DBI stream (stream 3).
// Only the machine type is consumed; the substreams that follow hold
// symbol information outside this package's scope.
type dbiHeader struct {
	VersionSignature        int32
	VersionHeader           uint32
	Age                     uint32
	GlobalStreamIndex       uint16
	BuildNumber             uint16
	PublicStreamIndex       uint16
	PdbDllVersion           uint16
	SymRecordStream         uint16
	PdbDllRbld              uint16
	ModInfoSize             int32
	SectionContributionSize int32
	SectionMapSize          int32
	SourceInfoSize          int32
	TypeServerMapSize       int32
	MFCTypeServerIndex      uint32
	OptionalDbgHeaderSize   int32
	ECSubstreamSize         int32
	Flags                   uint16
	Machine                 uint16
	Padding                 uint32
}

func readDBIHeader(data []byte) (*dbiHeader, error) {
	if len(data) < 64 {
		return nil, fmt.Errorf("DBI stream too short: %d bytes", len(data))
	}
	var h dbiHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to read DBI header: %w", err)
	}
	if h.VersionSignature != -1 {
		return nil, fmt.Errorf("invalid DBI version signature: %d", h.VersionSignature)
	}
	return &h, nil
}

// MachineName returns the display name of a DBI machine type.
func MachineName(machine uint16) string {
	switch machine {
	case MachineI386:
		return "x86"
	case MachineAMD64:
		return "x64"
	case MachineARM:
		return "ARM"
	case MachineARM64:
		return "ARM64"
	case MachineIA64:
		return "IA64"
	case MachineUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("0x%04x", machine)
	}
}
