// Package msf reads Microsoft's Multi-Stream Format container, the
// on-disk layout used by PDB files. An MSF file is divided into
// fixed-size blocks; each logical stream is a sequence of potentially
// non-contiguous blocks described by a central stream directory.
package msf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Magic signature of MSF 7.00 files.
var magic = []byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00")

// ErrNotMSF is returned when the file does not start with the MSF magic.
var ErrNotMSF = errors.New("not an MSF container")

// Stream size marker for unused/deleted directory entries.
const nilStreamSize = 0xFFFFFFFF

// superBlock mirrors the fixed header following the magic bytes.
type superBlock struct {
	BlockSize         uint32
	FreeBlockMapBlock uint32
	NumBlocks         uint32
	NumDirectoryBytes uint32
	Reserved          uint32
	BlockMapAddr      uint32
}

// File is an opened MSF container.
type File struct {
	f         *os.File
	blockSize uint32
	streams   []*Stream
}

// Open opens an MSF container and parses its stream directory.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	m, err := open(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

func open(f *os.File) (*File, error) {
	var head [32]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return nil, fmt.Errorf("failed to read MSF magic: %w", err)
	}
	if !bytes.Equal(head[:], magic) {
		return nil, ErrNotMSF
	}

	var sb superBlock
	if err := binary.Read(f, binary.LittleEndian, &sb); err != nil {
		return nil, fmt.Errorf("failed to read superblock: %w", err)
	}
	switch sb.BlockSize {
	case 512, 1024, 2048, 4096:
	default:
		return nil, fmt.Errorf("invalid MSF block size: %d", sb.BlockSize)
	}
	if sb.FreeBlockMapBlock != 1 && sb.FreeBlockMapBlock != 2 {
		return nil, fmt.Errorf("invalid free block map index: %d", sb.FreeBlockMapBlock)
	}

	m := &File{f: f, blockSize: sb.BlockSize}
	if err := m.readDirectory(&sb); err != nil {
		return nil, err
	}
	return m, nil
}

// Close releases the underlying file handle.
func (m *File) Close() error {
	if m.f == nil {
		return nil
	}
	err := m.f.Close()
	m.f = nil
	return err
}

// BlockSize returns the container's block size in bytes.
func (m *File) BlockSize() uint32 { return m.blockSize }

// NumStreams returns the number of streams listed in the directory.
func (m *File) NumStreams() int { return len(m.streams) }

// Stream returns the stream at the given directory index.
func (m *File) Stream(index int) (*Stream, error) {
	if index < 0 || index >= len(m.streams) {
		return nil, fmt.Errorf("stream index %d out of range [0, %d)", index, len(m.streams))
	}
	return m.streams[index], nil
}

// readDirectory loads the stream directory through the block map and
// populates the stream table.
func (m *File) readDirectory(sb *superBlock) error {
	numDirBlocks := (sb.NumDirectoryBytes + sb.BlockSize - 1) / sb.BlockSize

	// The block map is a flat list of the directory's block indices.
	blockMap := make([]uint32, numDirBlocks)
	mapOffset := int64(sb.BlockMapAddr) * int64(sb.BlockSize)
	if _, err := m.f.Seek(mapOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to directory block map: %w", err)
	}
	if err := binary.Read(m.f, binary.LittleEndian, blockMap); err != nil {
		return fmt.Errorf("failed to read directory block map: %w", err)
	}

	dir := make([]byte, sb.NumDirectoryBytes)
	read := 0
	for _, block := range blockMap {
		n := int(sb.BlockSize)
		if read+n > len(dir) {
			n = len(dir) - read
		}
		off := int64(block) * int64(sb.BlockSize)
		if _, err := m.f.ReadAt(dir[read:read+n], off); err != nil {
			return fmt.Errorf("failed to read directory block %d: %w", block, err)
		}
		read += n
	}

	return m.parseDirectory(dir)
}

// parseDirectory decodes the directory layout: a stream count, one size
// per stream, then each stream's block index list.
func (m *File) parseDirectory(dir []byte) error {
	r := bytes.NewReader(dir)

	var numStreams uint32
	if err := binary.Read(r, binary.LittleEndian, &numStreams); err != nil {
		return fmt.Errorf("failed to read stream count: %w", err)
	}

	sizes := make([]uint32, numStreams)
	if err := binary.Read(r, binary.LittleEndian, sizes); err != nil {
		return fmt.Errorf("failed to read stream sizes: %w", err)
	}

	m.streams = make([]*Stream, numStreams)
	for i, size := range sizes {
		if size == nilStreamSize {
			m.streams[i] = &Stream{msf: m}
			continue
		}
		numBlocks := (size + m.blockSize - 1) / m.blockSize
		blocks := make([]uint32, numBlocks)
		if err := binary.Read(r, binary.LittleEndian, blocks); err != nil {
			return fmt.Errorf("failed to read block list of stream %d: %w", i, err)
		}
		m.streams[i] = &Stream{msf: m, size: size, blocks: blocks}
	}
	return nil
}
