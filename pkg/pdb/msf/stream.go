package msf

import (
	"io"
)

// Stream is one logical stream of an MSF container. Its data is spread
// over potentially non-contiguous blocks of the underlying file.
type Stream struct {
	msf    *File
	size   uint32
	blocks []uint32
}

// Size returns the stream's length in bytes.
func (s *Stream) Size() uint32 { return s.size }

// ReadAll reads the whole stream into memory.
func (s *Stream) ReadAll() ([]byte, error) {
	data := make([]byte, s.size)
	if _, err := io.ReadFull(s.Reader(), data); err != nil {
		return nil, err
	}
	return data, nil
}

// Reader returns a sequential reader over the stream's data that hides
// the block layout.
func (s *Stream) Reader() *StreamReader {
	return &StreamReader{stream: s}
}

// StreamReader implements io.ReadSeeker over a Stream.
type StreamReader struct {
	stream *Stream
	offset int64
}

// Read implements io.Reader.
func (r *StreamReader) Read(p []byte) (int, error) {
	if r.offset >= int64(r.stream.size) {
		return 0, io.EOF
	}

	blockSize := int64(r.stream.msf.blockSize)
	total := 0
	for len(p) > 0 && r.offset < int64(r.stream.size) {
		block := r.stream.blocks[r.offset/blockSize]
		pos := r.offset % blockSize

		n := int64(len(p))
		if rem := blockSize - pos; n > rem {
			n = rem
		}
		if rem := int64(r.stream.size) - r.offset; n > rem {
			n = rem
		}

		fileOffset := int64(block)*blockSize + pos
		read, err := r.stream.msf.f.ReadAt(p[:n], fileOffset)
		total += read
		r.offset += int64(read)
		p = p[read:]
		if err != nil && err != io.EOF {
			return total, err
		}
		if read == 0 {
			break
		}
	}
	return total, nil
}

// Seek implements io.Seeker. Seeking is clamped to the stream bounds.
func (r *StreamReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.offset + offset
	case io.SeekEnd:
		target = int64(r.stream.size) + offset
	}
	if target < 0 {
		target = 0
	}
	if target > int64(r.stream.size) {
		target = int64(r.stream.size)
	}
	r.offset = target
	return r.offset, nil
}
