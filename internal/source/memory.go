package source

import (
	"io"
)

// Memory is a ByteSource over a byte slice, used for decompressed entries.
// The slice must not be modified while the source is in use.
type Memory struct {
	b []byte
}

func NewMemory(b []byte) *Memory {
	return &Memory{b: b}
}

func (m *Memory) Size() int64 { return int64(len(m.b)) }

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if off >= int64(len(m.b)) {
		return 0, io.EOF
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Memory) Bytes(off, n int64) ([]byte, error) {
	if err := CheckRange(int64(len(m.b)), off, n); err != nil {
		return nil, err
	}
	return m.b[off : off+n : off+n], nil
}

// Section is a window of another source, used for lazily opened lumps.
type Section struct {
	src ByteSource
	off int64
	n   int64
}

// NewSection returns the region [off, off+n) of src.
func NewSection(src ByteSource, off, n int64) (*Section, error) {
	if err := CheckRange(src.Size(), off, n); err != nil {
		return nil, err
	}
	return &Section{src: src, off: off, n: n}, nil
}

func (s *Section) Size() int64 { return s.n }

func (s *Section) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if off >= s.n {
		return 0, io.EOF
	}
	if rem := s.n - off; int64(len(p)) > rem {
		n, err := s.src.ReadAt(p[:rem], s.off+off)
		if err == nil {
			err = io.EOF
		}
		return n, err
	}
	return s.src.ReadAt(p, s.off+off)
}

func (s *Section) Bytes(off, n int64) ([]byte, error) {
	if err := CheckRange(s.n, off, n); err != nil {
		return nil, err
	}
	return s.src.Bytes(s.off+off, n)
}
