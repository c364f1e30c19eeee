package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jchantrell/wadinfo/internal/metadata"
)

// File is a ByteSource over a local file. Its size is fixed at open time.
type File struct {
	f    *os.File
	size int64
}

// OpenFile opens path for reading.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mapFSError(path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, mapFSError(path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", metadata.ErrUnsupportedFormat, path)
	}

	return &File{f: f, size: info.Size()}, nil
}

func (f *File) Name() string { return f.f.Name() }
func (f *File) Size() int64  { return f.size }

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.size {
		return 0, io.EOF
	}
	if rem := f.size - off; int64(len(p)) > rem {
		n, err := f.f.ReadAt(p[:rem], off)
		if err == nil {
			err = io.EOF
		}
		return n, err
	}
	return f.f.ReadAt(p, off)
}

func (f *File) Bytes(off, n int64) ([]byte, error) {
	if err := CheckRange(f.size, off, n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	read, err := f.f.ReadAt(buf, off)
	if int64(read) < n {
		// the file shrank after it was opened
		if err == nil || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: short read at %d: got %d of %d bytes", metadata.ErrTruncated, off, read, n)
		}
		return nil, fmt.Errorf("reading %s at %d: %w", f.f.Name(), off, err)
	}
	return buf, nil
}

func (f *File) Close() error {
	return f.f.Close()
}

// Stat returns the identity of the file at path.
func Stat(path string) (metadata.Identity, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return metadata.Identity{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return metadata.Identity{}, mapFSError(abs, err)
	}
	if info.IsDir() {
		return metadata.Identity{}, fmt.Errorf("%w: %s is a directory", metadata.ErrUnsupportedFormat, abs)
	}
	return metadata.Identity{Path: abs, ModTime: info.ModTime(), Size: info.Size()}, nil
}

func mapFSError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", metadata.ErrNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", metadata.ErrAccessDenied, path)
	default:
		return fmt.Errorf("opening %s: %w", path, err)
	}
}
