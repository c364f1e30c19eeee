// Package source provides bounds-checked random access to file contents.
package source

import (
	"fmt"
	"io"

	"github.com/jchantrell/wadinfo/internal/metadata"
)

// ByteSource is a random-access view with a fixed size. Every region read
// through Bytes is validated against Size first.
type ByteSource interface {
	io.ReaderAt
	// Size returns the total length in bytes.
	Size() int64
	// Bytes returns n bytes starting at off, failing with ErrTruncated when
	// the region does not fit.
	Bytes(off, n int64) ([]byte, error)
}

// ReadCloser is a ByteSource that holds an open resource.
type ReadCloser interface {
	ByteSource
	io.Closer
}

// CheckRange validates [off, off+n) against size without overflowing.
func CheckRange(size, off, n int64) error {
	if off < 0 || n < 0 || off > size || n > size-off {
		return fmt.Errorf("%w: region %d+%d exceeds size %d", metadata.ErrTruncated, off, n, size)
	}
	return nil
}

// Prefix returns up to n leading bytes of src. Short sources yield fewer.
func Prefix(src ByteSource, n int64) []byte {
	n = min(n, src.Size())
	if n <= 0 {
		return nil
	}
	b, err := src.Bytes(0, n)
	if err != nil {
		return nil
	}
	return b
}

type nopCloser struct {
	ByteSource
}

func (nopCloser) Close() error { return nil }

// NopCloser wraps src with a no-op Close.
func NopCloser(src ByteSource) ReadCloser {
	return nopCloser{src}
}
