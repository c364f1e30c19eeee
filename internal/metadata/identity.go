package metadata

import "time"

// Identity is the cheap fingerprint used to detect that a file changed.
// It is not a content hash.
type Identity struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Equal reports whether all three fields match.
func (i Identity) Equal(o Identity) bool {
	return i.Path == o.Path && i.Size == o.Size && i.ModTime.Equal(o.ModTime)
}
