package cache

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/jchantrell/wadinfo/internal/bundle"
	"github.com/jchantrell/wadinfo/internal/exe"
	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/source"
	"github.com/jchantrell/wadinfo/internal/utils"
	"github.com/jchantrell/wadinfo/internal/wad"
)

const sniffLen = 4

var extensionKinds = map[string]metadata.Kind{
	".wad":  metadata.KindBaseArchive,
	".iwad": metadata.KindBaseArchive,
	".pwad": metadata.KindBaseArchive,
	".zip":  metadata.KindBundle,
	".pk3":  metadata.KindBundle,
	".ipk3": metadata.KindBundle,
	".pkz":  metadata.KindBundle,
	".pke":  metadata.KindBundle,
	".epk":  metadata.KindBundle,
	".exe":  metadata.KindExecutable,
	".dll":  metadata.KindExecutable,
}

// Detect picks the reader for a file from its leading bytes, falling back to
// its extension.
func Detect(path string, head []byte) metadata.Kind {
	switch {
	case bytes.HasPrefix(head, []byte("IWAD")), bytes.HasPrefix(head, []byte("PWAD")):
		return metadata.KindBaseArchive
	case bytes.HasPrefix(head, []byte("PK\x03\x04")), bytes.HasPrefix(head, []byte("PK\x05\x06")):
		return metadata.KindBundle
	case exe.Sniff(head):
		return metadata.KindExecutable
	}
	return extensionKinds[utils.Ext(path)]
}

func (c *Cache) load(path string) (*metadata.Record, error) {
	src, err := c.opener.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	kind := Detect(path, source.Prefix(src, sniffLen))
	switch kind {
	case metadata.KindBaseArchive:
		return wad.Read(src, c.wadOpts...)
	case metadata.KindBundle:
		return bundle.Read(src, c.bundleOpts...)
	case metadata.KindExecutable:
		return exe.Read(src, exe.WithFileName(filepath.Base(path)))
	case metadata.KindUnknown:
		return nil, fmt.Errorf("%w: unrecognized signature and extension", metadata.ErrUnsupportedFormat)
	}
	return nil, fmt.Errorf("%w: no reader for %s", metadata.ErrUnsupportedFormat, kind)
}
