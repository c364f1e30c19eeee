// Package pkzip reads ZIP-family archives over a ByteSource.
//
// Only the central directory is trusted for listing. Every entry is checked
// against its local header when opened, and decompressed content is verified
// by length and CRC-32.
package pkzip

import (
	"strings"
	"time"
)

const (
	sigLocalHeader   = 0x04034b50
	sigCentralHeader = 0x02014b50
	sigEndOfDir      = 0x06054b50
	sigZip64Locator  = 0x07064b50
	sigZip64EndOfDir = 0x06064b50

	localHeaderLen   = 30
	centralHeaderLen = 46
	endOfDirLen      = 22
	zip64LocatorLen  = 20
	zip64EndOfDirLen = 56
	maxCommentLen    = 65535

	zip64ExtraID = 0x0001

	uint16max = 0xffff
	uint32max = 0xffffffff
)

// Compression methods.
const (
	Store   uint16 = 0
	Deflate uint16 = 8
)

const (
	flagEncrypted      = 1 << 0
	flagDataDescriptor = 1 << 3
	flagUTF8           = 1 << 11
)

// Entry describes one central directory record.
type Entry struct {
	Name             string
	Method           uint16
	Flags            uint16
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
	HeaderOffset     uint64
	Modified         time.Time
}

func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// Base returns the last path element of the entry name.
func (e Entry) Base() string {
	name := strings.TrimSuffix(e.Name, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Dir returns the entry's parent directory, empty for root-level entries.
func (e Entry) Dir() string {
	name := strings.TrimSuffix(e.Name, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[:i]
	}
	return ""
}

func msDosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		int(dosDate>>9+1980),
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0,
		time.UTC,
	)
}

// validName rejects names that would escape the archive root.
func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") {
		return false
	}
	if len(name) >= 2 && name[1] == ':' {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
