package pkzip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/source"
	"github.com/klauspost/compress/flate"
	"golang.org/x/text/encoding/charmap"
)

// ErrEntryTooLarge is returned by OpenEntry when an entry declares more
// content than the configured limit.
var ErrEntryTooLarge = errors.New("entry exceeds size limit")

// Reader holds a parsed central directory.
type Reader struct {
	src          source.ByteSource
	entries      []Entry
	warnings     []string
	comment      string
	maxEntrySize uint64
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxEntrySize limits the declared uncompressed size OpenEntry accepts.
// Zero means no limit.
func WithMaxEntrySize(n int64) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxEntrySize = uint64(n)
		}
	}
}

type directoryEnd struct {
	diskNbr        uint32
	dirDiskNbr     uint32
	dirRecordsDisk uint64
	dirRecords     uint64
	dirSize        uint64
	dirOffset      uint64
	comment        string
}

// Open locates the end of central directory record and parses the directory.
func Open(src source.ByteSource, opts ...Option) (*Reader, error) {
	r := &Reader{src: src}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	end, endOffset, err := r.readDirectoryEnd()
	if err != nil {
		return nil, err
	}
	if end.diskNbr != 0 || end.dirDiskNbr != 0 || end.dirRecordsDisk != end.dirRecords {
		return nil, fmt.Errorf("%w: multi-disk archives are not supported", metadata.ErrUnsupportedFormat)
	}
	if end.dirOffset > uint64(endOffset) || end.dirSize > uint64(endOffset)-end.dirOffset {
		return nil, fmt.Errorf("%w: central directory %d+%d extends past end record at %d",
			metadata.ErrTruncated, end.dirOffset, end.dirSize, endOffset)
	}
	if end.dirRecords > end.dirSize/centralHeaderLen {
		return nil, fmt.Errorf("%w: %d directory records cannot fit in %d bytes",
			metadata.ErrCorruptEntry, end.dirRecords, end.dirSize)
	}
	r.comment = end.comment

	dir, err := src.Bytes(int64(end.dirOffset), int64(end.dirSize))
	if err != nil {
		return nil, fmt.Errorf("reading central directory: %w", err)
	}
	if err := r.readDirectory(dir, end.dirRecords); err != nil {
		return nil, err
	}

	slog.Debug("Read zip directory", "entries", len(r.entries), "skipped", len(r.warnings))
	return r, nil
}

// Entries returns the usable entries in central directory order.
func (r *Reader) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Warnings returns the per-entry anomalies found while listing.
func (r *Reader) Warnings() []string {
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}

func (r *Reader) Comment() string { return r.comment }

// Lookup finds an entry by name, ignoring case.
func (r *Reader) Lookup(name string) (Entry, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	for _, e := range r.entries {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

func (r *Reader) warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *Reader) readDirectoryEnd() (directoryEnd, int64, error) {
	size := r.src.Size()
	if size < endOfDirLen {
		return directoryEnd{}, 0, fmt.Errorf("%w: %d bytes is too small for a zip archive", metadata.ErrUnsupportedFormat, size)
	}

	searchLen := min(size, endOfDirLen+maxCommentLen)
	buf, err := r.src.Bytes(size-searchLen, searchLen)
	if err != nil {
		return directoryEnd{}, 0, fmt.Errorf("reading archive tail: %w", err)
	}

	pos := findSignatureInBlock(buf)
	if pos < 0 {
		return directoryEnd{}, 0, fmt.Errorf("%w: end of central directory not found", metadata.ErrUnsupportedFormat)
	}
	endOffset := size - searchLen + int64(pos)

	b := buf[pos:]
	end := directoryEnd{
		diskNbr:        uint32(binary.LittleEndian.Uint16(b[4:])),
		dirDiskNbr:     uint32(binary.LittleEndian.Uint16(b[6:])),
		dirRecordsDisk: uint64(binary.LittleEndian.Uint16(b[8:])),
		dirRecords:     uint64(binary.LittleEndian.Uint16(b[10:])),
		dirSize:        uint64(binary.LittleEndian.Uint32(b[12:])),
		dirOffset:      uint64(binary.LittleEndian.Uint32(b[16:])),
	}
	commentLen := int(binary.LittleEndian.Uint16(b[20:]))
	end.comment = string(b[endOfDirLen : endOfDirLen+commentLen])

	if end.dirRecords == uint16max || end.dirSize == uint32max || end.dirOffset == uint32max {
		if p, ok, err := r.findZip64DirectoryEnd(endOffset); err != nil {
			return directoryEnd{}, 0, err
		} else if ok {
			if err := r.readZip64DirectoryEnd(p, &end); err != nil {
				return directoryEnd{}, 0, err
			}
			endOffset = p
		}
	}

	return end, endOffset, nil
}

// findSignatureInBlock returns the offset of the last end record whose
// comment fits inside b, or -1.
func findSignatureInBlock(b []byte) int {
	for i := len(b) - endOfDirLen; i >= 0; i-- {
		if b[i] == 'P' && b[i+1] == 'K' && b[i+2] == 0x05 && b[i+3] == 0x06 {
			n := int(b[i+endOfDirLen-2]) | int(b[i+endOfDirLen-1])<<8
			if n+endOfDirLen+i <= len(b) {
				return i
			}
		}
	}
	return -1
}

func (r *Reader) findZip64DirectoryEnd(endOffset int64) (int64, bool, error) {
	locOffset := endOffset - zip64LocatorLen
	if locOffset < 0 {
		return 0, false, nil
	}
	b, err := r.src.Bytes(locOffset, zip64LocatorLen)
	if err != nil {
		return 0, false, fmt.Errorf("reading zip64 locator: %w", err)
	}
	if binary.LittleEndian.Uint32(b) != sigZip64Locator {
		return 0, false, nil
	}
	if binary.LittleEndian.Uint32(b[4:]) != 0 || binary.LittleEndian.Uint32(b[16:]) > 1 {
		return 0, false, fmt.Errorf("%w: multi-disk archives are not supported", metadata.ErrUnsupportedFormat)
	}
	p := binary.LittleEndian.Uint64(b[8:])
	if p > uint64(locOffset) {
		return 0, false, fmt.Errorf("%w: zip64 end record offset %d past locator", metadata.ErrCorruptEntry, p)
	}
	return int64(p), true, nil
}

func (r *Reader) readZip64DirectoryEnd(off int64, end *directoryEnd) error {
	b, err := r.src.Bytes(off, zip64EndOfDirLen)
	if err != nil {
		return fmt.Errorf("reading zip64 end record: %w", err)
	}
	if binary.LittleEndian.Uint32(b) != sigZip64EndOfDir {
		return fmt.Errorf("%w: bad zip64 end record signature", metadata.ErrCorruptEntry)
	}
	end.diskNbr = binary.LittleEndian.Uint32(b[16:])
	end.dirDiskNbr = binary.LittleEndian.Uint32(b[20:])
	end.dirRecordsDisk = binary.LittleEndian.Uint64(b[24:])
	end.dirRecords = binary.LittleEndian.Uint64(b[32:])
	end.dirSize = binary.LittleEndian.Uint64(b[40:])
	end.dirOffset = binary.LittleEndian.Uint64(b[48:])
	return nil
}

func (r *Reader) readDirectory(dir []byte, records uint64) error {
	for i := uint64(0); i < records; i++ {
		if len(dir) < centralHeaderLen {
			return fmt.Errorf("%w: central directory ends after %d of %d records", metadata.ErrCorruptEntry, i, records)
		}
		if binary.LittleEndian.Uint32(dir) != sigCentralHeader {
			return fmt.Errorf("%w: bad central header signature in record %d", metadata.ErrCorruptEntry, i)
		}

		flags := binary.LittleEndian.Uint16(dir[8:])
		e := Entry{
			Flags:            flags,
			Method:           binary.LittleEndian.Uint16(dir[10:]),
			Modified:         msDosTimeToTime(binary.LittleEndian.Uint16(dir[14:]), binary.LittleEndian.Uint16(dir[12:])),
			CRC32:            binary.LittleEndian.Uint32(dir[16:]),
			CompressedSize:   uint64(binary.LittleEndian.Uint32(dir[20:])),
			UncompressedSize: uint64(binary.LittleEndian.Uint32(dir[24:])),
			HeaderOffset:     uint64(binary.LittleEndian.Uint32(dir[42:])),
		}
		nameLen := int(binary.LittleEndian.Uint16(dir[28:]))
		extraLen := int(binary.LittleEndian.Uint16(dir[30:]))
		commentLen := int(binary.LittleEndian.Uint16(dir[32:]))
		recLen := centralHeaderLen + nameLen + extraLen + commentLen
		if len(dir) < recLen {
			return fmt.Errorf("%w: central directory record %d overruns directory", metadata.ErrCorruptEntry, i)
		}

		e.Name = decodeName(dir[centralHeaderLen:centralHeaderLen+nameLen], flags)
		if err := applyZip64Extra(&e, dir[centralHeaderLen+nameLen:centralHeaderLen+nameLen+extraLen], true); err != nil {
			return fmt.Errorf("entry %q: %w", e.Name, err)
		}
		dir = dir[recLen:]

		switch {
		case e.Flags&flagEncrypted != 0:
			r.warn("entry %s is encrypted, skipped", e.Name)
			continue
		case e.Method != Store && e.Method != Deflate:
			r.warn("entry %s uses unsupported compression method %d, skipped", e.Name, e.Method)
			continue
		}
		r.entries = append(r.entries, e)
	}
	return nil
}

// applyZip64Extra replaces saturated 32-bit fields from a zip64 extra block.
// Local headers carry no offset field.
func applyZip64Extra(e *Entry, extra []byte, central bool) error {
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra)
		n := int(binary.LittleEndian.Uint16(extra[2:]))
		extra = extra[4:]
		if n > len(extra) {
			return fmt.Errorf("%w: extra field overruns header", metadata.ErrCorruptEntry)
		}
		field := extra[:n]
		extra = extra[n:]
		if id != zip64ExtraID {
			continue
		}

		read := func(v *uint64) error {
			if len(field) < 8 {
				return fmt.Errorf("%w: short zip64 extra field", metadata.ErrCorruptEntry)
			}
			*v = binary.LittleEndian.Uint64(field)
			field = field[8:]
			return nil
		}
		if e.UncompressedSize == uint32max {
			if err := read(&e.UncompressedSize); err != nil {
				return err
			}
		}
		if e.CompressedSize == uint32max {
			if err := read(&e.CompressedSize); err != nil {
				return err
			}
		}
		if central && e.HeaderOffset == uint32max {
			if err := read(&e.HeaderOffset); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeName(b []byte, flags uint16) string {
	var name string
	switch {
	case flags&flagUTF8 != 0 || isASCII(b):
		name = string(b)
	default:
		if decoded, err := charmap.CodePage437.NewDecoder().Bytes(b); err == nil {
			name = string(decoded)
		} else {
			name = strings.ToValidUTF8(string(b), string(utf8.RuneError))
		}
	}
	return strings.ReplaceAll(name, "\\", "/")
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// OpenEntry validates the local header of e and returns its decompressed
// content.
func (r *Reader) OpenEntry(e Entry) (*source.Memory, error) {
	if !validName(e.Name) {
		return nil, fmt.Errorf("%w: unsafe entry name %q", metadata.ErrCorruptEntry, e.Name)
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: entry %s is encrypted", metadata.ErrUnsupportedFormat, e.Name)
	}
	if e.Method != Store && e.Method != Deflate {
		return nil, fmt.Errorf("%w: entry %s uses compression method %d", metadata.ErrUnsupportedFormat, e.Name, e.Method)
	}
	if r.maxEntrySize > 0 && e.UncompressedSize > r.maxEntrySize {
		return nil, fmt.Errorf("%w: %s declares %d bytes, limit %d", ErrEntryTooLarge, e.Name, e.UncompressedSize, r.maxEntrySize)
	}
	if e.HeaderOffset > math.MaxInt64 || e.CompressedSize > math.MaxInt64 || e.UncompressedSize >= math.MaxInt64 {
		return nil, fmt.Errorf("%w: entry %s has out of range sizes", metadata.ErrTruncated, e.Name)
	}

	dataOffset, err := r.checkLocalHeader(e)
	if err != nil {
		return nil, err
	}

	raw, err := r.src.Bytes(dataOffset, int64(e.CompressedSize))
	if err != nil {
		return nil, fmt.Errorf("reading entry %s: %w", e.Name, err)
	}

	var data []byte
	switch e.Method {
	case Store:
		if e.CompressedSize != e.UncompressedSize {
			return nil, fmt.Errorf("%w: stored entry %s has compressed size %d but uncompressed size %d",
				metadata.ErrCorruptEntry, e.Name, e.CompressedSize, e.UncompressedSize)
		}
		data = raw
	case Deflate:
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()

		// grow with the actual output, stop one byte past the declared size
		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(fr, int64(e.UncompressedSize)+1))
		if err != nil {
			return nil, fmt.Errorf("%w: inflating %s: %v", metadata.ErrCorruptEntry, e.Name, err)
		}
		if uint64(n) != e.UncompressedSize {
			return nil, fmt.Errorf("%w: entry %s inflated to %d bytes, expected %d",
				metadata.ErrCorruptEntry, e.Name, n, e.UncompressedSize)
		}
		data = buf.Bytes()
	}

	if sum := crc32.ChecksumIEEE(data); sum != e.CRC32 {
		return nil, fmt.Errorf("%w: entry %s checksum %08x, expected %08x", metadata.ErrCorruptEntry, e.Name, sum, e.CRC32)
	}
	return source.NewMemory(data), nil
}

// checkLocalHeader compares the local header with the central record and
// returns the offset of the entry data.
func (r *Reader) checkLocalHeader(e Entry) (int64, error) {
	off := int64(e.HeaderOffset)
	b, err := r.src.Bytes(off, localHeaderLen)
	if err != nil {
		return 0, fmt.Errorf("reading local header of %s: %w", e.Name, err)
	}
	if binary.LittleEndian.Uint32(b) != sigLocalHeader {
		return 0, fmt.Errorf("%w: bad local header signature for %s", metadata.ErrCorruptEntry, e.Name)
	}

	flags := binary.LittleEndian.Uint16(b[6:])
	local := Entry{
		Method:           binary.LittleEndian.Uint16(b[8:]),
		CRC32:            binary.LittleEndian.Uint32(b[14:]),
		CompressedSize:   uint64(binary.LittleEndian.Uint32(b[18:])),
		UncompressedSize: uint64(binary.LittleEndian.Uint32(b[22:])),
	}
	nameLen := int64(binary.LittleEndian.Uint16(b[26:]))
	extraLen := int64(binary.LittleEndian.Uint16(b[28:]))

	if local.Method != e.Method {
		return 0, fmt.Errorf("%w: %s local method %d, central method %d", metadata.ErrCorruptEntry, e.Name, local.Method, e.Method)
	}

	if flags&flagDataDescriptor == 0 && e.Flags&flagDataDescriptor == 0 {
		extra, err := r.src.Bytes(off+localHeaderLen+nameLen, extraLen)
		if err != nil {
			return 0, fmt.Errorf("reading local header of %s: %w", e.Name, err)
		}
		if err := applyZip64Extra(&local, extra, false); err != nil {
			return 0, fmt.Errorf("entry %s: %w", e.Name, err)
		}
		if local.CompressedSize != e.CompressedSize || local.UncompressedSize != e.UncompressedSize {
			return 0, fmt.Errorf("%w: %s local sizes %d/%d, central sizes %d/%d", metadata.ErrCorruptEntry, e.Name,
				local.CompressedSize, local.UncompressedSize, e.CompressedSize, e.UncompressedSize)
		}
	}

	dataOffset := off + localHeaderLen + nameLen + extraLen
	if err := source.CheckRange(r.src.Size(), dataOffset, 0); err != nil {
		return 0, fmt.Errorf("entry %s data: %w", e.Name, err)
	}
	return dataOffset, nil
}
