// Package wad reads the directory of IWAD and PWAD base archives.
package wad

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jchantrell/wadinfo/internal/mapinfo"
	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/source"
	"github.com/jchantrell/wadinfo/internal/utils"
)

const (
	headerSize = 12
	recordSize = 16
	nameSize   = 8
)

var (
	magicIWAD = []byte("IWAD")
	magicPWAD = []byte("PWAD")
)

// mapDataLumps are the fixed lumps that follow a map marker.
var mapDataLumps = map[string]struct{}{
	"THINGS": {}, "LINEDEFS": {}, "SIDEDEFS": {}, "VERTEXES": {}, "SEGS": {},
	"SSECTORS": {}, "NODES": {}, "SECTORS": {}, "REJECT": {}, "BLOCKMAP": {},
	"BEHAVIOR": {}, "SCRIPTS": {}, "TEXTMAP": {}, "ZNODES": {}, "DIALOGUE": {},
	"ENDMAP": {}, "LEAFS": {}, "LIGHTS": {}, "MACROS": {},
	"GL_VERT": {}, "GL_SEGS": {}, "GL_SSECT": {}, "GL_NODES": {}, "GL_PVS": {},
}

// descriptorLumps in order of preference.
var descriptorLumps = []string{"ZMAPINFO", "MAPINFO", "UMAPINFO"}

type options struct {
	maxDescriptorSize int64
	container         string
	descriptors       bool
}

// Option configures Open.
type Option func(*options)

// WithMaxDescriptorSize sets the largest descriptor lump that is parsed.
func WithMaxDescriptorSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDescriptorSize = n
		}
	}
}

// WithContainer records the bundle entry the archive was read from on every
// directory entry.
func WithContainer(name string) Option {
	return func(o *options) {
		o.container = name
	}
}

// WithoutDescriptors skips embedded map descriptor lumps.
func WithoutDescriptors() Option {
	return func(o *options) {
		o.descriptors = false
	}
}

// Archive is an opened base archive. Lump payloads are read on demand.
type Archive struct {
	src     source.ByteSource
	typ     metadata.ArchiveType
	entries []metadata.Entry
	record  *metadata.Record
}

// Read parses src and returns its record.
func Read(src source.ByteSource, opts ...Option) (*metadata.Record, error) {
	a, err := Open(src, opts...)
	if err != nil {
		return nil, err
	}
	return a.Record(), nil
}

// Open validates the header, reads the whole directory and derives the
// record. It fails with ErrUnsupportedFormat when the magic is absent and
// with ErrTruncated when the directory or a lump lies past the end of src.
func Open(src source.ByteSource, opts ...Option) (*Archive, error) {
	o := options{maxDescriptorSize: mapinfo.DefaultMaxSize, descriptors: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	typ, err := readMagic(src)
	if err != nil {
		return nil, err
	}

	size := src.Size()
	if size < headerSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, file has %d", metadata.ErrTruncated, headerSize, size)
	}
	hdr, err := src.Bytes(0, headerSize)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	count := int32(binary.LittleEndian.Uint32(hdr[4:]))
	dirOffset := int32(binary.LittleEndian.Uint32(hdr[8:]))
	if count < 0 || dirOffset < 0 {
		return nil, fmt.Errorf("%w: negative directory count %d or offset %d", metadata.ErrCorruptEntry, count, dirOffset)
	}

	dirLen := int64(count) * recordSize
	if int64(dirOffset)+dirLen > size {
		return nil, fmt.Errorf("%w: directory %d+%d exceeds file size %d", metadata.ErrTruncated, dirOffset, dirLen, size)
	}
	dir, err := src.Bytes(int64(dirOffset), dirLen)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	a := &Archive{src: src, typ: typ, entries: make([]metadata.Entry, 0, count)}
	b := metadata.NewBuilder(metadata.KindBaseArchive).SetArchiveType(typ)

	for i := range int(count) {
		rec := dir[i*recordSize : (i+1)*recordSize]
		off := int32(binary.LittleEndian.Uint32(rec[0:]))
		n := int32(binary.LittleEndian.Uint32(rec[4:]))
		if off < 0 || n < 0 {
			return nil, fmt.Errorf("%w: lump %d has negative offset %d or size %d", metadata.ErrCorruptEntry, i, off, n)
		}

		name, ok := utils.LumpName(rec[8 : 8+nameSize])
		if !ok {
			return nil, fmt.Errorf("%w: lump %d has a non-printable name %q", metadata.ErrCorruptEntry, i, rec[8:8+nameSize])
		}
		if err := source.CheckRange(size, int64(off), int64(n)); err != nil {
			return nil, fmt.Errorf("lump %d (%s): %w", i, name, err)
		}
		if name == "" {
			b.Warn("lump %d has an empty name", i)
		}

		e := metadata.Entry{
			Name:      name,
			Offset:    int64(off),
			Size:      int64(n),
			Flags:     classify(name, int64(n)),
			Container: o.container,
		}
		a.entries = append(a.entries, e)
		b.AddEntry(e)
	}

	a.collectMaps(b)
	if o.descriptors {
		a.applyDescriptors(b, o.maxDescriptorSize)
	}
	if typ == metadata.ArchiveIWAD {
		if g, ok := IdentifyGame(a.lumpNames()); ok {
			b.SetGameID(g.ID)
		}
	}

	a.record = b.Build()
	slog.Debug("Read base archive", "type", typ, "entries", len(a.entries), "maps", a.record.MapNames())
	return a, nil
}

func readMagic(src source.ByteSource) (metadata.ArchiveType, error) {
	head := source.Prefix(src, 4)
	switch {
	case bytes.Equal(head, magicIWAD):
		return metadata.ArchiveIWAD, nil
	case bytes.Equal(head, magicPWAD):
		return metadata.ArchivePWAD, nil
	case len(head) == 0:
		return metadata.ArchiveNone, fmt.Errorf("%w: empty file", metadata.ErrUnsupportedFormat)
	case len(head) < 4 && (bytes.HasPrefix(magicIWAD, head) || bytes.HasPrefix(magicPWAD, head)):
		return metadata.ArchiveNone, fmt.Errorf("%w: %d bytes is too short for a header", metadata.ErrTruncated, len(head))
	}
	return metadata.ArchiveNone, fmt.Errorf("%w: missing IWAD/PWAD signature", metadata.ErrUnsupportedFormat)
}

func classify(name string, size int64) metadata.EntryFlags {
	upper := strings.ToUpper(name)
	if _, ok := mapDataLumps[upper]; ok {
		return metadata.FlagMapData
	}
	if strings.HasSuffix(upper, "_START") || strings.HasSuffix(upper, "_END") ||
		strings.HasSuffix(upper, "_S") || strings.HasSuffix(upper, "_E") {
		return metadata.FlagNamespace
	}
	if size == 0 && upper != "" {
		return metadata.FlagMarker
	}
	return 0
}

// collectMaps adds every map marker to b. A marker directly followed by an
// unrelated lump gets a warning; markers at the end of the directory or
// followed by another marker stand for maps whose data lives elsewhere.
func (a *Archive) collectMaps(b *metadata.Builder) {
	for i, e := range a.entries {
		if !e.Flags.Has(metadata.FlagMarker) {
			continue
		}
		b.AddMap(e.Name)
		if i+1 < len(a.entries) {
			next := a.entries[i+1].Flags
			if !next.Has(metadata.FlagMapData) && !next.Has(metadata.FlagMarker) {
				b.Warn("map marker %s has no map data", e.Name)
			}
		}
	}
}

// applyDescriptors merges the preferred embedded descriptor and GAMEINFO.
func (a *Archive) applyDescriptors(b *metadata.Builder, limit int64) {
	for _, name := range descriptorLumps {
		e, ok := a.Last(name)
		if !ok {
			continue
		}
		text, ok := a.readText(b, e, limit)
		if !ok {
			continue
		}
		mapinfo.Parse(text).Apply(b)
		break
	}

	if e, ok := a.Last("GAMEINFO"); ok {
		if text, ok := a.readText(b, e, limit); ok {
			for k, v := range mapinfo.ParseGameInfo(text) {
				b.SetHint(k, v)
			}
		}
	}
}

func (a *Archive) readText(b *metadata.Builder, e metadata.Entry, limit int64) ([]byte, bool) {
	if e.Size == 0 {
		return nil, false
	}
	if e.Size > limit {
		b.Warn("descriptor %s is %d bytes, larger than %d, ignored", e.Name, e.Size, limit)
		return nil, false
	}
	text, err := a.src.Bytes(e.Offset, e.Size)
	if err != nil {
		b.Warn("descriptor %s unreadable: %v", e.Name, err)
		return nil, false
	}
	return text, true
}

func (a *Archive) lumpNames() map[string]struct{} {
	names := make(map[string]struct{}, len(a.entries))
	for _, e := range a.entries {
		names[strings.ToUpper(e.Name)] = struct{}{}
	}
	return names
}

func (a *Archive) Type() metadata.ArchiveType { return a.typ }
func (a *Archive) Record() *metadata.Record   { return a.record }

// Entries returns the directory in archive order, duplicates included.
func (a *Archive) Entries() []metadata.Entry {
	out := make([]metadata.Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Lookup returns every entry named name, ignoring case, in directory order.
func (a *Archive) Lookup(name string) []metadata.Entry {
	var out []metadata.Entry
	for _, e := range a.entries {
		if strings.EqualFold(e.Name, name) {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the final entry named name, the one that shadows the others.
func (a *Archive) Last(name string) (metadata.Entry, bool) {
	for i := len(a.entries) - 1; i >= 0; i-- {
		if strings.EqualFold(a.entries[i].Name, name) {
			return a.entries[i], true
		}
	}
	return metadata.Entry{}, false
}

// OpenEntry returns a view of the lump's payload.
func (a *Archive) OpenEntry(e metadata.Entry) (source.ByteSource, error) {
	s, err := source.NewSection(a.src, e.Offset, e.Size)
	if err != nil {
		return nil, fmt.Errorf("opening lump %s: %w", e.Name, err)
	}
	return s, nil
}
