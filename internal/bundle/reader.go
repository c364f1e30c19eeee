// Package bundle reads ZIP-based mod bundles (PK3 and friends): embedded
// base archives, map descriptors and GAMEINFO hints are merged into one
// record.
package bundle

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jchantrell/wadinfo/internal/mapinfo"
	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/pkzip"
	"github.com/jchantrell/wadinfo/internal/source"
	"github.com/jchantrell/wadinfo/internal/utils"
	"github.com/jchantrell/wadinfo/internal/wad"
)

const (
	// DefaultMaxPayloadSize bounds the decompressed size of one embedded
	// base archive.
	DefaultMaxPayloadSize = 256 << 20

	mapNameLimit = 8
	mapsDir      = "maps"
)

var (
	payloadExts = []string{".wad", ".iwad", ".pwad"}
	// descriptor entries in order of preference
	descriptorNames = []string{"ZMAPINFO", "MAPINFO", "UMAPINFO"}
)

type options struct {
	maxDescriptorSize int64
	maxPayloadSize    int64
}

// Option configures Read.
type Option func(*options)

// WithMaxDescriptorSize sets the largest descriptor text that is parsed.
func WithMaxDescriptorSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDescriptorSize = n
		}
	}
}

// WithMaxPayloadSize sets the largest embedded base archive that is
// decompressed.
func WithMaxPayloadSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPayloadSize = n
		}
	}
}

type reader struct {
	zip *pkzip.Reader
	b   *metadata.Builder
	o   options
}

// Read parses the bundle in src. Only a broken outer ZIP structure fails,
// with ErrUnsupportedFormat; problems with embedded files become warnings.
func Read(src source.ByteSource, opts ...Option) (*metadata.Record, error) {
	o := options{
		maxDescriptorSize: mapinfo.DefaultMaxSize,
		maxPayloadSize:    DefaultMaxPayloadSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	zr, err := pkzip.Open(src, pkzip.WithMaxEntrySize(max(o.maxPayloadSize, o.maxDescriptorSize)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", metadata.ErrUnsupportedFormat, err)
	}

	r := &reader{zip: zr, b: metadata.NewBuilder(metadata.KindBundle), o: o}
	for _, w := range zr.Warnings() {
		r.b.Warn("%s", w)
	}

	payloads := 0
	for _, e := range zr.Entries() {
		if e.IsDir() || !slices.Contains(payloadExts, utils.Ext(e.Name)) {
			continue
		}
		payloads++
		r.readPayload(e)
	}
	if payloads == 0 {
		r.b.Warn("no base-archive payload found")
	}

	r.applyDescriptor()
	r.applyGameInfo()

	rec := r.b.Build()
	slog.Debug("Read bundle", "entries", len(zr.Entries()), "payloads", payloads, "maps", rec.MapNames())
	return rec, nil
}

// readPayload parses one embedded base archive. Archives under maps/ hold a
// single map named after the file.
func (r *reader) readPayload(e pkzip.Entry) {
	if e.UncompressedSize > uint64(r.o.maxPayloadSize) {
		r.b.Warn("payload %s is %d bytes, larger than %d, skipped", e.Name, e.UncompressedSize, r.o.maxPayloadSize)
		return
	}
	src, err := r.zip.OpenEntry(e)
	if err != nil {
		r.b.Warn("payload %s: %v", e.Name, err)
		return
	}
	a, err := wad.Open(src, wad.WithContainer(e.Name), wad.WithMaxDescriptorSize(r.o.maxDescriptorSize))
	if err != nil {
		r.b.Warn("payload %s: %v", e.Name, err)
		return
	}

	rec := a.Record()
	for _, ent := range rec.Entries() {
		r.b.AddEntry(ent)
	}

	if strings.EqualFold(e.Dir(), mapsDir) {
		name, cut := utils.LumpNameFromPath(e.Name, mapNameLimit)
		if cut {
			r.b.Warn("entry name exceeds format limit, truncated: %s -> %s", e.Name, name)
		}
		r.b.AddMap(name)
	} else {
		for _, m := range rec.MapNames() {
			r.b.AddMap(m)
		}
	}
	for id, title := range rec.MapTitles() {
		if r.b.HasMap(id) {
			r.b.SetMapTitle(id, title)
		}
	}

	if id, ok := rec.GameID(); ok && r.b.GameID() == "" {
		r.b.SetGameID(id)
	}
	for k, v := range rec.Hints() {
		r.b.SetHint(k, v)
	}
	for _, w := range rec.Warnings() {
		r.b.Warn("%s: %s", e.Name, w)
	}
}

// rootEntry finds a root-level entry whose name without extension is name.
func (r *reader) rootEntry(name string) (pkzip.Entry, bool) {
	for _, e := range r.zip.Entries() {
		if e.IsDir() || e.Dir() != "" {
			continue
		}
		base := e.Base()
		if i := strings.LastIndexByte(base, '.'); i > 0 {
			base = base[:i]
		}
		if strings.EqualFold(base, name) {
			return e, true
		}
	}
	return pkzip.Entry{}, false
}

func (r *reader) readText(e pkzip.Entry) ([]byte, bool) {
	if e.UncompressedSize > uint64(r.o.maxDescriptorSize) {
		r.b.Warn("descriptor %s is %d bytes, larger than %d, ignored", e.Name, e.UncompressedSize, r.o.maxDescriptorSize)
		return nil, false
	}
	src, err := r.zip.OpenEntry(e)
	if err != nil {
		r.b.Warn("descriptor %s: %v", e.Name, err)
		return nil, false
	}
	text, err := src.Bytes(0, src.Size())
	if err != nil {
		r.b.Warn("descriptor %s: %v", e.Name, err)
		return nil, false
	}
	return text, true
}

func (r *reader) applyDescriptor() {
	for _, name := range descriptorNames {
		e, ok := r.rootEntry(name)
		if !ok {
			continue
		}
		if text, ok := r.readText(e); ok {
			mapinfo.Parse(text).Apply(r.b)
			return
		}
	}
}

func (r *reader) applyGameInfo() {
	e, ok := r.rootEntry("GAMEINFO")
	if !ok {
		return
	}
	text, ok := r.readText(e)
	if !ok {
		return
	}
	props := mapinfo.ParseGameInfo(text)
	for k, v := range props {
		r.b.SetHint(k, v)
	}
	if r.b.GameID() != "" {
		return
	}
	if g, ok := wad.GameByIWADName(props["iwad"]); ok {
		r.b.SetGameID(g.ID)
	}
}
