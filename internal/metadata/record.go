package metadata

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// Kind is the reader a record came from.
type Kind int

const (
	KindUnknown Kind = iota
	KindBaseArchive
	KindBundle
	KindExecutable
)

func (k Kind) String() string {
	switch k {
	case KindBaseArchive:
		return "base-archive"
	case KindBundle:
		return "bundle"
	case KindExecutable:
		return "executable"
	default:
		return "unknown"
	}
}

// ArchiveType distinguishes primary (IWAD) from patch (PWAD) base archives.
type ArchiveType int

const (
	ArchiveNone ArchiveType = iota
	ArchiveIWAD
	ArchivePWAD
)

func (t ArchiveType) String() string {
	switch t {
	case ArchiveIWAD:
		return "IWAD"
	case ArchivePWAD:
		return "PWAD"
	default:
		return ""
	}
}

// EntryFlags carry format-specific classification of a directory entry.
type EntryFlags uint8

const (
	// FlagMarker marks a zero-size entry that starts a map.
	FlagMarker EntryFlags = 1 << iota
	// FlagMapData marks one of the fixed lumps that belong to a map.
	FlagMapData
	// FlagNamespace marks *_START / *_END style delimiters.
	FlagNamespace
)

func (f EntryFlags) Has(flag EntryFlags) bool {
	return f&flag != 0
}

// Entry is one named region of an archive's payload.
type Entry struct {
	Name   string
	Offset int64
	Size   int64
	Flags  EntryFlags
	// Container is the name of the bundle entry the archive was read from,
	// empty for top-level archives.
	Container string
}

// Record is the normalized result of a parse. It is never modified after
// Build, so it can be shared between goroutines without copying.
type Record struct {
	kind        Kind
	archiveType ArchiveType
	entries     []Entry
	mapNames    []string
	titles      map[string]string
	gameID      string
	hints       map[string]string
	version     string
	product     string
	description string
	family      string
	warnings    []string
}

func (r *Record) Kind() Kind               { return r.kind }
func (r *Record) ArchiveType() ArchiveType { return r.archiveType }

// Entries returns a copy of the directory in archive order.
func (r *Record) Entries() []Entry {
	return slices.Clone(r.entries)
}

func (r *Record) EntryCount() int {
	return len(r.entries)
}

// MapNames returns the discovered map identifiers in discovery order.
func (r *Record) MapNames() []string {
	return slices.Clone(r.mapNames)
}

func (r *Record) HasMap(name string) bool {
	return slices.Contains(r.mapNames, strings.ToUpper(name))
}

// MapTitle returns the descriptor title of a map, falling back to the raw
// identifier when no descriptor named it.
func (r *Record) MapTitle(name string) string {
	name = strings.ToUpper(name)
	if t, ok := r.titles[name]; ok && t != "" {
		return t
	}
	return name
}

// MapTitles returns a copy of the descriptor titles keyed by map identifier.
func (r *Record) MapTitles() map[string]string {
	return maps.Clone(r.titles)
}

func (r *Record) GameID() (string, bool) {
	return r.gameID, r.gameID != ""
}

// Hints returns game-type hints from a textual descriptor.
func (r *Record) Hints() map[string]string {
	return maps.Clone(r.hints)
}

func (r *Record) Hint(key string) (string, bool) {
	v, ok := r.hints[strings.ToLower(key)]
	return v, ok
}

func (r *Record) Version() (string, bool) {
	return r.version, r.version != ""
}

func (r *Record) Product() string     { return r.product }
func (r *Record) Description() string { return r.description }
func (r *Record) Family() string      { return r.family }

func (r *Record) Warnings() []string {
	return slices.Clone(r.warnings)
}

// Equal reports whether two records hold the same content.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	return reflect.DeepEqual(*r, *o)
}

// Builder accumulates a record. It is not safe for concurrent use.
type Builder struct {
	r Record
}

func NewBuilder(kind Kind) *Builder {
	return &Builder{r: Record{
		kind:   kind,
		titles: map[string]string{},
		hints:  map[string]string{},
	}}
}

func (b *Builder) SetArchiveType(t ArchiveType) *Builder {
	b.r.archiveType = t
	return b
}

func (b *Builder) AddEntry(e Entry) *Builder {
	b.r.entries = append(b.r.entries, e)
	return b
}

// AddMap adds an upper-cased map identifier unless already present.
func (b *Builder) AddMap(name string) *Builder {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name != "" && !slices.Contains(b.r.mapNames, name) {
		b.r.mapNames = append(b.r.mapNames, name)
	}
	return b
}

func (b *Builder) HasMap(name string) bool {
	return slices.Contains(b.r.mapNames, strings.ToUpper(name))
}

// SetMapTitle records a display title. Empty titles are ignored.
func (b *Builder) SetMapTitle(name, title string) *Builder {
	if title = strings.TrimSpace(title); title != "" {
		b.r.titles[strings.ToUpper(name)] = title
	}
	return b
}

func (b *Builder) SetGameID(id string) *Builder {
	b.r.gameID = id
	return b
}

func (b *Builder) GameID() string {
	return b.r.gameID
}

func (b *Builder) SetHint(key, value string) *Builder {
	b.r.hints[strings.ToLower(key)] = value
	return b
}

func (b *Builder) SetVersion(v string) *Builder {
	b.r.version = v
	return b
}

func (b *Builder) SetProduct(p string) *Builder {
	b.r.product = p
	return b
}

func (b *Builder) Product() string {
	return b.r.product
}

func (b *Builder) SetDescription(d string) *Builder {
	b.r.description = d
	return b
}

func (b *Builder) SetFamily(f string) *Builder {
	b.r.family = f
	return b
}

func (b *Builder) Warn(format string, args ...any) *Builder {
	b.r.warnings = append(b.r.warnings, fmt.Sprintf(format, args...))
	return b
}

// Build returns the finished record. The builder must not be used afterwards.
func (b *Builder) Build() *Record {
	r := b.r
	b.r = Record{}
	return &r
}
