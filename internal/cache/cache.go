// Package cache memoizes parsed file metadata keyed by path and invalidates
// it when the file's identity (modification time and size) changes.
package cache

import (
	"container/list"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jchantrell/wadinfo/internal/bundle"
	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/source"
	"github.com/jchantrell/wadinfo/internal/wad"
)

// DefaultCapacity is the entry limit used when none is configured.
const DefaultCapacity = 512

// Opener gives the cache access to files.
type Opener interface {
	Stat(path string) (metadata.Identity, error)
	Open(path string) (source.ReadCloser, error)
}

type fsOpener struct{}

func (fsOpener) Stat(path string) (metadata.Identity, error) { return source.Stat(path) }

func (fsOpener) Open(path string) (source.ReadCloser, error) { return source.OpenFile(path) }

// FileSystem returns the Opener backed by the local file system.
func FileSystem() Opener { return fsOpener{} }

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity bounds the number of cached records. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n >= 0 {
			c.capacity = n
		}
	}
}

// WithOpener replaces the local file system, mainly for tests.
func WithOpener(o Opener) Option {
	return func(c *Cache) {
		if o != nil {
			c.opener = o
		}
	}
}

// WithWADOptions sets the options passed to the base archive reader.
func WithWADOptions(opts ...wad.Option) Option {
	return func(c *Cache) {
		c.wadOpts = opts
	}
}

// WithBundleOptions sets the options passed to the bundle reader.
func WithBundleOptions(opts ...bundle.Option) Option {
	return func(c *Cache) {
		c.bundleOpts = opts
	}
}

// WithClock replaces time.Now for access times.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Stats counts cache activity since New.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Stale     uint64
	Failures  uint64
	Evictions uint64
	Entries   int
}

// EntryInfo describes one cached record.
type EntryInfo struct {
	Identity   metadata.Identity
	Record     *metadata.Record
	LastAccess time.Time
}

// flight is one running parse. Requests that arrive while it runs are
// applied when it completes.
type flight struct {
	dropped bool
	evicted bool
}

type entry struct {
	path       string
	identity   metadata.Identity
	record     *metadata.Record
	lastAccess time.Time
}

// Cache is safe for concurrent use. Records it returns are immutable and may
// be shared freely.
type Cache struct {
	opener     Opener
	capacity   int
	wadOpts    []wad.Option
	bundleOpts []bundle.Option
	now        func() time.Time

	flights singleflight.Group

	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List // front is most recently used
	inflight map[string][]*flight
	stats    Stats
}

// New returns an empty cache reading from the local file system unless
// WithOpener says otherwise.
func New(opts ...Option) *Cache {
	c := &Cache{
		opener:   fsOpener{},
		capacity: DefaultCapacity,
		now:      time.Now,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		inflight: make(map[string][]*flight),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the record for path, parsing the file only when no record is
// cached for its current identity. Concurrent calls for the same path share
// one parse. Failures are returned as *metadata.ParseError and never cached.
func (c *Cache) Get(path string) (*metadata.Record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &metadata.ParseError{Path: path, Err: err}
	}
	path = abs

	id, err := c.opener.Stat(path)
	if err != nil {
		c.fail(path)
		return nil, &metadata.ParseError{Path: path, Err: err}
	}

	if rec, ok := c.lookup(path, id); ok {
		return rec, nil
	}

	v, err, shared := c.flights.Do(path, func() (any, error) {
		return c.compute(path, id)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Shared in-flight parse", "path", path)
	}
	return v.(*metadata.Record), nil
}

// lookup returns the cached record when its identity matches.
func (c *Cache) lookup(path string, id metadata.Identity) (*metadata.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[path]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if !e.identity.Equal(id) {
		return nil, false
	}
	e.lastAccess = c.now()
	c.lru.MoveToFront(el)
	c.stats.Hits++
	return e.record, true
}

func (c *Cache) compute(path string, id metadata.Identity) (*metadata.Record, error) {
	// A flight that finished between lookup and Do has already stored it.
	if rec, ok := c.lookup(path, id); ok {
		return rec, nil
	}

	c.mu.Lock()
	stale := false
	if el, ok := c.entries[path]; ok {
		stale = !el.Value.(*entry).identity.Equal(id)
	}
	f := &flight{}
	c.inflight[path] = append(c.inflight[path], f)
	c.mu.Unlock()

	start := time.Now()
	rec, err := c.load(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishLocked(path, f)

	if err != nil {
		c.stats.Failures++
		// an invalidated flight no longer owns the entry
		if !f.dropped {
			c.removeLocked(path)
		}
		slog.Debug("Parse failed", "path", path, "error", err)
		return nil, &metadata.ParseError{Path: path, Err: err}
	}

	if stale {
		c.stats.Stale++
	} else {
		c.stats.Misses++
	}
	slog.Debug("Parsed", "path", path, "kind", rec.Kind(), "stale", stale, "elapsed", time.Since(start))

	switch {
	case f.dropped:
		return rec, nil
	case f.evicted:
		c.removeLocked(path)
		c.stats.Evictions++
		slog.Debug("Applied deferred eviction", "path", path)
		return rec, nil
	}

	e := &entry{path: path, identity: id, record: rec, lastAccess: c.now()}
	if el, ok := c.entries[path]; ok {
		el.Value = e
		c.lru.MoveToFront(el)
	} else {
		c.entries[path] = c.lru.PushFront(e)
	}
	if c.capacity > 0 && c.lru.Len() > c.capacity {
		c.evictLocked(c.capacity)
	}
	return rec, nil
}

// finishLocked removes f from the flights running for path.
func (c *Cache) finishLocked(path string, f *flight) {
	flights := c.inflight[path]
	for i, g := range flights {
		if g == f {
			flights = append(flights[:i], flights[i+1:]...)
			break
		}
	}
	if len(flights) == 0 {
		delete(c.inflight, path)
	} else {
		c.inflight[path] = flights
	}
}

func (c *Cache) busyLocked(path string) bool {
	return len(c.inflight[path]) > 0
}

func (c *Cache) fail(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Failures++
	if !c.busyLocked(path) {
		c.removeLocked(path)
	}
}

// Invalidate forces the next Get for path to parse the file again. A parse
// already running for path still answers its callers but is not stored, and
// later callers do not join it.
func (c *Cache) Invalidate(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.inflight[path] {
		f.dropped = true
	}
	c.flights.Forget(path)
	c.removeLocked(path)
}

// EvictLeastRecentlyUsed removes the least recently used records until at
// most n remain and returns how many were removed. A path with a parse in
// flight is removed when that parse completes instead.
func (c *Cache) EvictLeastRecentlyUsed(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked(max(n, 0))
}

func (c *Cache) evictLocked(n int) int {
	removed := 0
	for el := c.lru.Back(); el != nil && c.lru.Len() > n; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if c.busyLocked(e.path) {
			for _, f := range c.inflight[e.path] {
				f.evicted = true
			}
		} else {
			c.lru.Remove(el)
			delete(c.entries, e.path)
			removed++
		}
		el = prev
	}
	c.stats.Evictions += uint64(removed)
	if removed > 0 {
		slog.Debug("Evicted cache entries", "count", removed, "remaining", c.lru.Len())
	}
	return removed
}

func (c *Cache) removeLocked(path string) {
	if el, ok := c.entries[path]; ok {
		c.lru.Remove(el)
		delete(c.entries, path)
	}
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the counters and the current entry count.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.lru.Len()
	return s
}

// Entries lists the cached records, most recently used first.
func (c *Cache) Entries() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EntryInfo, 0, c.lru.Len())
	for el := c.lru.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		out = append(out, EntryInfo{Identity: e.identity, Record: e.record, LastAccess: e.lastAccess})
	}
	return out
}
