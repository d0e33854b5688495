// Package catalog maintains the layered material price table: a built-in
// default table, hot-reloadable external price-list files, and an optional
// remote pricing backend. Precedence on lookup is remote > external file >
// default. The table is an immutable snapshot swapped atomically on reload,
// so concurrent readers see either the whole old or whole new table.
package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/estimategenie/quote-engine/internal/resilience"
	"github.com/estimategenie/quote-engine/pkg/pricing"
)

// Provenance identifies which pricing source owns an entry.
type Provenance string

const (
	ProvenanceRemote   Provenance = "remote"
	ProvenanceExternal Provenance = "external-list"
	ProvenanceDefault  Provenance = "default"
)

// PriceEntry is one authoritative material price.
type PriceEntry struct {
	Key         string     `json:"key"`
	Price       float64    `json:"price"`
	Unit        string     `json:"unit"`
	Description string     `json:"description,omitempty"`
	Provenance  Provenance `json:"provenance"`
}

// table is one immutable generation of the price table. Rebuilt wholesale
// on every reload; never mutated after publication.
type table struct {
	entries      map[string]PriceEntry
	externalKeys map[string]struct{}
	mtimes       map[string]time.Time
	sourceFiles  []string
	loadedCount  int
}

// apply overwrites the entry for key with an externally-sourced record,
// inheriting unit and description from the previous layer when blank.
func (t *table) apply(key string, price float64, unit, desc string) {
	prev := t.entries[key]
	if unit == "" {
		unit = prev.Unit
	}
	if unit == "" {
		unit = "unit"
	}
	if desc == "" {
		desc = prev.Description
	}
	if desc == "" {
		desc = strings.ReplaceAll(key, "_", " ")
	}
	t.entries[key] = PriceEntry{
		Key:         key,
		Price:       price,
		Unit:        unit,
		Description: desc,
		Provenance:  ProvenanceExternal,
	}
	t.externalKeys[key] = struct{}{}
}

// Summary reports the outcome of a reload.
type Summary struct {
	LoadedCount int      `json:"keys_loaded"`
	SourceFiles []string `json:"files"`
}

// Status reports catalog configuration and state for the ops surface.
type Status struct {
	Files          []string  `json:"external_files"`
	ExternalKeys   int       `json:"external_keys_count"`
	TotalMaterials int       `json:"total_materials_count"`
	IntervalSecs   float64   `json:"reload_interval_sec"`
	LastCheck      time.Time `json:"last_check"`
	RemoteEnabled  bool      `json:"remote_enabled"`
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithRemote attaches the remote pricing backend.
func WithRemote(client pricing.Client, timeout time.Duration) Option {
	return func(c *Catalog) {
		c.remote = client
		c.remoteTimeout = timeout
	}
}

// WithNow sets the clock, for testing the reload time gate.
func WithNow(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

// Catalog is the layered price table. Safe for concurrent use.
type Catalog struct {
	files         []string
	interval      time.Duration
	remote        pricing.Client
	remoteTimeout time.Duration
	now           func() time.Time

	snapshot  atomic.Pointer[table]
	reloadMu  sync.Mutex
	lastCheck atomic.Int64 // unix nanos of the last mtime check

	// remoteCache pins the first remote answer (hit or miss) per key for
	// the process lifetime. Transport failures are not cached.
	remoteCache sync.Map // key -> *pricing.PriceRecord (nil = known miss)
}

// New builds a catalog over the given price-list files and performs the
// initial load.
func New(files []string, reloadInterval time.Duration, opts ...Option) *Catalog {
	c := &Catalog{
		files:         files,
		interval:      reloadInterval,
		remoteTimeout: 5 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reload()
	return c
}

// Reload rebuilds the table from defaults plus every configured file and
// publishes the new snapshot with a single atomic swap. Malformed files
// are logged and skipped without aborting the remaining files.
func (c *Catalog) Reload() Summary {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	tbl := &table{
		entries:      defaultMaterials(),
		externalKeys: make(map[string]struct{}),
		mtimes:       make(map[string]time.Time),
	}

	for _, path := range c.files {
		abs := path
		if !filepath.IsAbs(abs) {
			if wd, err := os.Getwd(); err == nil {
				abs = filepath.Join(wd, abs)
			}
		}

		info, err := os.Stat(abs)
		if err != nil {
			if !os.IsNotExist(err) {
				zap.L().Warn("catalog: stat price list failed", zap.String("file", abs), zap.Error(err))
			}
			continue
		}

		count, err := loadFile(abs, tbl)
		if err != nil {
			zap.L().Warn("catalog: price list load failed", zap.String("file", abs), zap.Error(err))
			continue
		}

		tbl.sourceFiles = append(tbl.sourceFiles, abs)
		tbl.mtimes[abs] = info.ModTime()
		tbl.loadedCount += count

		zap.L().Info("catalog: price list loaded",
			zap.String("file", abs),
			zap.Int("entries", count),
		)
	}

	c.snapshot.Store(tbl)
	c.lastCheck.Store(c.now().UnixNano())

	return Summary{LoadedCount: tbl.loadedCount, SourceFiles: tbl.sourceFiles}
}

// MaybeReload triggers a full reload if the check interval has elapsed
// and any tracked file's mtime advanced since the last load. Safe to call
// concurrently; a racing pair of callers costs at most one redundant
// reload.
func (c *Catalog) MaybeReload() {
	if len(c.files) == 0 {
		return
	}
	last := c.lastCheck.Load()
	nowNano := c.now().UnixNano()
	if time.Duration(nowNano-last) < c.interval {
		return
	}
	c.lastCheck.Store(nowNano)

	tbl := c.snapshot.Load()
	changed := false
	for _, path := range c.files {
		abs := path
		if !filepath.IsAbs(abs) {
			if wd, err := os.Getwd(); err == nil {
				abs = filepath.Join(wd, abs)
			}
		}
		info, err := os.Stat(abs)
		if err != nil {
			// A tracked file that disappeared (or appeared) counts as a change.
			if _, tracked := tbl.mtimes[abs]; tracked || !os.IsNotExist(err) {
				changed = true
				break
			}
			continue
		}
		if info.ModTime().After(tbl.mtimes[abs]) {
			changed = true
			break
		}
	}
	if changed {
		c.Reload()
	}
}

// Lookup resolves a material key or free-text name to its authoritative
// price. The remote backend is consulted first (one round-trip, cached per
// key for the process lifetime); on remote miss or unavailability the
// in-memory table answers. Unknown keys return found=false and the caller
// substitutes a default unit price.
func (c *Catalog) Lookup(ctx context.Context, keyOrName string) (PriceEntry, bool) {
	key := NormalizeKey(keyOrName)

	if entry, ok := c.lookupRemote(ctx, key); ok {
		return entry, true
	}

	tbl := c.snapshot.Load()
	entry, ok := tbl.entries[key]
	return entry, ok
}

func (c *Catalog) lookupRemote(ctx context.Context, key string) (PriceEntry, bool) {
	if c.remote == nil {
		return PriceEntry{}, false
	}

	if cached, ok := c.remoteCache.Load(key); ok {
		rec, _ := cached.(*pricing.PriceRecord)
		if rec == nil {
			return PriceEntry{}, false
		}
		return remoteEntry(key, rec), true
	}

	ctx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
	defer cancel()

	spec := resilience.RetrySpec{Attempts: 2, BaseDelay: 200 * time.Millisecond, MaxDelay: time.Second}
	rec, err := resilience.RetryVal(ctx, spec, "pricing.GetPrice", func(ctx context.Context) (*pricing.PriceRecord, error) {
		return c.remote.GetPrice(ctx, key)
	})
	if err != nil {
		zap.L().Debug("catalog: remote pricing lookup failed", zap.String("key", key), zap.Error(err))
		return PriceEntry{}, false
	}
	if rec == nil {
		c.remoteCache.Store(key, (*pricing.PriceRecord)(nil))
		return PriceEntry{}, false
	}
	// Pin a copy so a caller reusing or mutating the record cannot
	// change the answer for the rest of the process lifetime.
	pinned := *rec
	c.remoteCache.Store(key, &pinned)
	return remoteEntry(key, &pinned), true
}

func remoteEntry(key string, rec *pricing.PriceRecord) PriceEntry {
	unit := rec.Unit
	if unit == "" {
		unit = "unit"
	}
	return PriceEntry{
		Key:         key,
		Price:       rec.Price,
		Unit:        unit,
		Description: rec.Description,
		Provenance:  ProvenanceRemote,
	}
}

// Search returns up to limit entries whose key or description contains
// the query, ordered by key.
func (c *Catalog) Search(query string, limit int) []PriceEntry {
	if limit <= 0 {
		limit = 10
	}
	q := strings.ToLower(query)
	tbl := c.snapshot.Load()

	var results []PriceEntry
	for key, entry := range tbl.entries {
		if strings.Contains(key, q) || strings.Contains(strings.ToLower(entry.Description), q) {
			results = append(results, entry)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Status reports the catalog's current configuration and load state.
func (c *Catalog) Status() Status {
	tbl := c.snapshot.Load()
	return Status{
		Files:          tbl.sourceFiles,
		ExternalKeys:   len(tbl.externalKeys),
		TotalMaterials: len(tbl.entries),
		IntervalSecs:   c.interval.Seconds(),
		LastCheck:      time.Unix(0, c.lastCheck.Load()),
		RemoteEnabled:  c.remote != nil,
	}
}
