package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estimategenie/quote-engine/pkg/pricing"
)

func writePriceList(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// fakePricing is a scriptable remote pricing backend.
type fakePricing struct {
	mu       sync.Mutex
	records  map[string]*pricing.PriceRecord
	err      error
	failures int // fail this many calls before answering
	calls    int
}

func (f *fakePricing) GetPrice(_ context.Context, key string) (*pricing.PriceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, eris.New("pricing: unexpected status 503: maintenance")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records[key], nil
}

func (f *fakePricing) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestLookupDefaults(t *testing.T) {
	cat := New(nil, 10*time.Second)

	entry, ok := cat.Lookup(context.Background(), "tile")
	require.True(t, ok)
	assert.Equal(t, 3.50, entry.Price)
	assert.Equal(t, "sqft", entry.Unit)
	assert.Equal(t, ProvenanceDefault, entry.Provenance)

	_, ok = cat.Lookup(context.Background(), "unobtainium")
	assert.False(t, ok)
}

func TestLookupNormalizesFreeText(t *testing.T) {
	cat := New(nil, 10*time.Second)

	entry, ok := cat.Lookup(context.Background(), "Floor & Wall Tile")
	require.True(t, ok)
	assert.Equal(t, "tile", entry.Key)

	entry, ok = cat.Lookup(context.Background(), "ceramic tile flooring")
	require.True(t, ok)
	assert.Equal(t, "tile", entry.Key)
}

func TestExternalFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := writePriceList(t, dir, "prices.json", `{"tile": {"price": 4.75}}`)

	cat := New([]string{path}, 10*time.Second)

	entry, ok := cat.Lookup(context.Background(), "tile")
	require.True(t, ok)
	assert.Equal(t, 4.75, entry.Price)
	assert.Equal(t, ProvenanceExternal, entry.Provenance)
	// Unit and description inherit from the default layer when the
	// override omits them.
	assert.Equal(t, "sqft", entry.Unit)
	assert.Equal(t, "Ceramic tile", entry.Description)

	// Untouched keys stay default.
	entry, ok = cat.Lookup(context.Background(), "drywall")
	require.True(t, ok)
	assert.Equal(t, 12.50, entry.Price)
	assert.Equal(t, ProvenanceDefault, entry.Provenance)
}

func TestReloadRevertsRemovedKeys(t *testing.T) {
	dir := t.TempDir()
	path := writePriceList(t, dir, "prices.json", `{"tile": {"price": 9.99}}`)

	cat := New([]string{path}, 10*time.Second)
	entry, _ := cat.Lookup(context.Background(), "tile")
	assert.Equal(t, 9.99, entry.Price)

	// Dropping the key from the external list reverts it to the
	// built-in default on the next reload.
	require.NoError(t, os.WriteFile(path, []byte(`{"drywall": {"price": 11.00}}`), 0o644))
	cat.Reload()

	entry, ok := cat.Lookup(context.Background(), "tile")
	require.True(t, ok)
	assert.Equal(t, 3.50, entry.Price)
	assert.Equal(t, ProvenanceDefault, entry.Provenance)
}

func TestMaybeReloadTimeGate(t *testing.T) {
	dir := t.TempDir()
	path := writePriceList(t, dir, "prices.json", `{"tile": {"price": 5.00}}`)

	clock := time.Now()
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}

	cat := New([]string{path}, 10*time.Second, WithNow(now))
	entry, _ := cat.Lookup(context.Background(), "tile")
	require.Equal(t, 5.00, entry.Price)

	// Change the file with a clearly newer mtime.
	require.NoError(t, os.WriteFile(path, []byte(`{"tile": {"price": 6.00}}`), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now().Add(time.Hour), time.Now().Add(time.Hour)))

	// Inside the interval the change is not picked up.
	advance(3 * time.Second)
	cat.MaybeReload()
	entry, _ = cat.Lookup(context.Background(), "tile")
	assert.Equal(t, 5.00, entry.Price)

	// Past the interval it is.
	advance(10 * time.Second)
	cat.MaybeReload()
	entry, _ = cat.Lookup(context.Background(), "tile")
	assert.Equal(t, 6.00, entry.Price)
}

func TestMaybeReloadDetectsRemovedFile(t *testing.T) {
	dir := t.TempDir()
	path := writePriceList(t, dir, "prices.json", `{"tile": {"price": 7.00}}`)

	clock := time.Now()
	cat := New([]string{path}, time.Nanosecond, WithNow(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	entry, _ := cat.Lookup(context.Background(), "tile")
	require.Equal(t, 7.00, entry.Price)

	require.NoError(t, os.Remove(path))
	cat.MaybeReload()

	entry, ok := cat.Lookup(context.Background(), "tile")
	require.True(t, ok)
	assert.Equal(t, 3.50, entry.Price)
}

func TestRemoteTakesPrecedence(t *testing.T) {
	remote := &fakePricing{records: map[string]*pricing.PriceRecord{
		"tile": {Key: "tile", Price: 4.20, Unit: "sqft", Description: "Regional tile"},
	}}
	cat := New(nil, 10*time.Second, WithRemote(remote, time.Second))

	entry, ok := cat.Lookup(context.Background(), "tile")
	require.True(t, ok)
	assert.Equal(t, 4.20, entry.Price)
	assert.Equal(t, ProvenanceRemote, entry.Provenance)
}

func TestRemoteAnswerIsPinned(t *testing.T) {
	remote := &fakePricing{records: map[string]*pricing.PriceRecord{
		"tile": {Key: "tile", Price: 4.20, Unit: "sqft"},
	}}
	cat := New(nil, 10*time.Second, WithRemote(remote, time.Second))

	cat.Lookup(context.Background(), "tile")
	remote.mu.Lock()
	remote.records["tile"].Price = 99.0
	remote.mu.Unlock()

	entry, _ := cat.Lookup(context.Background(), "tile")
	assert.Equal(t, 4.20, entry.Price)
	assert.Equal(t, 1, remote.callCount())
}

func TestRemoteMissFallsThrough(t *testing.T) {
	remote := &fakePricing{records: map[string]*pricing.PriceRecord{}}
	cat := New(nil, 10*time.Second, WithRemote(remote, time.Second))

	entry, ok := cat.Lookup(context.Background(), "tile")
	require.True(t, ok)
	assert.Equal(t, 3.50, entry.Price)
	assert.Equal(t, ProvenanceDefault, entry.Provenance)

	// The miss is cached; a second lookup does not hit the remote.
	cat.Lookup(context.Background(), "tile")
	assert.Equal(t, 1, remote.callCount())
}

func TestRemoteFailureIsNotCached(t *testing.T) {
	remote := &fakePricing{err: eris.New("pricing: unexpected status 401: bad key")}
	cat := New(nil, 10*time.Second, WithRemote(remote, time.Second))

	entry, ok := cat.Lookup(context.Background(), "tile")
	require.True(t, ok)
	assert.Equal(t, 3.50, entry.Price)

	cat.Lookup(context.Background(), "tile")
	assert.Equal(t, 2, remote.callCount())
}

func TestRemoteTransientFailureIsRetried(t *testing.T) {
	remote := &fakePricing{
		failures: 1,
		records: map[string]*pricing.PriceRecord{
			"tile": {Key: "tile", Price: 4.20, Unit: "sqft"},
		},
	}
	cat := New(nil, 10*time.Second, WithRemote(remote, 5*time.Second))

	entry, ok := cat.Lookup(context.Background(), "tile")
	require.True(t, ok)
	assert.Equal(t, 4.20, entry.Price)
	assert.Equal(t, ProvenanceRemote, entry.Provenance)
	assert.Equal(t, 2, remote.callCount())

	// The retried answer is cached like any other hit.
	cat.Lookup(context.Background(), "tile")
	assert.Equal(t, 2, remote.callCount())
}

func TestSearch(t *testing.T) {
	cat := New(nil, 10*time.Second)

	results := cat.Search("tile", 10)
	require.NotEmpty(t, results)
	keys := make([]string, 0, len(results))
	for _, e := range results {
		keys = append(keys, e.Key)
	}
	assert.Contains(t, keys, "tile")

	limited := cat.Search("e", 2)
	assert.Len(t, limited, 2)

	assert.Empty(t, cat.Search("zzzz", 10))
}

func TestStatus(t *testing.T) {
	dir := t.TempDir()
	path := writePriceList(t, dir, "prices.json", `{"tile": {"price": 4.00}, "custom_widget": {"price": 2.00, "unit": "each"}}`)

	cat := New([]string{path}, 10*time.Second)
	status := cat.Status()

	assert.Equal(t, []string{path}, status.Files)
	assert.Equal(t, 2, status.ExternalKeys)
	// Defaults plus the one genuinely new key.
	assert.Equal(t, len(defaultMaterials())+1, status.TotalMaterials)
	assert.Equal(t, 10.0, status.IntervalSecs)
	assert.False(t, status.RemoteEnabled)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writePriceList(t, dir, "prices.json", `{"tile": {"price": 5.55}}`)

	cat := New([]string{path}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cat.Watch(ctx) }()

	// Give the watcher a beat to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"tile": {"price": 6.66}}`), 0o644))

	assert.Eventually(t, func() bool {
		entry, _ := cat.Lookup(context.Background(), "tile")
		return entry.Price == 6.66
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
