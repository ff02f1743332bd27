package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/threadwarden/threadwarden/internal/common/config"
	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/store"
)

// fakeExclusionStore is an in-memory store.ExclusionStore with injectable
// failures for exercising the fail-open paths.
type fakeExclusionStore struct {
	mu      sync.Mutex
	records map[string]*store.ExclusionRecord

	failList   bool
	failSet    bool
	failDelete bool
	listCalls  int
}

func newFakeExclusionStore() *fakeExclusionStore {
	return &fakeExclusionStore{records: make(map[string]*store.ExclusionRecord)}
}

func (f *fakeExclusionStore) Get(_ context.Context, id string) (*store.ExclusionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id], nil
}

func (f *fakeExclusionStore) Set(_ context.Context, record *store.ExclusionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errors.New("store down")
	}
	copied := *record
	f.records[record.ID] = &copied
	return nil
}

func (f *fakeExclusionStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errors.New("store down")
	}
	delete(f.records, id)
	return nil
}

func (f *fakeExclusionStore) List(_ context.Context) ([]*store.ExclusionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList {
		return nil, errors.New("store down")
	}
	records := make([]*store.ExclusionRecord, 0, len(f.records))
	for _, record := range f.records {
		records = append(records, record)
	}
	return records, nil
}

func (f *fakeExclusionStore) ListOlderThan(_ context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, record := range f.records {
		if record.AddedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeExclusionStore) DeleteBatch(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.records, id)
	}
	return nil
}

func (f *fakeExclusionStore) Close() error { return nil }

func testWatchdogConfig() config.WatchdogConfig {
	return config.WatchdogConfig{
		InactivityThreshold: 48 * time.Hour,
		GracePeriod:         24 * time.Hour,
		NotifyDelay:         2 * time.Second,
		ExclusionCacheTTL:   5 * time.Minute,
		ExclusionMaxAge:     30 * 24 * time.Hour,
	}
}

func TestExclusionRegistryAddRemove(t *testing.T) {
	ctx := context.Background()
	st := newFakeExclusionStore()
	registry := NewExclusionRegistry(st, testWatchdogConfig(), logger.Default())

	if registry.IsExcluded(ctx, "thread-1") {
		t.Fatal("expected thread-1 not excluded initially")
	}

	if err := registry.Add(ctx, "thread-1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !registry.IsExcluded(ctx, "thread-1") {
		t.Fatal("expected thread-1 excluded after Add")
	}

	// Adding again is a no-op, not an error.
	if err := registry.Add(ctx, "thread-1"); err != nil {
		t.Fatalf("second Add failed: %v", err)
	}

	if err := registry.Remove(ctx, "thread-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if registry.IsExcluded(ctx, "thread-1") {
		t.Fatal("expected thread-1 not excluded after Remove")
	}

	// Removing a missing id is fine too.
	if err := registry.Remove(ctx, "thread-unknown"); err != nil {
		t.Fatalf("Remove of missing id failed: %v", err)
	}
}

func TestExclusionRegistryPersistsThroughStore(t *testing.T) {
	ctx := context.Background()
	st := newFakeExclusionStore()
	cfg := testWatchdogConfig()

	first := NewExclusionRegistry(st, cfg, logger.Default())
	if err := first.Add(ctx, "channel-9"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// A fresh registry over the same store sees the durable record.
	second := NewExclusionRegistry(st, cfg, logger.Default())
	if !second.IsExcluded(ctx, "channel-9") {
		t.Fatal("expected durable exclusion to survive a registry restart")
	}
}

func TestExclusionRegistryCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	st := newFakeExclusionStore()
	registry := NewExclusionRegistry(st, testWatchdogConfig(), logger.Default())

	registry.IsExcluded(ctx, "a")
	registry.IsExcluded(ctx, "b")
	registry.IsExcluded(ctx, "c")

	st.mu.Lock()
	calls := st.listCalls
	st.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected a single store refresh within the TTL, got %d", calls)
	}
}

func TestExclusionRegistryFailOpen(t *testing.T) {
	ctx := context.Background()
	st := newFakeExclusionStore()
	registry := NewExclusionRegistry(st, testWatchdogConfig(), logger.Default())

	if err := registry.Add(ctx, "thread-2"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Break the store and force the next refresh; the stale cache must still
	// answer membership checks.
	st.mu.Lock()
	st.failList = true
	st.mu.Unlock()
	registry.mu.Lock()
	registry.refreshedAt = time.Time{}
	registry.mu.Unlock()

	if !registry.IsExcluded(ctx, "thread-2") {
		t.Fatal("expected stale cache to be served when the store is down")
	}

	// Add keeps working in memory while the store rejects writes.
	st.mu.Lock()
	st.failSet = true
	st.mu.Unlock()
	if err := registry.Add(ctx, "thread-3"); err != nil {
		t.Fatalf("Add with failing store returned error: %v", err)
	}
	if !registry.IsExcluded(ctx, "thread-3") {
		t.Fatal("expected in-memory exclusion despite store failure")
	}
}

func TestExclusionRegistryListForcesRefresh(t *testing.T) {
	ctx := context.Background()
	st := newFakeExclusionStore()
	registry := NewExclusionRegistry(st, testWatchdogConfig(), logger.Default())

	registry.IsExcluded(ctx, "seed")

	// Write directly to the store, bypassing the registry cache.
	now := time.Now().UTC()
	if err := st.Set(ctx, &store.ExclusionRecord{ID: "direct", Excluded: true, AddedAt: now, LastUpdated: now}); err != nil {
		t.Fatalf("direct Set failed: %v", err)
	}

	ids := registry.List(ctx)
	found := false
	for _, id := range ids {
		if id == "direct" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected List to refresh and include the direct write, got %v", ids)
	}
}

func TestExclusionRegistryCleanup(t *testing.T) {
	ctx := context.Background()
	st := newFakeExclusionStore()
	cfg := testWatchdogConfig()
	cfg.ExclusionCleanupEnabled = true

	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	if err := st.Set(ctx, &store.ExclusionRecord{ID: "ancient", Excluded: true, AddedAt: old, LastUpdated: old}); err != nil {
		t.Fatalf("seed Set failed: %v", err)
	}
	fresh := time.Now().UTC()
	if err := st.Set(ctx, &store.ExclusionRecord{ID: "recent", Excluded: true, AddedAt: fresh, LastUpdated: fresh}); err != nil {
		t.Fatalf("seed Set failed: %v", err)
	}

	registry := NewExclusionRegistry(st, cfg, logger.Default())
	if registry.IsExcluded(ctx, "ancient") {
		t.Fatal("expected ancient record to be cleaned up on refresh")
	}
	if !registry.IsExcluded(ctx, "recent") {
		t.Fatal("expected recent record to survive cleanup")
	}

	st.mu.Lock()
	_, exists := st.records["ancient"]
	st.mu.Unlock()
	if exists {
		t.Fatal("expected ancient record deleted from the store")
	}
}
