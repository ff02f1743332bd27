package watchdog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/common/config"
	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/store"
)

// ExclusionRegistry gates which channels and threads the scanner may act on.
// The durable store owns the records; the registry keeps a read-through cache
// rebuilt wholesale when its TTL elapses. Store failures degrade to the cached
// (or empty) set rather than failing the caller - an unreachable store means
// "not excluded".
type ExclusionRegistry struct {
	store  store.ExclusionStore
	cfg    config.WatchdogConfig
	logger *logger.Logger

	mu          sync.Mutex
	cache       map[string]struct{}
	refreshedAt time.Time
}

// NewExclusionRegistry creates a registry over the given durable store.
func NewExclusionRegistry(st store.ExclusionStore, cfg config.WatchdogConfig, log *logger.Logger) *ExclusionRegistry {
	return &ExclusionRegistry{
		store:  st,
		cfg:    cfg,
		logger: log.WithFields(zap.String("component", "exclusion-registry")),
		cache:  make(map[string]struct{}),
	}
}

// IsExcluded reports whether id is excluded, refreshing the cache first if its
// TTL has elapsed. A failed refresh serves the stale cache with a warning.
func (r *ExclusionRegistry) IsExcluded(ctx context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refreshIfStale(ctx)
	_, excluded := r.cache[id]
	return excluded
}

// Add marks id as excluded in the durable store and the cache. Idempotent.
func (r *ExclusionRegistry) Add(ctx context.Context, id string) error {
	now := time.Now().UTC()
	record := &store.ExclusionRecord{
		ID:          id,
		Excluded:    true,
		AddedAt:     now,
		LastUpdated: now,
	}
	if err := r.store.Set(ctx, record); err != nil {
		// Keep the in-memory view correct even when the store is down.
		r.logger.Warn("failed to persist exclusion, keeping in memory only",
			zap.String("id", id), zap.Error(err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[id] = struct{}{}
	return nil
}

// Remove deletes the durable record and the cache entry. Idempotent.
func (r *ExclusionRegistry) Remove(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		r.logger.Warn("failed to delete exclusion from store",
			zap.String("id", id), zap.Error(err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, id)
	return nil
}

// List forces a refresh and returns the full excluded set.
func (r *ExclusionRegistry) List(ctx context.Context) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refresh(ctx)

	ids := make([]string, 0, len(r.cache))
	for id := range r.cache {
		ids = append(ids, id)
	}
	return ids
}

// refreshIfStale refreshes the cache when the TTL has elapsed. Callers hold r.mu.
func (r *ExclusionRegistry) refreshIfStale(ctx context.Context) {
	if time.Since(r.refreshedAt) < r.cfg.ExclusionCacheTTL {
		return
	}
	r.refresh(ctx)
}

// refresh rebuilds the cache wholesale from the durable store. Callers hold r.mu.
// On failure the previous cache is kept and served stale.
func (r *ExclusionRegistry) refresh(ctx context.Context) {
	records, err := r.store.List(ctx)
	if err != nil {
		r.logger.Warn("exclusion refresh failed, serving stale cache", zap.Error(err))
		// Push the next attempt out a little so a dead store is not hammered
		// on every membership check.
		r.refreshedAt = time.Now().Add(-r.cfg.ExclusionCacheTTL + 30*time.Second)
		return
	}

	cache := make(map[string]struct{}, len(records))
	for _, record := range records {
		// A record with excluded=false is logically absent.
		if record.Excluded {
			cache[record.ID] = struct{}{}
		}
	}
	r.cache = cache
	r.refreshedAt = time.Now()

	if r.cfg.ExclusionCleanupEnabled {
		r.cleanupStale(ctx)
	}
}

// cleanupStale deletes durable records older than the configured maximum age,
// regardless of their excluded flag. Best-effort; gated by configuration
// because expiring still-active exclusions is surprising. Callers hold r.mu.
func (r *ExclusionRegistry) cleanupStale(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.cfg.ExclusionMaxAge)
	ids, err := r.store.ListOlderThan(ctx, cutoff)
	if err != nil {
		r.logger.Warn("exclusion cleanup query failed", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	if err := r.store.DeleteBatch(ctx, ids); err != nil {
		r.logger.Warn("exclusion cleanup delete failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		delete(r.cache, id)
	}
	r.logger.Info("cleaned up stale exclusions", zap.Int("count", len(ids)))
}
