// Package store provides the durable key-value storage backing the
// exclusion registry.
package store

import (
	"context"
	"time"
)

// ExclusionRecord is the persisted form of an exclusion entry, keyed by the
// excluded resource id (a forum channel id or an individual thread id).
type ExclusionRecord struct {
	ID          string
	Excluded    bool
	AddedAt     time.Time
	LastUpdated time.Time
}

// ExclusionStore is the document-style durable store contract: get/set/delete
// keyed by opaque id, a range query for cleanup, and batch delete.
type ExclusionStore interface {
	// Get returns the record for id, or nil if absent.
	Get(ctx context.Context, id string) (*ExclusionRecord, error)

	// Set upserts the record.
	Set(ctx context.Context, record *ExclusionRecord) error

	// Delete removes the record for id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns all records.
	List(ctx context.Context) ([]*ExclusionRecord, error)

	// ListOlderThan returns the ids of records whose added_at precedes cutoff.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)

	// DeleteBatch removes all records with the given ids.
	DeleteBatch(ctx context.Context, ids []string) error

	Close() error
}
