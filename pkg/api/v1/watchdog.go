// Package v1 defines the public wire types of the threadwarden admin API.
package v1

import "time"

// ExclusionInfo is an exclusion registry entry as returned by the API.
type ExclusionInfo struct {
	ID string `json:"id"`
}

// ExclusionListResponse wraps the full excluded id set.
type ExclusionListResponse struct {
	Exclusions []ExclusionInfo `json:"exclusions"`
	Count      int             `json:"count"`
}

// PendingClosureInfo is a ledger entry as returned by the API.
type PendingClosureInfo struct {
	ThreadID   string    `json:"thread_id"`
	OwnerID    string    `json:"owner_id"`
	NotifiedAt time.Time `json:"notified_at"`
	CloseAt    time.Time `json:"close_at"`
}

// PendingClosureListResponse wraps the current pending closures.
type PendingClosureListResponse struct {
	Closures []PendingClosureInfo `json:"closures"`
	Count    int                  `json:"count"`
}

// SweepResponse reports the outcome of a manually triggered pass.
type SweepResponse struct {
	Processed    int `json:"processed"`
	Notified     int `json:"notified"`
	AutoArchived int `json:"auto_archived"`
	Skipped      int `json:"skipped"`
	Errors       int `json:"errors"`
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
