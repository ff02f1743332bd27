// Package api provides the HTTP admin surface for the watchdog: exclusion
// management, ledger inspection, and the manual sweep trigger.
package api

// AddExclusionRequest adds a channel or thread id to the exclusion registry.
type AddExclusionRequest struct {
	ID string `json:"id" binding:"required"`
}
