package watchdog

import (
	"sync"
	"time"
)

// LedgerEntry records that a thread's owner was prompted and when the thread
// will be archived absent a response. A thread has at most one entry at a time.
type LedgerEntry struct {
	ThreadID   string
	OwnerID    string
	NotifiedAt time.Time
	CloseAt    time.Time
}

// Ledger is the process-local state shared by the scanner, the closure
// sweeper, the manual sweep, and the action handlers: pending closures plus
// the set of threads already notified during this process's lifetime.
//
// Scanner passes, sweeps, and user actions all mutate it concurrently, so
// every operation holds the mutex. It is deliberately not persisted; a
// restart forgets pending closures (the next scan re-evaluates from scratch).
type Ledger interface {
	// Get returns the entry for threadID and whether one exists.
	Get(threadID string) (LedgerEntry, bool)

	// Put stores the entry if the thread has none yet. Returns false without
	// storing when an entry already exists, so concurrent scanners cannot
	// both claim the same thread.
	Put(entry LedgerEntry) bool

	// Delete removes the entry for threadID, if any.
	Delete(threadID string)

	// ListDue returns all entries whose close time is at or before now.
	ListDue(now time.Time) []LedgerEntry

	// List returns every pending entry.
	List() []LedgerEntry

	// MarkChecked records that threadID was notified in this process lifetime.
	MarkChecked(threadID string)

	// IsChecked reports whether threadID was notified in this process lifetime.
	IsChecked(threadID string) bool

	// ClearChecked re-arms threadID for future notification.
	ClearChecked(threadID string)
}

// MemoryLedger implements Ledger with mutex-guarded maps.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]LedgerEntry
	checked map[string]struct{}
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		entries: make(map[string]LedgerEntry),
		checked: make(map[string]struct{}),
	}
}

// Get returns the entry for threadID and whether one exists.
func (l *MemoryLedger) Get(threadID string) (LedgerEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[threadID]
	return entry, ok
}

// Put stores the entry unless the thread already has one.
func (l *MemoryLedger) Put(entry LedgerEntry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.entries[entry.ThreadID]; exists {
		return false
	}
	l.entries[entry.ThreadID] = entry
	return true
}

// Delete removes the entry for threadID, if any.
func (l *MemoryLedger) Delete(threadID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, threadID)
}

// ListDue returns all entries whose close time is at or before now.
func (l *MemoryLedger) ListDue(now time.Time) []LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var due []LedgerEntry
	for _, entry := range l.entries {
		if !entry.CloseAt.After(now) {
			due = append(due, entry)
		}
	}
	return due
}

// List returns every pending entry.
func (l *MemoryLedger) List() []LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]LedgerEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		entries = append(entries, entry)
	}
	return entries
}

// MarkChecked records that threadID was notified in this process lifetime.
func (l *MemoryLedger) MarkChecked(threadID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checked[threadID] = struct{}{}
}

// IsChecked reports whether threadID was notified in this process lifetime.
func (l *MemoryLedger) IsChecked(threadID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.checked[threadID]
	return ok
}

// ClearChecked re-arms threadID for future notification.
func (l *MemoryLedger) ClearChecked(threadID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.checked, threadID)
}
