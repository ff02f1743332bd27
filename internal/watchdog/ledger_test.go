package watchdog

import (
	"testing"
	"time"
)

func TestMemoryLedger_PutGet(t *testing.T) {
	l := NewMemoryLedger()
	now := time.Now()

	entry := LedgerEntry{ThreadID: "t-1", OwnerID: "u-1", NotifiedAt: now, CloseAt: now.Add(24 * time.Hour)}
	if !l.Put(entry) {
		t.Fatal("expected Put to succeed for new thread")
	}

	got, ok := l.Get("t-1")
	if !ok {
		t.Fatal("expected entry for t-1")
	}
	if got.OwnerID != "u-1" {
		t.Errorf("expected owner u-1, got %s", got.OwnerID)
	}
}

func TestMemoryLedger_PutRejectsDuplicate(t *testing.T) {
	l := NewMemoryLedger()
	now := time.Now()

	first := LedgerEntry{ThreadID: "t-1", CloseAt: now.Add(time.Hour)}
	second := LedgerEntry{ThreadID: "t-1", CloseAt: now.Add(2 * time.Hour)}

	if !l.Put(first) {
		t.Fatal("first Put should succeed")
	}
	if l.Put(second) {
		t.Fatal("second Put should be rejected while an entry exists")
	}

	got, _ := l.Get("t-1")
	if !got.CloseAt.Equal(first.CloseAt) {
		t.Error("existing entry must not be overwritten")
	}

	// Once deleted, the thread can be claimed again.
	l.Delete("t-1")
	if !l.Put(second) {
		t.Error("Put should succeed after delete")
	}
}

func TestMemoryLedger_ListDue(t *testing.T) {
	l := NewMemoryLedger()
	now := time.Now()

	l.Put(LedgerEntry{ThreadID: "due-1", CloseAt: now.Add(-time.Minute)})
	l.Put(LedgerEntry{ThreadID: "due-2", CloseAt: now})
	l.Put(LedgerEntry{ThreadID: "pending", CloseAt: now.Add(time.Hour)})

	due := l.ListDue(now)
	if len(due) != 2 {
		t.Fatalf("expected 2 due entries, got %d", len(due))
	}
	for _, entry := range due {
		if entry.ThreadID == "pending" {
			t.Error("pending entry must not be due")
		}
	}
}

func TestMemoryLedger_CheckedSet(t *testing.T) {
	l := NewMemoryLedger()

	if l.IsChecked("t-1") {
		t.Error("new ledger should have no checked threads")
	}

	l.MarkChecked("t-1")
	if !l.IsChecked("t-1") {
		t.Error("expected t-1 to be checked")
	}

	l.ClearChecked("t-1")
	if l.IsChecked("t-1") {
		t.Error("expected t-1 to be re-armed after clear")
	}

	// Clearing an unknown id is a no-op.
	l.ClearChecked("unknown")
}
