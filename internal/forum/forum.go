// Package forum defines the platform-neutral view of the monitored forum:
// the thread model and the client operations the lifecycle manager needs.
// The Discord adapter in internal/discord implements Client.
package forum

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrThreadNotFound is returned when a thread no longer exists or is
	// otherwise unreachable (commonly already archived and pruned).
	ErrThreadNotFound = errors.New("thread not found")

	// ErrMemberGone is returned by ResolveMember when the member has left the
	// guild. Callers treat this differently from transient failures.
	ErrMemberGone = errors.New("member no longer in guild")
)

// Thread is a snapshot of a forum thread at listing time.
type Thread struct {
	ID              string
	ParentChannelID string
	OwnerID         string
	Name            string
	AppliedTags     []string
	Archived        bool
}

// Member is a resolved guild member.
type Member struct {
	ID      string
	RoleIDs []string
}

// Notification is the inactivity prompt sent into a thread. The adapter
// renders it with whatever affordances the platform supports (a button on
// Discord).
type Notification struct {
	ThreadID string
	OwnerID  string
	// InactiveFor is displayed to the owner in humanized form.
	InactiveFor time.Duration
}

// Client is the forum platform client consumed by the watchdog. All methods
// take a context; every call is a network round trip.
type Client interface {
	// ListActiveThreads returns the non-archived threads under the given
	// forum channel.
	ListActiveThreads(ctx context.Context, channelID string) ([]Thread, error)

	// LastActivityAt returns the timestamp of the most recent message in the
	// thread, falling back to thread creation time for empty threads.
	LastActivityAt(ctx context.Context, threadID string) (time.Time, error)

	// SendNotification delivers the inactivity prompt into the thread.
	// Delivery is best-effort; the caller does not roll back on failure.
	SendNotification(ctx context.Context, n Notification) error

	// SendMessage posts a plain message into the thread (used as the activity
	// marker after a continue action).
	SendMessage(ctx context.Context, threadID, content string) error

	// ApplyTags replaces the thread's applied tag set.
	ApplyTags(ctx context.Context, threadID string, tagIDs []string) error

	// ArchiveThread sets the thread's archived flag.
	ArchiveThread(ctx context.Context, threadID string) error

	// ResolveMember resolves a guild member by id. Returns ErrMemberGone when
	// the member has left the guild.
	ResolveMember(ctx context.Context, userID string) (*Member, error)
}

// IsMemberGone reports whether err indicates the member left the guild.
func IsMemberGone(err error) bool {
	return errors.Is(err, ErrMemberGone)
}

// HasTag reports whether the thread carries the given tag.
func (t Thread) HasTag(tagID string) bool {
	for _, id := range t.AppliedTags {
		if id == tagID {
			return true
		}
	}
	return false
}
