package watchdog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/threadwarden/threadwarden/internal/common/errors"
	"github.com/threadwarden/threadwarden/internal/events/bus"
	"github.com/threadwarden/threadwarden/internal/forum"
)

// Continue handles the owner pressing the keep-open button on a notified
// thread. Only the thread owner may continue it. The pending closure is
// dropped, the thread is re-armed for future notification, and a visible
// activity marker is posted so the next scan sees fresh activity.
func (s *Service) Continue(ctx context.Context, thread forum.Thread, userID string) error {
	if userID != thread.OwnerID {
		return apperrors.PermissionDenied("only the thread owner can continue this thread")
	}
	if _, pending := s.ledger.Get(thread.ID); !pending {
		return apperrors.NotFound("pending closure", thread.ID)
	}
	return s.MarkThreadAsContinued(ctx, thread.ID, userID)
}

// MarkResolved handles the owner resolving their thread: the resolved tag is
// appended, the thread is archived, and any pending closure is dropped. Only
// the thread owner may resolve it. Safe to call on threads the watchdog never
// touched.
func (s *Service) MarkResolved(ctx context.Context, thread forum.Thread, userID string) error {
	if userID != thread.OwnerID {
		return apperrors.PermissionDenied("only the thread owner can resolve this thread")
	}

	if s.discord.ResolvedTagID != "" && !thread.HasTag(s.discord.ResolvedTagID) {
		tags := append(append([]string{}, thread.AppliedTags...), s.discord.ResolvedTagID)
		if err := s.forum.ApplyTags(ctx, thread.ID, tags); err != nil {
			return fmt.Errorf("failed to apply resolved tag: %w", err)
		}
	}
	if err := s.forum.ArchiveThread(ctx, thread.ID); err != nil {
		return fmt.Errorf("failed to archive resolved thread: %w", err)
	}

	s.MarkThreadAsHandled(thread.ID)

	s.logger.WithThreadID(thread.ID).Info("thread resolved by owner", zap.String("ownerId", userID))
	s.publish(ctx, bus.SubjectThreadResolved, map[string]interface{}{
		"threadId": thread.ID,
		"ownerId":  userID,
	})
	return nil
}

// MarkThreadAsHandled drops any pending closure for the thread without
// touching the already-notified set. Used when a thread reaches a terminal
// state through some other path (resolved, deleted, archived by a moderator).
// Idempotent.
func (s *Service) MarkThreadAsHandled(threadID string) {
	s.ledger.Delete(threadID)
}

// MarkThreadAsContinued performs the full continue transition for the thread:
// pending closure dropped, notification re-armed, activity marker posted,
// continued event published.
func (s *Service) MarkThreadAsContinued(ctx context.Context, threadID, userID string) error {
	s.ledger.Delete(threadID)
	s.ledger.ClearChecked(threadID)

	if err := s.forum.SendMessage(ctx, threadID, "Thread kept open by the owner."); err != nil {
		return fmt.Errorf("failed to post continue marker: %w", err)
	}

	s.logger.WithThreadID(threadID).Info("thread continued by owner", zap.String("ownerId", userID))
	s.publish(ctx, bus.SubjectThreadContinued, map[string]interface{}{
		"threadId": threadID,
		"ownerId":  userID,
	})
	return nil
}
