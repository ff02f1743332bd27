package watchdog

import (
	"context"

	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/events/bus"
)

// SweepClosures archives every thread whose grace period has lapsed. The
// ledger entry is removed whether the archive call succeeds or not; a thread
// the platform refuses to archive is picked up again by a later scan rather
// than retried forever. Firing also re-arms the thread for future
// notification.
func (s *Service) SweepClosures(ctx context.Context) (archived, failed int) {
	due := s.ledger.ListDue(s.now())
	if len(due) == 0 {
		return 0, 0
	}

	s.logger.Info("sweeping lapsed closures", zap.Int("due", len(due)))

	for _, entry := range due {
		log := s.logger.WithThreadID(entry.ThreadID)

		s.ledger.Delete(entry.ThreadID)
		s.ledger.ClearChecked(entry.ThreadID)

		if err := s.forum.ArchiveThread(ctx, entry.ThreadID); err != nil {
			failed++
			log.Error("failed to archive lapsed thread", zap.Error(err))
			continue
		}
		archived++

		log.Info("archived thread after grace period",
			zap.String("ownerId", entry.OwnerID),
			zap.Time("notifiedAt", entry.NotifiedAt))
		s.publish(ctx, bus.SubjectThreadArchived, map[string]interface{}{
			"threadId": entry.ThreadID,
			"ownerId":  entry.OwnerID,
			"reason":   "grace_period_lapsed",
		})
	}
	return archived, failed
}
