// Package watchdog implements the thread inactivity lifecycle: scanning for
// quiet threads, prompting owners, and archiving threads whose grace period
// lapsed without a response.
package watchdog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/common/config"
	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/events/bus"
	"github.com/threadwarden/threadwarden/internal/forum"
)

// Service owns the inactivity lifecycle. The scheduler invokes Scan and
// SweepClosures; the interaction layer and the admin API invoke the rest.
type Service struct {
	forum      forum.Client
	ledger     Ledger
	exclusions *ExclusionRegistry
	eventBus   bus.EventBus
	discord    config.DiscordConfig
	cfg        config.WatchdogConfig
	logger     *logger.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// NewService wires the lifecycle service.
func NewService(client forum.Client, ledger Ledger, exclusions *ExclusionRegistry, eventBus bus.EventBus, discord config.DiscordConfig, cfg config.WatchdogConfig, log *logger.Logger) *Service {
	return &Service{
		forum:      client,
		ledger:     ledger,
		exclusions: exclusions,
		eventBus:   eventBus,
		discord:    discord,
		cfg:        cfg,
		logger:     log.WithFields(zap.String("component", "watchdog")),
		now:        time.Now,
	}
}

// skipReason explains why a thread was passed over during a pass. Empty means
// the thread is a candidate.
type skipReason string

const (
	skipNone      skipReason = ""
	skipArchived  skipReason = "archived"
	skipResolved  skipReason = "resolved tag"
	skipExcluded  skipReason = "excluded"
	skipChecked   skipReason = "already notified"
	skipPending   skipReason = "pending closure"
	skipStillLive skipReason = "recent activity"
)

// evaluate applies the cheap filters in their fixed order, then the activity
// check. consultChecked is false for the manual sweep, which re-notifies
// threads the scheduled scan already handled this process lifetime.
func (s *Service) evaluate(ctx context.Context, thread forum.Thread, consultChecked bool) (skipReason, time.Duration, error) {
	if thread.Archived {
		return skipArchived, 0, nil
	}
	if s.discord.ResolvedTagID != "" && thread.HasTag(s.discord.ResolvedTagID) {
		return skipResolved, 0, nil
	}
	if s.exclusions.IsExcluded(ctx, thread.ID) || s.exclusions.IsExcluded(ctx, thread.ParentChannelID) {
		return skipExcluded, 0, nil
	}
	if consultChecked && s.ledger.IsChecked(thread.ID) {
		return skipChecked, 0, nil
	}
	if _, pending := s.ledger.Get(thread.ID); pending {
		return skipPending, 0, nil
	}

	lastActivity, err := s.forum.LastActivityAt(ctx, thread.ID)
	if err != nil {
		return skipNone, 0, fmt.Errorf("failed to resolve last activity for thread %s: %w", thread.ID, err)
	}
	inactiveFor := s.now().Sub(lastActivity)
	if inactiveFor < s.cfg.InactivityThreshold {
		return skipStillLive, 0, nil
	}
	return skipNone, inactiveFor, nil
}

// processCandidate handles one thread that passed every filter. When the owner
// has left the guild the thread is archived outright; otherwise the owner is
// prompted and a pending closure is recorded. markChecked is false for the
// manual sweep. Reports whether the thread was auto-archived.
func (s *Service) processCandidate(ctx context.Context, thread forum.Thread, inactiveFor time.Duration, markChecked bool) (bool, error) {
	log := s.logger.WithThreadID(thread.ID)

	_, err := s.forum.ResolveMember(ctx, thread.OwnerID)
	if err != nil {
		if forum.IsMemberGone(err) {
			// Nobody left to answer the prompt. Archive without notifying
			// and without a ledger entry.
			if archiveErr := s.forum.ArchiveThread(ctx, thread.ID); archiveErr != nil {
				return false, fmt.Errorf("failed to archive thread with departed owner: %w", archiveErr)
			}
			log.Info("archived thread, owner left the guild", zap.String("ownerId", thread.OwnerID))
			s.publish(ctx, bus.SubjectThreadArchived, map[string]interface{}{
				"threadId": thread.ID,
				"ownerId":  thread.OwnerID,
				"reason":   "owner_gone",
			})
			return true, nil
		}
		return false, fmt.Errorf("failed to resolve thread owner %s: %w", thread.OwnerID, err)
	}

	now := s.now()
	entry := LedgerEntry{
		ThreadID:   thread.ID,
		OwnerID:    thread.OwnerID,
		NotifiedAt: now,
		CloseAt:    now.Add(s.cfg.GracePeriod),
	}
	// Claim the thread before sending so a concurrent pass cannot notify it
	// twice. Put refuses when an entry already exists.
	if !s.ledger.Put(entry) {
		log.Debug("thread claimed by a concurrent pass, skipping")
		return false, nil
	}

	if err := s.forum.SendNotification(ctx, forum.Notification{
		ThreadID:    thread.ID,
		OwnerID:     thread.OwnerID,
		InactiveFor: inactiveFor,
	}); err != nil {
		// Release the claim so the next pass retries.
		s.ledger.Delete(thread.ID)
		return false, fmt.Errorf("failed to notify thread owner: %w", err)
	}
	if markChecked {
		s.ledger.MarkChecked(thread.ID)
	}

	log.Info("notified thread owner of inactivity",
		zap.String("ownerId", thread.OwnerID),
		zap.Duration("inactiveFor", inactiveFor),
		zap.Time("closeAt", entry.CloseAt))
	s.publish(ctx, bus.SubjectThreadNotified, map[string]interface{}{
		"threadId":    thread.ID,
		"ownerId":     thread.OwnerID,
		"inactiveFor": forum.HumanizeDuration(inactiveFor),
		"closeAt":     entry.CloseAt,
	})
	return false, nil
}

// publish emits a lifecycle event. Bus failures are logged, never propagated;
// the lifecycle does not depend on observers.
func (s *Service) publish(ctx context.Context, subject string, data map[string]interface{}) {
	if s.eventBus == nil {
		return
	}
	event := bus.NewEvent(subject, "watchdog", data)
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		s.logger.Warn("failed to publish lifecycle event",
			zap.String("subject", subject), zap.Error(err))
	}
}

// PendingClosures returns the current ledger entries, for the admin API.
func (s *Service) PendingClosures() []LedgerEntry {
	return s.ledger.List()
}

// Exclusions exposes the exclusion registry, for the admin API and the
// interaction layer.
func (s *Service) Exclusions() *ExclusionRegistry {
	return s.exclusions
}
