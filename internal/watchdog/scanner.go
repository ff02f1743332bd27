package watchdog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ScanResult summarizes one pass over the forum.
type ScanResult struct {
	Processed    int `json:"processed"`
	Notified     int `json:"notified"`
	AutoArchived int `json:"autoArchived"`
	Skipped      int `json:"skipped"`
	Errors       int `json:"errors"`
}

// Scan runs one scheduled inactivity pass: every active thread is filtered,
// and each surviving candidate gets its owner prompted (or is archived
// outright when the owner is gone). A failing thread is logged and counted;
// the pass continues with the rest.
func (s *Service) Scan(ctx context.Context) (ScanResult, error) {
	return s.pass(ctx, true)
}

// ManualSweep runs the same pass on demand. Unlike the scheduled scan it does
// not consult or record the already-notified set, so it re-prompts threads
// the scanner has handled this process lifetime (pending closures still
// block a second prompt).
func (s *Service) ManualSweep(ctx context.Context) (ScanResult, error) {
	return s.pass(ctx, false)
}

func (s *Service) pass(ctx context.Context, scheduled bool) (ScanResult, error) {
	var result ScanResult

	threads, err := s.forum.ListActiveThreads(ctx, s.discord.ForumChannelID)
	if err != nil {
		return result, fmt.Errorf("failed to list active threads: %w", err)
	}

	s.logger.Info("starting inactivity pass",
		zap.Int("threads", len(threads)),
		zap.Bool("scheduled", scheduled))

	for i, thread := range threads {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		reason, inactiveFor, err := s.evaluate(ctx, thread, scheduled)
		if err != nil {
			result.Errors++
			s.logger.WithThreadID(thread.ID).Error("failed to evaluate thread", zap.Error(err))
			continue
		}
		if reason != skipNone {
			result.Skipped++
			s.logger.WithThreadID(thread.ID).Debug("skipping thread", zap.String("reason", string(reason)))
			continue
		}

		archived, err := s.processCandidate(ctx, thread, inactiveFor, scheduled)
		if err != nil {
			result.Errors++
			s.logger.WithThreadID(thread.ID).Error("failed to process thread", zap.Error(err))
			continue
		}
		if archived {
			result.AutoArchived++
		} else {
			result.Notified++
		}

		// Space out sends so a big backlog does not burst against the
		// platform rate limit.
		if i < len(threads)-1 && s.cfg.NotifyDelay > 0 {
			select {
			case <-time.After(s.cfg.NotifyDelay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	s.logger.Info("inactivity pass complete",
		zap.Int("processed", result.Processed),
		zap.Int("notified", result.Notified),
		zap.Int("autoArchived", result.AutoArchived),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors))
	return result, nil
}
