// Package scheduler runs the recurring watchdog passes on cron schedules.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/common/logger"
)

// Job is a named recurring task. Jobs receive a background-derived context;
// Stop waits for in-flight runs to finish.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context)
}

// Scheduler wraps a cron runner with logging and lifecycle control.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped scheduler. Schedules use the standard five-field cron
// syntax.
func New(log *logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		logger: log.WithFields(zap.String("component", "scheduler")),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers a job. Returns an error when the schedule fails to parse.
func (s *Scheduler) AddJob(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s has no run function", job.Name)
	}
	_, err := s.cron.AddFunc(job.Schedule, func() {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Debug("running scheduled job", zap.String("job", job.Name))
		job.Run(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s (%q): %w", job.Name, job.Schedule, err)
	}
	s.logger.Info("scheduled job", zap.String("job", job.Name), zap.String("schedule", job.Schedule))
	return nil
}

// Start begins firing jobs. Safe to call once.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels the job context and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
