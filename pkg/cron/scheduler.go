// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes discovery log entries older than a cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config configures the retention job.
type Config struct {
	Schedule      string // Standard 5-field cron expression (default: "0 3 * * *")
	RetentionDays int    // Entries older than this are deleted; 0 disables the job
	Timeout       time.Duration
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron   *cron.Cron
	pruner Pruner
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewScheduler creates a new job scheduler.
func NewScheduler(pruner Pruner, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 3 * * *"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}

	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:   c,
		pruner: pruner,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if s.config.RetentionDays <= 0 {
		s.logger.Info("discovery log retention disabled")
		return nil
	}
	if s.pruner == nil {
		return errors.New("cron: retention job needs a pruner")
	}

	_, err := s.cron.AddFunc(s.config.Schedule, func() { _, _ = s.pruneDiscoveryLog(context.Background()) })
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.config.Schedule),
		slog.Int("retention_days", s.config.RetentionDays),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs the retention job once and returns how many entries it deleted.
func (s *Scheduler) RunNow(ctx context.Context) (int64, error) {
	if s.config.RetentionDays <= 0 {
		return 0, errors.New("cron: retention is disabled")
	}
	if s.pruner == nil {
		return 0, errors.New("cron: retention job needs a pruner")
	}
	return s.pruneDiscoveryLog(ctx)
}

// pruneDiscoveryLog removes discovery entries past the retention window.
func (s *Scheduler) pruneDiscoveryLog(parent context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(parent, s.config.Timeout)
	defer cancel()

	cutoff := s.now().UTC().AddDate(0, 0, -s.config.RetentionDays)
	s.logger.Info("starting discovery log cleanup", slog.Time("cutoff", cutoff))

	deleted, err := s.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to prune discovery log", slog.Any("error", err))
		return 0, err
	}

	s.logger.Info("discovery log cleanup completed", slog.Int64("entries_deleted", deleted))
	return deleted, nil
}
