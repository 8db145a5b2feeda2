// Package scheduler runs the periodic maintenance jobs: vocabulary refresh and
// rate limiter sweeps.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ChristinaDay/FabLab/internal/metrics"
	"github.com/ChristinaDay/FabLab/internal/usecase/relevance"
)

// Refresher reloads the relevance vocabulary.
type Refresher interface {
	Refresh(ctx context.Context, force bool) relevance.Snapshot
}

// Sweeper drops idle rate limiter state. Sweep returns the number of clients removed.
type Sweeper interface {
	Sweep() int
	Clients() int
}

// Config sets the job intervals.
type Config struct {
	RefreshInterval time.Duration
	SweepInterval   time.Duration
}

// Scheduler wraps robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	sweeper   Sweeper
	cfg       Config
	logger    *zap.Logger
}

// New creates a Scheduler. Either job can be disabled by passing a nil dependency.
func New(refresher Refresher, sweeper Sweeper, cfg Config, logger *zap.Logger) *Scheduler {
	cl := cronLogger{s: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		refresher: refresher,
		sweeper:   sweeper,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start registers the jobs and starts the scheduler. The vocabulary is also
// refreshed once right away so the first searches see dynamic terms.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.refresher != nil {
		if err := s.add(s.cfg.RefreshInterval, func() { s.refresh(ctx) }); err != nil {
			return fmt.Errorf("schedule vocabulary refresh: %w", err)
		}
	}
	if s.sweeper != nil {
		if err := s.add(s.cfg.SweepInterval, s.sweep); err != nil {
			return fmt.Errorf("schedule limiter sweep: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.Duration("refresh_interval", s.cfg.RefreshInterval),
		zap.Duration("sweep_interval", s.cfg.SweepInterval),
		zap.Int("jobs", len(s.cron.Entries())),
	)

	if s.refresher != nil {
		go s.refresh(ctx)
	}
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) add(every time.Duration, fn func()) error {
	if every <= 0 {
		return fmt.Errorf("interval must be positive, got %s", every)
	}
	if _, err := s.cron.AddFunc("@every "+every.String(), fn); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	return nil
}

func (s *Scheduler) refresh(ctx context.Context) {
	snap := s.refresher.Refresh(ctx, false)
	s.logger.Debug("Vocabulary refreshed",
		zap.Uint64("generation", snap.Generation),
		zap.Int("positive_terms", len(snap.Positive)),
	)
}

func (s *Scheduler) sweep() {
	n := s.sweeper.Sweep()
	remaining := s.sweeper.Clients()
	metrics.RateLimitClients.Set(float64(remaining))
	if n > 0 {
		s.logger.Debug("Rate limiter swept", zap.Int("removed", n), zap.Int("remaining", remaining))
	}
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
