package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
)

// SchedulerConfig holds the intervals of the background jobs.
type SchedulerConfig struct {
	ClaimSweepInterval time.Duration
	HygieneInterval    time.Duration
	RunTimeout         time.Duration
}

// Scheduler drives the sweeper: stuck claims on a short interval, hygiene once a day by default.
type Scheduler struct {
	sweeper portssvc.SweeperSvcFacade
	cfg     SchedulerConfig
	clock   func() time.Time
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(sweeper portssvc.SweeperSvcFacade, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if cfg.ClaimSweepInterval <= 0 {
		cfg.ClaimSweepInterval = 5 * time.Minute
	}
	if cfg.HygieneInterval <= 0 {
		cfg.HygieneInterval = 24 * time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sweeper: sweeper,
		cfg:     cfg,
		clock:   time.Now,
		logger:  logger.With(slog.String("component", "sweeper")),
	}
}

// Start launches both loops. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(middleware.WithLogger(ctx, s.logger))
	s.wg.Add(2)
	go s.loop(ctx, s.cfg.ClaimSweepInterval, s.sweepClaims)
	go s.loop(ctx, s.cfg.HygieneInterval, s.runHygiene)

	s.logger.Info("Scheduler started",
		slog.Duration("claim_sweep_interval", s.cfg.ClaimSweepInterval),
		slog.Duration("hygiene_interval", s.cfg.HygieneInterval))
}

// Stop cancels both loops and waits for any run in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, run func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
		run(runCtx)
	}

	runOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Scheduler) sweepClaims(ctx context.Context) {
	if _, err := s.sweeper.ReclaimStuckClaims(ctx, s.clock()); err != nil {
		s.logger.Error("Stale claim sweep failed", slog.String("error", err.Error()))
	}
}

func (s *Scheduler) runHygiene(ctx context.Context) {
	report := s.sweeper.RunHygiene(ctx, s.clock())
	attrs := []any{slog.Int("failed_tasks", len(report.Errors))}
	if report.Orphans != nil {
		attrs = append(attrs, slog.Int("unreferenced_objects", len(report.Orphans.Unreferenced)))
	}
	if report.Ledger != nil {
		attrs = append(attrs,
			slog.Int("accounts_checked", report.Ledger.AccountsChecked),
			slog.Int("inconsistent_accounts", len(report.Ledger.Inconsistent)))
	}
	s.logger.Info("Hygiene run finished", attrs...)
}
