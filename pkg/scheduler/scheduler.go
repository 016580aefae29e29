// Package scheduler runs reconciliation on an interval. A Redis lock
// keeps concurrent deployments from running overlapping passes; the pass
// itself is idempotent, so a lost lock costs duplicate read load, not
// correctness.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/neerajsamtani/ledgershift/pkg/reconcile"
	"github.com/neerajsamtani/ledgershift/pkg/redis"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

var (
	// ErrSchedulerAlreadyRunning is returned when trying to start an already running scheduler
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
)

const (
	// DefaultInterval is the default time between reconciliation passes
	DefaultInterval = time.Hour

	// DefaultLockTTL is the default TTL for the reconciliation lock
	DefaultLockTTL = 30 * time.Minute

	// lockKey is the distributed lock key for the reconciliation pass
	lockKey = "reconcile"
)

// Config holds configuration for the scheduler.
type Config struct {
	// Interval is how often to run a reconciliation pass
	Interval time.Duration

	// LockTTL is how long the reconciliation lock is held
	LockTTL time.Duration

	// DryRun suppresses writes; scheduled dry runs are cheap divergence
	// monitoring
	DryRun bool
}

// Scheduler runs reconciliation passes on a ticker.
type Scheduler struct {
	reconciler *reconcile.Reconciler
	locker     *redis.Locker
	config     Config
	logger     ectologger.Logger

	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.RWMutex
}

func NewScheduler(reconciler *reconcile.Reconciler, locker *redis.Locker, config Config, logger ectologger.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	return &Scheduler{
		reconciler: reconciler,
		locker:     locker,
		config:     config,
		logger:     logger,
		stopCh:     make(chan struct{}),
		stoppedC:   make(chan struct{}),
	}
}

// Start starts the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).Infof("Starting reconciliation scheduler: interval=%s dry_run=%t",
		s.config.Interval, s.config.DryRun)

	go s.loop(ctx)

	return nil
}

// Stop stops the scheduler gracefully.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Reconciliation scheduler stopped")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Reconciliation scheduler shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	s.runPass(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

// runPass runs one reconciliation pass under the distributed lock. Losing
// the lock race means another process is already reconciling.
func (s *Scheduler) runPass(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "scheduler.Scheduler.runPass")
	defer span.End()

	lock, err := s.locker.Acquire(ctx, lockKey, s.config.LockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			s.logger.WithContext(ctx).Debug("Reconciliation lock held elsewhere, skipping pass")
			return
		}
		s.logger.WithContext(ctx).WithError(err).Error("Failed to acquire reconciliation lock")
		return
	}
	defer lock.Release(ctx)

	start := time.Now()
	report, err := s.reconciler.Run(ctx, s.config.DryRun)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Scheduled reconciliation failed")
		return
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"dry_run":  report.DryRun,
		"missing":  report.TotalMissing(),
		"synced":   report.TotalSynced(),
		"duration": time.Since(start).String(),
	}).Info("Scheduled reconciliation finished")
}
