package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dealwatcher/internal/batch"
	"dealwatcher/internal/config"
	"dealwatcher/internal/scheduler"
	"dealwatcher/internal/storage"
	"dealwatcher/internal/tracker"
)

// Service runs the recalculation sweep and the tracked-items poll on their own
// independent schedules.
type Service struct {
	cfg     *config.Config
	batch   *batch.Orchestrator
	tracker *tracker.Engine
	locker  storage.AdvisoryLocker
	logger  zerolog.Logger
}

// New constructs the long-running service. locker may be nil; the batch tick
// then runs without the cross-process single-flight guard.
func New(cfg *config.Config, orchestrator *batch.Orchestrator, engine *tracker.Engine, locker storage.AdvisoryLocker, logger zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		batch:   orchestrator,
		tracker: engine,
		locker:  locker,
		logger:  logger.With().Str("component", "service").Logger(),
	}
}

// Run blocks until ctx is cancelled or one of the loops fails to start.
func (s *Service) Run(ctx context.Context) error {
	if s.batch == nil && s.tracker == nil {
		return fmt.Errorf("nothing to run: neither batch nor tracker configured")
	}

	group, ctx := errgroup.WithContext(ctx)

	if s.batch != nil {
		sched := scheduler.New(scheduler.Options{
			Interval:     s.cfg.Batch.Interval,
			AlignToStart: s.cfg.Batch.AlignToInterval,
			StartupDelay: s.cfg.Batch.StartupDelay,
			Name:         "recalc",
		}, s.logger)
		group.Go(func() error {
			return sched.Run(ctx, s.RecalculateTick)
		})
	}

	if s.tracker != nil {
		sched := scheduler.New(scheduler.Options{
			Interval:     s.cfg.Tracker.Interval,
			StartupDelay: s.cfg.Tracker.StartupDelay,
			Name:         "tracker",
		}, s.logger)
		group.Go(func() error {
			return sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
				return s.tracker.Cycle(ctx)
			})
		})
	}

	return group.Wait()
}

// RecalculateTick executes one full catalog recalculation, guarded against
// overlapping runs from other processes via a postgres advisory lock.
func (s *Service) RecalculateTick(ctx context.Context, at time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("run", at).Msg("skip recalculation because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	result, err := s.batch.RecalculateAll(ctx)
	if err != nil {
		return err
	}

	s.logger.Info().
		Time("run", at).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Msg("recalculation cycle finished")
	return nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.cfg.Batch.AdvisoryLockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.cfg.Batch.AdvisoryLockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
