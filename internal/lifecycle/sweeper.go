package lifecycle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/alialjohani/quickhop-sub000/internal/models"
	"github.com/alialjohani/quickhop-sub000/internal/telemetry"
)

// SweepStore lists job posts due for a calendar-driven transition.
type SweepStore interface {
	// ListJobPostsToRun returns READY posts with ai_calls_starting_date <= now.
	ListJobPostsToRun(ctx context.Context, now time.Time) ([]models.JobPost, error)
	// ListJobPostsToComplete returns RUNNING posts with ai_calls_end_date < now.
	ListJobPostsToComplete(ctx context.Context, now time.Time) ([]models.JobPost, error)
}

// Sweeper advances job posts by calendar time, independent of the pipeline.
// The interval is configuration, not a constant.
type Sweeper struct {
	store    SweepStore
	machine  *Machine
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper constructs a sweeper ticking at the given interval.
func NewSweeper(store SweepStore, machine *Machine, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		store:    store,
		machine:  machine,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on a fixed ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx, time.Now()); err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs one pass: READY posts whose window opened start RUNNING, RUNNING
// posts whose window closed become COMPLETED. The two batches are independent
// and a failure on one job post never blocks the others. Sweep is idempotent;
// a second pass over settled posts transitions nothing.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	var errs []error
	applied := 0

	toRun, err := s.store.ListJobPostsToRun(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	for _, jp := range toRun {
		ok, err := s.machine.StartRunning(ctx, jp.ID)
		if err != nil {
			telemetry.SweepFailures.Inc()
			s.logger.Error("start running failed",
				zap.String("job_post_id", jp.ID), zap.Error(err))
			continue
		}
		if ok {
			applied++
			telemetry.SweepTransitions.Inc()
		}
	}

	toComplete, err := s.store.ListJobPostsToComplete(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	for _, jp := range toComplete {
		ok, err := s.machine.Complete(ctx, jp.ID)
		if err != nil {
			telemetry.SweepFailures.Inc()
			s.logger.Error("complete failed",
				zap.String("job_post_id", jp.ID), zap.Error(err))
			continue
		}
		if ok {
			applied++
			telemetry.SweepTransitions.Inc()
		}
	}

	return applied, errors.Join(errs...)
}
