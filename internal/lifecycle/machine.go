// Package lifecycle owns the job post state machine and the periodic sweep
// that advances it by calendar time. States are strictly linear:
// NEW, SELECTING, READY, RUNNING, COMPLETED.
package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alialjohani/quickhop-sub000/internal/models"
)

// TransitionStore applies a status change as a conditional update guarded by
// the expected current status. Zero rows affected reports applied=false.
type TransitionStore interface {
	UpdateJobPostStatus(ctx context.Context, id, expected, next string) (bool, error)
}

// Machine validates and applies job post transitions. Applying a transition
// to a job post that is not in the expected state is a no-op, not an error,
// so overlapping sweeps and the pipeline cannot corrupt each other.
type Machine struct {
	store  TransitionStore
	logger *zap.Logger
}

// NewMachine constructs a state machine over the given store.
func NewMachine(store TransitionStore, logger *zap.Logger) *Machine {
	return &Machine{store: store, logger: logger}
}

// StartSelecting moves NEW to SELECTING when the pipeline picks the post up.
func (m *Machine) StartSelecting(ctx context.Context, jobPostID string) (bool, error) {
	return m.transition(ctx, jobPostID, models.StatusNew, models.StatusSelecting)
}

// MarkReady moves SELECTING to READY after all candidates were evaluated.
func (m *Machine) MarkReady(ctx context.Context, jobPostID string) (bool, error) {
	return m.transition(ctx, jobPostID, models.StatusSelecting, models.StatusReady)
}

// StartRunning moves READY to RUNNING once the calling window opens.
func (m *Machine) StartRunning(ctx context.Context, jobPostID string) (bool, error) {
	return m.transition(ctx, jobPostID, models.StatusReady, models.StatusRunning)
}

// Complete moves RUNNING to COMPLETED, either because the calling window
// closed or because a recruiter deactivated the post explicitly.
func (m *Machine) Complete(ctx context.Context, jobPostID string) (bool, error) {
	return m.transition(ctx, jobPostID, models.StatusRunning, models.StatusCompleted)
}

func (m *Machine) transition(ctx context.Context, jobPostID, expected, next string) (bool, error) {
	applied, err := m.store.UpdateJobPostStatus(ctx, jobPostID, expected, next)
	if err != nil {
		// Retryable: the caller decides whether to re-drive or log and move on.
		return false, fmt.Errorf("transition %s from %s to %s: %w", jobPostID, expected, next, err)
	}
	if applied {
		m.logger.Info("job post transitioned",
			zap.String("job_post_id", jobPostID),
			zap.String("from", expected),
			zap.String("to", next),
		)
	} else {
		m.logger.Debug("transition skipped, precondition not met",
			zap.String("job_post_id", jobPostID),
			zap.String("expected", expected),
			zap.String("to", next),
		)
	}
	return applied, nil
}
