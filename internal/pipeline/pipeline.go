// Package pipeline drives one job post through screening of the full
// candidate pool: point extraction, per-candidate scoring, opportunity and
// session creation, and resume provisioning. It runs detached from the HTTP
// request that created the job post.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alialjohani/quickhop-sub000/internal/ai"
	"github.com/alialjohani/quickhop-sub000/internal/lifecycle"
	"github.com/alialjohani/quickhop-sub000/internal/models"
	"github.com/alialjohani/quickhop-sub000/internal/screening"
	"github.com/alialjohani/quickhop-sub000/internal/session"
	"github.com/alialjohani/quickhop-sub000/internal/telemetry"
)

// ErrAlreadyStarted is returned when the job post is not in NEW, which means
// another invocation already picked it up. The SELECTING guard is what makes
// pipeline invocation at-most-once per job post.
var ErrAlreadyStarted = errors.New("pipeline already started for this job post")

// Store is the relational access the pipeline needs.
type Store interface {
	GetRecruiter(ctx context.Context, id string) (models.Recruiter, error)
	ListJobSeekers(ctx context.Context) ([]models.JobSeeker, error)
	CreateOpportunityResult(ctx context.Context, o models.OpportunityResult) error
	DeleteOpportunityResult(ctx context.Context, id string) error
}

// SessionStore writes the ephemeral interview records.
type SessionStore interface {
	PutDirective(ctx context.Context, r session.DirectiveRecord) error
	PutCounter(ctx context.Context, r session.CounterRecord) error
	PutSession(ctx context.Context, r session.SessionRecord) error
	DeleteSession(ctx context.Context, jobPostID, accessKey string) error
}

// Provisioner uploads a tailored resume for one qualified candidate.
type Provisioner interface {
	Provision(ctx context.Context, jp models.JobPost, recruiter models.Recruiter, seeker models.JobSeeker, input ai.MatchingInput) error
}

// Runner executes the matching pipeline for job posts.
type Runner struct {
	store       Store
	sessions    SessionStore
	scorer      *screening.Scorer
	provisioner Provisioner
	machine     *lifecycle.Machine
	logger      *zap.Logger
	concurrency int
}

// NewRunner wires the pipeline's collaborators. concurrency bounds the
// candidate fan-out worker pool.
func NewRunner(store Store, sessions SessionStore, scorer *screening.Scorer, provisioner Provisioner, machine *lifecycle.Machine, logger *zap.Logger, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		store:       store,
		sessions:    sessions,
		scorer:      scorer,
		provisioner: provisioner,
		machine:     machine,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Task is the handle to one detached pipeline execution. The HTTP layer may
// discard it; a reconciliation job can hold it to observe stuck runs.
type Task struct {
	JobPostID string

	done chan struct{}
	err  error
}

// Done is closed when the run finishes, successfully or not.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err reports the run's outcome once Done is closed; nil before that.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Start launches the pipeline for a freshly created job post and returns
// immediately. The run is detached from any request context.
func (r *Runner) Start(jp models.JobPost) *Task {
	task := &Task{JobPostID: jp.ID, done: make(chan struct{})}
	go func() {
		defer close(task.done)
		task.err = r.Run(context.Background(), jp)
	}()
	return task
}

// Run drives one job post from NEW through SELECTING to READY. A fatal step
// leaves the post in SELECTING; there is deliberately no partial retry.
func (r *Runner) Run(ctx context.Context, jp models.JobPost) error {
	log := r.logger.With(zap.String("job_post_id", jp.ID))
	telemetry.PipelineRuns.Inc()

	err := r.run(ctx, jp, log)
	if err != nil {
		telemetry.PipelineFailures.Inc()
		var opErr *OpError
		if errors.As(err, &opErr) {
			log.Error("pipeline aborted", zap.String("op", opErr.Op), zap.Error(opErr.Err))
		} else {
			log.Error("pipeline aborted", zap.Error(err))
		}
	}
	return err
}

func (r *Runner) run(ctx context.Context, jp models.JobPost, log *zap.Logger) error {
	applied, err := r.machine.StartSelecting(ctx, jp.ID)
	if err != nil {
		return fatal("start selecting", err)
	}
	if !applied {
		return ErrAlreadyStarted
	}

	expiresAt := session.EndOfDay(jp.AICallsEndDate)

	recruiter, err := r.store.GetRecruiter(ctx, jp.RecruiterID)
	if err != nil {
		// A job post with no resolvable recruiter cannot proceed.
		return fatal("resolve recruiter", err)
	}

	jobPoints, err := r.scorer.ExtractJobPoints(ctx, jp)
	if err != nil {
		return fatal("extract job points", err)
	}

	if err := r.sessions.PutDirective(ctx, session.DirectiveRecord{
		JobPostID: jp.ID,
		Script:    renderScript(jp.InterviewQuestions),
		ExpiresAt: expiresAt,
	}); err != nil {
		return fatal("write directive record", err)
	}
	if err := r.sessions.PutCounter(ctx, session.CounterRecord{
		JobPostID: jp.ID,
		Count:     0,
		ExpiresAt: expiresAt,
	}); err != nil {
		return fatal("write counter record", err)
	}

	seekers, err := r.store.ListJobSeekers(ctx)
	if err != nil {
		return fatal("list job seekers", err)
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, seeker := range seekers {
		seeker := seeker
		g.Go(func() error {
			telemetry.CandidatesScreened.Inc()
			if err := r.processCandidate(groupCtx, jp, recruiter, seeker, jobPoints, expiresAt); err != nil {
				// Candidate failures are isolated: log and keep the fan-out going.
				telemetry.CandidateFailures.Inc()
				var opErr *OpError
				if errors.As(err, &opErr) {
					log.Error("candidate skipped",
						zap.String("job_seeker_id", seeker.ID),
						zap.String("op", opErr.Op),
						zap.Error(opErr.Err),
					)
				} else {
					log.Error("candidate skipped",
						zap.String("job_seeker_id", seeker.ID),
						zap.Error(err),
					)
				}
			}
			return nil
		})
	}
	// All goroutines return nil; Wait only orders completion.
	_ = g.Wait()

	if _, err := r.machine.MarkReady(ctx, jp.ID); err != nil {
		return fatal("mark ready", err)
	}

	log.Info("matching pipeline finished", zap.Int("candidates", len(seekers)))
	return nil
}

// processCandidate scores one candidate and, when qualified, performs the
// three writes as a unit: opportunity, session record, resume. A failure in a
// later write rolls back the earlier ones best-effort, so there is never a
// partial opportunity without its session.
func (r *Runner) processCandidate(ctx context.Context, jp models.JobPost, recruiter models.Recruiter, seeker models.JobSeeker, jobPoints screening.JobPoints, expiresAt time.Time) error {
	input, err := r.scorer.BuildInput(ctx, jp, jobPoints, seeker)
	if err != nil {
		return candidateFailure("build matching input", err)
	}

	assessment, err := r.scorer.Score(ctx, input)
	if err != nil {
		return candidateFailure("score candidate", err)
	}
	if !assessment.Qualified {
		return nil
	}
	telemetry.CandidatesQualified.Inc()

	accessKey := newAccessKey(seeker.ID, jp.ID)
	opportunity := models.OpportunityResult{
		ID:               uuid.New().String(),
		JobPostID:        jp.ID,
		JobSeekerID:      seeker.ID,
		OneTimeAccessKey: accessKey,
		// The persisted score is the job's threshold, not the model's
		// computed score. Observed production behavior; do not change
		// without product confirmation.
		MatchingScore: float64(jp.MinMatchingPercentage),
		Status:        models.OpportunityPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.store.CreateOpportunityResult(ctx, opportunity); err != nil {
		return candidateFailure("create opportunity", err)
	}

	if err := r.sessions.PutSession(ctx, session.SessionRecord{
		AccessKey:     accessKey,
		JobPostID:     jp.ID,
		OpportunityID: opportunity.ID,
		FirstName:     seeker.FirstName,
		LastName:      seeker.LastName,
		Phone:         seeker.Phone,
		MaxCandidates: jp.MaxCandidates,
		IsActive:      true,
		DidCall:       false,
		ExpiresAt:     expiresAt,
	}); err != nil {
		if rbErr := r.store.DeleteOpportunityResult(ctx, opportunity.ID); rbErr != nil {
			r.logger.Warn("rollback opportunity failed",
				zap.String("opportunity_id", opportunity.ID), zap.Error(rbErr))
		}
		return candidateFailure("write session record", err)
	}

	if err := r.provisioner.Provision(ctx, jp, recruiter, seeker, input); err != nil {
		if rbErr := r.sessions.DeleteSession(ctx, jp.ID, accessKey); rbErr != nil {
			r.logger.Warn("rollback session failed",
				zap.String("access_key", accessKey), zap.Error(rbErr))
		}
		if rbErr := r.store.DeleteOpportunityResult(ctx, opportunity.ID); rbErr != nil {
			r.logger.Warn("rollback opportunity failed",
				zap.String("opportunity_id", opportunity.ID), zap.Error(rbErr))
		}
		return candidateFailure("provision resume", err)
	}

	return nil
}

// renderScript turns the recruiter's free-form question list into the
// numbered script stored in the directive record.
func renderScript(questions []string) string {
	if len(questions) == 0 {
		return "No interview questions were provided."
	}
	var b strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(q))
	}
	return strings.TrimSpace(b.String())
}
