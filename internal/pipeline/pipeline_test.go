package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alialjohani/quickhop-sub000/internal/ai"
	"github.com/alialjohani/quickhop-sub000/internal/lifecycle"
	"github.com/alialjohani/quickhop-sub000/internal/models"
	"github.com/alialjohani/quickhop-sub000/internal/screening"
	"github.com/alialjohani/quickhop-sub000/internal/session"
)

type stubAI struct {
	mu      sync.Mutex
	scoreFn func(input ai.MatchingInput) (ai.Assessment, error)
	scored  int
}

func (s *stubAI) ExtractPoints(_ context.Context, text string) ([]string, error) {
	return []string{"point: " + text}, nil
}

func (s *stubAI) ScoreCandidate(_ context.Context, input ai.MatchingInput) (ai.Assessment, error) {
	s.mu.Lock()
	s.scored++
	s.mu.Unlock()
	if s.scoreFn != nil {
		return s.scoreFn(input)
	}
	return ai.Assessment{Qualified: true, MatchingScore: 92}, nil
}

func (s *stubAI) TailorResume(_ context.Context, _ ai.MatchingInput) (ai.TailoredSections, error) {
	return ai.TailoredSections{}, nil
}

type fakeStore struct {
	mu            sync.Mutex
	recruiterErr  error
	seekers       []models.JobSeeker
	statuses      map[string]string
	opportunities map[string]models.OpportunityResult
	createOppErr  func(seekerID string) error
}

func newFakeStore(status string, jobPostID string, seekers ...models.JobSeeker) *fakeStore {
	return &fakeStore{
		seekers:       seekers,
		statuses:      map[string]string{jobPostID: status},
		opportunities: map[string]models.OpportunityResult{},
	}
}

func (f *fakeStore) GetRecruiter(_ context.Context, id string) (models.Recruiter, error) {
	if f.recruiterErr != nil {
		return models.Recruiter{}, f.recruiterErr
	}
	return models.Recruiter{ID: id, Company: "acme"}, nil
}

func (f *fakeStore) ListJobSeekers(_ context.Context) ([]models.JobSeeker, error) {
	return f.seekers, nil
}

func (f *fakeStore) CreateOpportunityResult(_ context.Context, o models.OpportunityResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createOppErr != nil {
		if err := f.createOppErr(o.JobSeekerID); err != nil {
			return err
		}
	}
	for _, existing := range f.opportunities {
		if existing.JobPostID == o.JobPostID && existing.JobSeekerID == o.JobSeekerID {
			return fmt.Errorf("duplicate opportunity for seeker %s", o.JobSeekerID)
		}
	}
	f.opportunities[o.ID] = o
	return nil
}

func (f *fakeStore) DeleteOpportunityResult(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.opportunities, id)
	return nil
}

func (f *fakeStore) UpdateJobPostStatus(_ context.Context, id, expected, next string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses[id] != expected {
		return false, nil
	}
	f.statuses[id] = next
	return true, nil
}

func (f *fakeStore) status(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

func (f *fakeStore) opportunityCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opportunities)
}

type fakeSessions struct {
	mu            sync.Mutex
	directives    map[string]session.DirectiveRecord
	counters      map[string]session.CounterRecord
	sessions      map[string]session.SessionRecord
	putSessionErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		directives: map[string]session.DirectiveRecord{},
		counters:   map[string]session.CounterRecord{},
		sessions:   map[string]session.SessionRecord{},
	}
}

func (f *fakeSessions) PutDirective(_ context.Context, r session.DirectiveRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directives[r.JobPostID] = r
	return nil
}

func (f *fakeSessions) PutCounter(_ context.Context, r session.CounterRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[r.JobPostID] = r
	return nil
}

func (f *fakeSessions) PutSession(_ context.Context, r session.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putSessionErr != nil {
		return f.putSessionErr
	}
	f.sessions[r.AccessKey] = r
	return nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, _, accessKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, accessKey)
	return nil
}

func (f *fakeSessions) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeProvisioner struct {
	mu    sync.Mutex
	errFn func(seekerID string) error
	calls int
}

func (f *fakeProvisioner) Provision(_ context.Context, _ models.JobPost, _ models.Recruiter, seeker models.JobSeeker, _ ai.MatchingInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.errFn != nil {
		return f.errFn(seeker.ID)
	}
	return nil
}

func testJobPost() models.JobPost {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return models.JobPost{
		ID:                    "jp-1",
		RecruiterID:           "rec-1",
		Status:                models.StatusNew,
		Title:                 "Backend Engineer",
		Responsibility:        "build services",
		RequiredQualification: "go experience",
		MaxCandidates:         3,
		MinMatchingPercentage: 75,
		AICallsStartingDate:   start,
		AICallsEndDate:        start.AddDate(0, 0, 7),
		InterviewQuestions:    []string{"Tell me about a project.", "Why this role?"},
	}
}

func seeker(id string) models.JobSeeker {
	return models.JobSeeker{
		ID:        id,
		FirstName: "Sam",
		LastName:  "Lee",
		Email:     id + "@example.com",
		Phone:     "+1555000",
		Works:     []models.Work{{Company: "co", Title: "dev", Description: "did things"}},
	}
}

func newRunner(st *fakeStore, sessions *fakeSessions, client ai.Client, prov Provisioner) *Runner {
	log := zap.NewNop()
	machine := lifecycle.NewMachine(st, log)
	scorer := screening.NewScorer(client, log, time.Second)
	return NewRunner(st, sessions, scorer, prov, machine, log, 2)
}

func TestRunWithZeroSeekers(t *testing.T) {
	jp := testJobPost()
	st := newFakeStore(models.StatusNew, jp.ID)
	sessions := newFakeSessions()
	runner := newRunner(st, sessions, &stubAI{}, &fakeProvisioner{})

	if err := runner.Run(context.Background(), jp); err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.status(jp.ID) != models.StatusReady {
		t.Fatalf("expected READY, got %s", st.status(jp.ID))
	}
	if _, ok := sessions.directives[jp.ID]; !ok {
		t.Fatalf("directive record not written")
	}
	counter, ok := sessions.counters[jp.ID]
	if !ok || counter.Count != 0 {
		t.Fatalf("counter record missing or not initialized to 0: %+v", counter)
	}
	if st.opportunityCount() != 0 {
		t.Fatalf("expected zero opportunities, got %d", st.opportunityCount())
	}
}

func TestRunQualifiedCandidate(t *testing.T) {
	jp := testJobPost()
	st := newFakeStore(models.StatusNew, jp.ID, seeker("js-1"))
	sessions := newFakeSessions()
	prov := &fakeProvisioner{}
	runner := newRunner(st, sessions, &stubAI{}, prov)

	if err := runner.Run(context.Background(), jp); err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.opportunityCount() != 1 {
		t.Fatalf("expected one opportunity, got %d", st.opportunityCount())
	}
	for _, o := range st.opportunities {
		if o.Status != models.OpportunityPending {
			t.Fatalf("expected PENDING, got %s", o.Status)
		}
		// The persisted score is the threshold, not the model's score.
		if o.MatchingScore != float64(jp.MinMatchingPercentage) {
			t.Fatalf("expected matching score %d, got %f", jp.MinMatchingPercentage, o.MatchingScore)
		}
	}
	if sessions.sessionCount() != 1 {
		t.Fatalf("expected one session record, got %d", sessions.sessionCount())
	}
	for _, s := range sessions.sessions {
		if !s.IsActive || s.DidCall {
			t.Fatalf("expected is_active=true did_call=false, got %+v", s)
		}
		wantExpiry := session.EndOfDay(jp.AICallsEndDate)
		if !s.ExpiresAt.Equal(wantExpiry) {
			t.Fatalf("expected expiry %s, got %s", wantExpiry, s.ExpiresAt)
		}
	}
	if prov.calls != 1 {
		t.Fatalf("expected one provision call, got %d", prov.calls)
	}
}

func TestRunIsolatesCandidateFailure(t *testing.T) {
	jp := testJobPost()
	st := newFakeStore(models.StatusNew, jp.ID, seeker("js-1"), seeker("js-2"), seeker("js-3"))
	sessions := newFakeSessions()
	client := &stubAI{scoreFn: func(input ai.MatchingInput) (ai.Assessment, error) {
		for _, e := range input.Candidate.Work {
			if e.Organization == "boom" {
				return ai.Assessment{}, errors.New("model unavailable")
			}
		}
		return ai.Assessment{Qualified: true, MatchingScore: 90}, nil
	}}
	// Mark seeker #2 so the stub can fail it.
	st.seekers[1].Works[0].Company = "boom"
	runner := newRunner(st, sessions, client, &fakeProvisioner{})

	if err := runner.Run(context.Background(), jp); err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.status(jp.ID) != models.StatusReady {
		t.Fatalf("expected READY despite one failed candidate, got %s", st.status(jp.ID))
	}
	if st.opportunityCount() != 2 {
		t.Fatalf("expected two opportunities, got %d", st.opportunityCount())
	}
	for _, o := range st.opportunities {
		if o.JobSeekerID == "js-2" {
			t.Fatalf("failed candidate must not get an opportunity")
		}
	}
}

func TestRunAbortsWhenRecruiterMissing(t *testing.T) {
	jp := testJobPost()
	st := newFakeStore(models.StatusNew, jp.ID, seeker("js-1"))
	st.recruiterErr = errors.New("recruiter not found")
	sessions := newFakeSessions()
	client := &stubAI{}
	runner := newRunner(st, sessions, client, &fakeProvisioner{})

	err := runner.Run(context.Background(), jp)
	if err == nil {
		t.Fatalf("expected fatal error")
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Severity != SeverityPipeline {
		t.Fatalf("expected pipeline-severity OpError, got %v", err)
	}
	// Stuck in SELECTING, no side effects for any candidate.
	if st.status(jp.ID) != models.StatusSelecting {
		t.Fatalf("expected SELECTING, got %s", st.status(jp.ID))
	}
	if st.opportunityCount() != 0 || client.scored != 0 {
		t.Fatalf("expected no candidate side effects")
	}
}

func TestRunRollsBackOnProvisionFailure(t *testing.T) {
	jp := testJobPost()
	st := newFakeStore(models.StatusNew, jp.ID, seeker("js-1"))
	sessions := newFakeSessions()
	prov := &fakeProvisioner{errFn: func(string) error { return errors.New("upload failed") }}
	runner := newRunner(st, sessions, &stubAI{}, prov)

	if err := runner.Run(context.Background(), jp); err != nil {
		t.Fatalf("run: %v", err)
	}
	// A candidate either gets all three writes or none.
	if st.opportunityCount() != 0 {
		t.Fatalf("expected opportunity rollback, got %d", st.opportunityCount())
	}
	if sessions.sessionCount() != 0 {
		t.Fatalf("expected session rollback, got %d", sessions.sessionCount())
	}
	if st.status(jp.ID) != models.StatusReady {
		t.Fatalf("job post should still reach READY, got %s", st.status(jp.ID))
	}
}

func TestRunRollsBackOpportunityOnSessionFailure(t *testing.T) {
	jp := testJobPost()
	st := newFakeStore(models.StatusNew, jp.ID, seeker("js-1"))
	sessions := newFakeSessions()
	sessions.putSessionErr = errors.New("ephemeral store down")
	runner := newRunner(st, sessions, &stubAI{}, &fakeProvisioner{})

	if err := runner.Run(context.Background(), jp); err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.opportunityCount() != 0 {
		t.Fatalf("expected no partial opportunity without a session record")
	}
}

func TestRunIsAtMostOnce(t *testing.T) {
	jp := testJobPost()
	st := newFakeStore(models.StatusSelecting, jp.ID, seeker("js-1"))
	sessions := newFakeSessions()
	runner := newRunner(st, sessions, &stubAI{}, &fakeProvisioner{})

	err := runner.Run(context.Background(), jp)
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if st.opportunityCount() != 0 {
		t.Fatalf("second invocation must not create opportunities")
	}
}

func TestStartReturnsObservableHandle(t *testing.T) {
	jp := testJobPost()
	st := newFakeStore(models.StatusNew, jp.ID)
	runner := newRunner(st, newFakeSessions(), &stubAI{}, &fakeProvisioner{})

	task := runner.Start(jp)
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("task did not finish")
	}
	if err := task.Err(); err != nil {
		t.Fatalf("task err: %v", err)
	}
	if st.status(jp.ID) != models.StatusReady {
		t.Fatalf("expected READY, got %s", st.status(jp.ID))
	}
}

func TestRenderScript(t *testing.T) {
	got := renderScript([]string{"First?", " Second? "})
	want := "1. First?\n2. Second?"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if renderScript(nil) == "" {
		t.Fatalf("empty question list must still render a script")
	}
}
