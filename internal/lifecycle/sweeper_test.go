package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alialjohani/quickhop-sub000/internal/models"
)

// memSweepStore keeps job posts in memory and filters with the same boundary
// semantics as the SQL store: start inclusive, end exclusive.
type memSweepStore struct {
	posts   map[string]*models.JobPost
	failOn  map[string]error
	listErr error
}

func newMemSweepStore(posts ...*models.JobPost) *memSweepStore {
	m := &memSweepStore{posts: map[string]*models.JobPost{}, failOn: map[string]error{}}
	for _, jp := range posts {
		m.posts[jp.ID] = jp
	}
	return m
}

func (m *memSweepStore) ListJobPostsToRun(_ context.Context, now time.Time) ([]models.JobPost, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.JobPost
	for _, jp := range m.posts {
		if jp.Status == models.StatusReady && !jp.AICallsStartingDate.After(now) {
			out = append(out, *jp)
		}
	}
	return out, nil
}

func (m *memSweepStore) ListJobPostsToComplete(_ context.Context, now time.Time) ([]models.JobPost, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.JobPost
	for _, jp := range m.posts {
		if jp.Status == models.StatusRunning && jp.AICallsEndDate.Before(now) {
			out = append(out, *jp)
		}
	}
	return out, nil
}

func (m *memSweepStore) UpdateJobPostStatus(_ context.Context, id, expected, next string) (bool, error) {
	if err := m.failOn[id]; err != nil {
		return false, err
	}
	jp, ok := m.posts[id]
	if !ok || jp.Status != expected {
		return false, nil
	}
	jp.Status = next
	return true, nil
}

func post(id, status string, start, end time.Time) *models.JobPost {
	return &models.JobPost{ID: id, Status: status, AICallsStartingDate: start, AICallsEndDate: end}
}

func newTestSweeper(st *memSweepStore) *Sweeper {
	log := zap.NewNop()
	return NewSweeper(st, NewMachine(st, log), time.Minute, log)
}

func TestSweepStartBoundaryIsInclusive(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	st := newMemSweepStore(post("jp", models.StatusReady, now, now.AddDate(0, 0, 7)))
	s := newTestSweeper(st)

	applied, err := s.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if applied != 1 || st.posts["jp"].Status != models.StatusRunning {
		t.Fatalf("post starting exactly now must start RUNNING, status=%s", st.posts["jp"].Status)
	}
}

func TestSweepEndBoundaryIsExclusive(t *testing.T) {
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	st := newMemSweepStore(post("jp", models.StatusRunning, now.AddDate(0, 0, -7), now))
	s := newTestSweeper(st)

	applied, err := s.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if applied != 0 || st.posts["jp"].Status != models.StatusRunning {
		t.Fatalf("post ending exactly now must stay RUNNING, status=%s", st.posts["jp"].Status)
	}

	// One instant later the window has closed.
	applied, err = s.Sweep(context.Background(), now.Add(time.Second))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if applied != 1 || st.posts["jp"].Status != models.StatusCompleted {
		t.Fatalf("expected COMPLETED, status=%s", st.posts["jp"].Status)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	st := newMemSweepStore(
		post("a", models.StatusReady, now.Add(-time.Hour), now.AddDate(0, 0, 7)),
		post("b", models.StatusRunning, now.AddDate(0, 0, -9), now.AddDate(0, 0, -2)),
	)
	s := newTestSweeper(st)

	applied, err := s.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 transitions, got %d", applied)
	}

	// Immediately re-running transitions nothing further: "a" is now RUNNING
	// with an open window, "b" is settled.
	applied, err = s.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected idempotent second sweep, got %d transitions", applied)
	}
}

func TestSweepIsolatesItemFailures(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	st := newMemSweepStore(
		post("bad", models.StatusReady, now.Add(-time.Hour), now.AddDate(0, 0, 7)),
		post("good", models.StatusReady, now.Add(-time.Hour), now.AddDate(0, 0, 7)),
	)
	st.failOn["bad"] = errors.New("write failed")
	s := newTestSweeper(st)

	applied, err := s.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("item failure must not fail the sweep: %v", err)
	}
	if applied != 1 || st.posts["good"].Status != models.StatusRunning {
		t.Fatalf("independent post must still transition, status=%s", st.posts["good"].Status)
	}
	if st.posts["bad"].Status != models.StatusReady {
		t.Fatalf("failed post keeps its status for the next sweep")
	}
}

func TestSweepReportsListFailure(t *testing.T) {
	st := newMemSweepStore()
	st.listErr = errors.New("db down")
	s := newTestSweeper(st)

	if _, err := s.Sweep(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected error when listing fails")
	}
}
