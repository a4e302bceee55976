package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alialjohani/quickhop-sub000/internal/config"
	"github.com/alialjohani/quickhop-sub000/internal/docstore"
	"github.com/alialjohani/quickhop-sub000/internal/lifecycle"
	"github.com/alialjohani/quickhop-sub000/internal/models"
	"github.com/alialjohani/quickhop-sub000/internal/pipeline"
	"github.com/alialjohani/quickhop-sub000/internal/ratelimit"
	"github.com/alialjohani/quickhop-sub000/internal/resume"
	"github.com/alialjohani/quickhop-sub000/internal/session"
	"github.com/alialjohani/quickhop-sub000/internal/store"
	"github.com/alialjohani/quickhop-sub000/internal/telemetry"
)

// Store is the relational access the handlers need.
type Store interface {
	CreateJobPost(ctx context.Context, p store.CreateJobPostParams) (models.JobPost, error)
	GetJobPost(ctx context.Context, id string) (models.JobPost, error)
	GetOpportunityResult(ctx context.Context, id string) (models.OpportunityResult, error)
	ListOpportunitiesByJobPost(ctx context.Context, jobPostID string) ([]models.OpportunityResult, error)
}

// DocumentSigner issues ownership-checked signed URLs for stored resumes.
type DocumentSigner interface {
	SignedURL(ctx context.Context, key, requesterID string) (string, error)
}

// Server wires HTTP handlers for the recruiter-facing API.
type Server struct {
	cfg      config.Config
	store    Store
	sessions *session.Store
	docs     DocumentSigner
	runner   *pipeline.Runner
	machine  *lifecycle.Machine
	limiter  *ratelimit.TokenBucket
	logger   *zap.Logger
}

// New constructs the API server.
func New(cfg config.Config, st Store, sessions *session.Store, docs DocumentSigner, runner *pipeline.Runner, machine *lifecycle.Machine, limiter *ratelimit.TokenBucket, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		docs:     docs,
		runner:   runner,
		machine:  machine,
		limiter:  limiter,
		logger:   logger,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Post("/jobposts", s.handleCreateJobPost)
	r.Get("/jobposts/{id}", s.handleGetJobPost)
	r.Post("/jobposts/{id}/deactivate", s.handleDeactivate)
	r.Get("/jobposts/{id}/opportunities", s.handleListOpportunities)
	r.Get("/opportunities/{id}/resume-url", s.handleResumeURL)
	return r
}

type createJobPostRequest struct {
	RecruiterID            string    `json:"recruiter_id"`
	Title                  string    `json:"title"`
	Description            string    `json:"description"`
	Responsibility         string    `json:"responsibility"`
	RequiredQualification  string    `json:"required_qualification"`
	PreferredQualification string    `json:"preferred_qualification"`
	MaxCandidates          int       `json:"max_candidates"`
	MinMatchingPercentage  int       `json:"min_matching_percentage"`
	AICallsStartingDate    time.Time `json:"ai_calls_starting_date"`
	AICallsEndDate         time.Time `json:"ai_calls_end_date"`
	InterviewQuestions     []string  `json:"interview_questions"`
}

func (req createJobPostRequest) validate() error {
	if req.RecruiterID == "" {
		return errors.New("recruiter_id is required")
	}
	if req.Title == "" {
		return errors.New("title is required")
	}
	if req.MaxCandidates < 1 {
		return errors.New("max_candidates must be at least 1")
	}
	if req.MinMatchingPercentage < 0 || req.MinMatchingPercentage > 100 {
		return errors.New("min_matching_percentage must be between 0 and 100")
	}
	if req.AICallsStartingDate.IsZero() || req.AICallsEndDate.IsZero() {
		return errors.New("ai_calls_starting_date and ai_calls_end_date are required")
	}
	if req.AICallsEndDate.Before(req.AICallsStartingDate) {
		return errors.New("ai_calls_end_date must not precede ai_calls_starting_date")
	}
	return nil
}

// handleCreateJobPost inserts the post and fires the matching pipeline
// detached; the response does not wait for screening.
func (s *Server) handleCreateJobPost(w http.ResponseWriter, r *http.Request) {
	var req createJobPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.limiter != nil {
		limKey := fmt.Sprintf("rl:create:%s", req.RecruiterID)
		allowed, _, err := s.limiter.Allow(r.Context(), limKey)
		if err != nil {
			http.Error(w, "rate limit error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			telemetry.RateLimitRejects.Inc()
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
	}

	jp, err := s.store.CreateJobPost(r.Context(), store.CreateJobPostParams{
		RecruiterID:            req.RecruiterID,
		Title:                  req.Title,
		Description:            req.Description,
		Responsibility:         req.Responsibility,
		RequiredQualification:  req.RequiredQualification,
		PreferredQualification: req.PreferredQualification,
		MaxCandidates:          req.MaxCandidates,
		MinMatchingPercentage:  req.MinMatchingPercentage,
		AICallsStartingDate:    req.AICallsStartingDate,
		AICallsEndDate:         req.AICallsEndDate,
		InterviewQuestions:     req.InterviewQuestions,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	task := s.runner.Start(jp)
	go s.watchPipeline(task)

	writeJSON(w, http.StatusAccepted, jp)
}

// watchPipeline observes the detached run so failures show up in logs even
// though the creating request has long returned.
func (s *Server) watchPipeline(task *pipeline.Task) {
	<-task.Done()
	if err := task.Err(); err != nil {
		s.logger.Error("detached pipeline failed",
			zap.String("job_post_id", task.JobPostID), zap.Error(err))
	}
}

func (s *Server) handleGetJobPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	jp, err := s.store.GetJobPost(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, jp)
}

// handleDeactivate completes a RUNNING job post immediately and flips every
// associated interview session inactive, regardless of the sweeper schedule.
// Sessions are only deactivated once the post actually is COMPLETED; a post in
// any earlier state keeps its sessions alive and the request is rejected.
func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	applied, err := s.machine.Complete(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to deactivate job post", http.StatusInternalServerError)
		return
	}
	if !applied {
		jp, err := s.store.GetJobPost(r.Context(), id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		if jp.Status != models.StatusCompleted {
			http.Error(w, "job post is not running", http.StatusConflict)
			return
		}
	}
	if err := s.sessions.DeactivateJobPost(r.Context(), id); err != nil {
		http.Error(w, "failed to deactivate interview sessions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       models.StatusCompleted,
		"transitioned": applied,
	})
}

func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	opportunities, err := s.store.ListOpportunitiesByJobPost(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": opportunities})
}

// handleResumeURL returns a short-lived signed URL for a tailored resume. The
// requester must match either the recruiter or the candidate ownership tag.
func (s *Server) handleResumeURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	opportunity, err := s.store.GetOpportunityResult(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	requester := requesterFromRequest(r)
	key := resume.ObjectKey(opportunity.JobPostID, opportunity.JobSeekerID)
	url, err := s.docs.SignedURL(r.Context(), key, requester)
	if err != nil {
		if errors.Is(err, docstore.ErrNotOwner) {
			telemetry.SignedURLRejects.Inc()
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		http.Error(w, "failed to sign url", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// requesterFromRequest trusts the identity header; authentication itself is
// handled upstream of this service.
func requesterFromRequest(r *http.Request) string {
	return r.Header.Get("X-Requester-ID")
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
