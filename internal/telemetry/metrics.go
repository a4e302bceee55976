package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	PipelineRuns        = prometheus.NewCounter(prometheus.CounterOpts{Name: "matching_pipeline_runs_total", Help: "Matching pipeline executions started"})
	PipelineFailures    = prometheus.NewCounter(prometheus.CounterOpts{Name: "matching_pipeline_failures_total", Help: "Matching pipeline executions aborted by a fatal step"})
	CandidatesScreened  = prometheus.NewCounter(prometheus.CounterOpts{Name: "matching_candidates_screened_total", Help: "Candidates evaluated by the scorer"})
	CandidatesQualified = prometheus.NewCounter(prometheus.CounterOpts{Name: "matching_candidates_qualified_total", Help: "Candidates that received an opportunity"})
	CandidateFailures   = prometheus.NewCounter(prometheus.CounterOpts{Name: "matching_candidate_failures_total", Help: "Candidates skipped because a screening or provisioning step failed"})
	SweepTransitions    = prometheus.NewCounter(prometheus.CounterOpts{Name: "lifecycle_sweep_transitions_total", Help: "Job post transitions applied by the sweeper"})
	SweepFailures       = prometheus.NewCounter(prometheus.CounterOpts{Name: "lifecycle_sweep_failures_total", Help: "Job posts whose transition failed during a sweep"})
	RateLimitRejects    = prometheus.NewCounter(prometheus.CounterOpts{Name: "api_rate_limit_rejects_total", Help: "Job post creations rejected by the rate limiter"})
	SignedURLRejects    = prometheus.NewCounter(prometheus.CounterOpts{Name: "resume_signed_url_rejects_total", Help: "Signed URL requests rejected by ownership check"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			PipelineRuns,
			PipelineFailures,
			CandidatesScreened,
			CandidatesQualified,
			CandidateFailures,
			SweepTransitions,
			SweepFailures,
			RateLimitRejects,
			SignedURLRejects,
		)
	})
	return promhttp.Handler()
}
