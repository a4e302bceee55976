// Package ai defines the contract with the external reasoning service. The
// service is stateless request/response; implementations live in subpackages
// and are injected at application startup so tests can substitute a double.
package ai

import "context"

// SectionEntry is one bullet-extracted entry of a candidate CV section.
type SectionEntry struct {
	Title        string   `json:"title"`
	Organization string   `json:"organization"`
	Years        string   `json:"years"`
	Points       []string `json:"points"`
}

// CandidateSections groups the three CV sections sent to the model.
type CandidateSections struct {
	Education      []SectionEntry `json:"education"`
	Work           []SectionEntry `json:"work"`
	Certifications []SectionEntry `json:"certifications"`
}

// MatchingInput is the structured payload for scoring and resume tailoring:
// job fields plus the candidate's bullet-extracted sections.
type MatchingInput struct {
	JobTitle                     string            `json:"job_title"`
	JobDescription               string            `json:"job_description"`
	ResponsibilityPoints         []string          `json:"responsibility_points"`
	RequiredQualificationPoints  []string          `json:"required_qualification_points"`
	PreferredQualificationPoints []string          `json:"preferred_qualification_points"`
	MinMatchingPercentage        int               `json:"min_matching_percentage"`
	Candidate                    CandidateSections `json:"candidate"`
}

// Assessment is the qualification verdict for one (job, candidate) pair.
type Assessment struct {
	Qualified     bool
	MatchingScore float64
	Feedback      string
}

// TailoredSections is a resume filtered and re-ranked against one job.
type TailoredSections struct {
	Summary        string         `json:"summary"`
	Education      []SectionEntry `json:"education"`
	Work           []SectionEntry `json:"work"`
	Certifications []SectionEntry `json:"certifications"`
}

// Client is the external reasoning service.
type Client interface {
	// ExtractPoints condenses free text into concise bullet points.
	ExtractPoints(ctx context.Context, text string) ([]string, error)
	// ScoreCandidate decides whether the candidate qualifies for the job.
	ScoreCandidate(ctx context.Context, input MatchingInput) (Assessment, error)
	// TailorResume filters and re-ranks each CV section against the job.
	TailorResume(ctx context.Context, input MatchingInput) (TailoredSections, error)
}
