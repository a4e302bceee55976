// Package screening builds the structured matching input for one (job,
// candidate) pair and turns the external model's answer into a qualification
// verdict.
package screening

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alialjohani/quickhop-sub000/internal/ai"
	"github.com/alialjohani/quickhop-sub000/internal/models"
)

// JobPoints are the bullet-extracted job text fields, computed once per job
// post before candidate fan-out.
type JobPoints struct {
	Responsibility []string
	Required       []string
	Preferred      []string
}

// Scorer wraps the AI client for point extraction and candidate scoring.
type Scorer struct {
	client      ai.Client
	logger      *zap.Logger
	callTimeout time.Duration
}

// NewScorer constructs a scorer. callTimeout bounds every external invocation.
func NewScorer(client ai.Client, logger *zap.Logger, callTimeout time.Duration) *Scorer {
	if callTimeout <= 0 {
		callTimeout = 90 * time.Second
	}
	return &Scorer{client: client, logger: logger, callTimeout: callTimeout}
}

// ExtractPoints condenses free text into bullets. Blank input yields the
// empty-string placeholder list without calling the model.
func (s *Scorer) ExtractPoints(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{""}, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	points, err := s.client.ExtractPoints(callCtx, text)
	if err != nil {
		return nil, fmt.Errorf("extract points: %w", err)
	}
	if len(points) == 0 {
		points = []string{""}
	}
	return points, nil
}

// ExtractJobPoints runs the three independent extractions for a job post.
func (s *Scorer) ExtractJobPoints(ctx context.Context, jp models.JobPost) (JobPoints, error) {
	responsibility, err := s.ExtractPoints(ctx, jp.Responsibility)
	if err != nil {
		return JobPoints{}, fmt.Errorf("responsibility: %w", err)
	}
	required, err := s.ExtractPoints(ctx, jp.RequiredQualification)
	if err != nil {
		return JobPoints{}, fmt.Errorf("required qualification: %w", err)
	}
	preferred, err := s.ExtractPoints(ctx, jp.PreferredQualification)
	if err != nil {
		return JobPoints{}, fmt.Errorf("preferred qualification: %w", err)
	}
	return JobPoints{
		Responsibility: responsibility,
		Required:       required,
		Preferred:      preferred,
	}, nil
}

// BuildInput assembles the matching input for one candidate. Each section
// description is bullet-extracted independently.
func (s *Scorer) BuildInput(ctx context.Context, jp models.JobPost, jobPoints JobPoints, seeker models.JobSeeker) (ai.MatchingInput, error) {
	sections := ai.CandidateSections{
		Education:      []ai.SectionEntry{},
		Work:           []ai.SectionEntry{},
		Certifications: []ai.SectionEntry{},
	}

	for _, e := range seeker.Educations {
		points, err := s.ExtractPoints(ctx, e.Description)
		if err != nil {
			return ai.MatchingInput{}, fmt.Errorf("education %q: %w", e.School, err)
		}
		sections.Education = append(sections.Education, ai.SectionEntry{
			Title:        strings.TrimSpace(e.Degree + " " + e.Field),
			Organization: e.School,
			Years:        yearsRange(e.StartYear, e.EndYear),
			Points:       points,
		})
	}
	for _, w := range seeker.Works {
		points, err := s.ExtractPoints(ctx, w.Description)
		if err != nil {
			return ai.MatchingInput{}, fmt.Errorf("work %q: %w", w.Company, err)
		}
		sections.Work = append(sections.Work, ai.SectionEntry{
			Title:        w.Title,
			Organization: w.Company,
			Years:        yearsRange(w.StartYear, w.EndYear),
			Points:       points,
		})
	}
	for _, c := range seeker.Certifications {
		points, err := s.ExtractPoints(ctx, c.Description)
		if err != nil {
			return ai.MatchingInput{}, fmt.Errorf("certification %q: %w", c.Name, err)
		}
		sections.Certifications = append(sections.Certifications, ai.SectionEntry{
			Title:        c.Name,
			Organization: c.Issuer,
			Years:        yearsRange(c.IssueYear, 0),
			Points:       points,
		})
	}

	return ai.MatchingInput{
		JobTitle:                     jp.Title,
		JobDescription:               jp.Description,
		ResponsibilityPoints:         jobPoints.Responsibility,
		RequiredQualificationPoints:  jobPoints.Required,
		PreferredQualificationPoints: jobPoints.Preferred,
		MinMatchingPercentage:        jp.MinMatchingPercentage,
		Candidate:                    sections,
	}, nil
}

// Score asks the model for the qualification verdict.
func (s *Scorer) Score(ctx context.Context, input ai.MatchingInput) (ai.Assessment, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	assessment, err := s.client.ScoreCandidate(callCtx, input)
	if err != nil {
		return ai.Assessment{}, fmt.Errorf("score candidate: %w", err)
	}
	s.logger.Debug("candidate scored",
		zap.Bool("qualified", assessment.Qualified),
		zap.Float64("matching_score", assessment.MatchingScore),
	)
	return assessment, nil
}

func yearsRange(start, end int) string {
	switch {
	case start == 0 && end == 0:
		return ""
	case end == 0:
		return fmt.Sprintf("%d", start)
	default:
		return fmt.Sprintf("%d-%d", start, end)
	}
}
