package models

import (
	"time"
)

// JobPostStatus enumerates lifecycle states persisted in Postgres.
// Transitions are strictly linear; see internal/lifecycle.
const (
	StatusNew       = "NEW"
	StatusSelecting = "SELECTING"
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
)

// Opportunity review states set by the pipeline and later by human reviewers.
const (
	OpportunityPending     = "PENDING"
	OpportunitySelected    = "SELECTED"
	OpportunityNotSelected = "NOT_SELECTED"
)

// Recruiter owns job posts. Resolved once per pipeline run.
type Recruiter struct {
	ID        string `json:"id"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// JobPost is a recruiter's posting and the unit the pipeline operates on.
// Status is mutated only through conditional lifecycle transitions.
type JobPost struct {
	ID                      string    `json:"id"`
	RecruiterID             string    `json:"recruiter_id"`
	Status                  string    `json:"status"`
	Title                   string    `json:"title"`
	Description             string    `json:"description"`
	Responsibility          string    `json:"responsibility"`
	RequiredQualification   string    `json:"required_qualification"`
	PreferredQualification  string    `json:"preferred_qualification"`
	MaxCandidates           int       `json:"max_candidates"`
	MinMatchingPercentage   int       `json:"min_matching_percentage"`
	AICallsStartingDate     time.Time `json:"ai_calls_starting_date"`
	AICallsEndDate          time.Time `json:"ai_calls_end_date"`
	InterviewQuestions      []string  `json:"interview_questions"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// Education is one schooling entry of a job seeker profile.
type Education struct {
	School      string `json:"school"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartYear   int    `json:"start_year"`
	EndYear     int    `json:"end_year"`
	Description string `json:"description"`
}

// Work is one employment entry of a job seeker profile.
type Work struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	StartYear   int    `json:"start_year"`
	EndYear     int    `json:"end_year"`
	Description string `json:"description"`
}

// Certification is one credential entry of a job seeker profile.
type Certification struct {
	Name        string `json:"name"`
	Issuer      string `json:"issuer"`
	IssueYear   int    `json:"issue_year"`
	Description string `json:"description"`
}

// JobSeeker is the candidate aggregate. The pipeline reads it, never writes it.
type JobSeeker struct {
	ID             string          `json:"id"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Summary        string          `json:"summary"`
	Educations     []Education     `json:"educations"`
	Works          []Work          `json:"works"`
	Certifications []Certification `json:"certifications"`
}

// OpportunityResult links one job seeker to one job post after screening.
// Created exactly once per qualifying candidate; the access key is the
// capability token for the downstream interview flow.
type OpportunityResult struct {
	ID                      string     `json:"id"`
	JobPostID               string     `json:"job_post_id"`
	JobSeekerID             string     `json:"job_seeker_id"`
	OneTimeAccessKey        string     `json:"one_time_access_key"`
	MatchingScore           float64    `json:"matching_score"`
	Status                  string     `json:"status"`
	InterviewCompletionDate *time.Time `json:"interview_completion_date,omitempty"`
	RecordingURI            *string    `json:"recording_uri,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}
