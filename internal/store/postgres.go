package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alialjohani/quickhop-sub000/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps pgxpool for Postgres persistence.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetRecruiter fetches a recruiter by id.
func (s *Store) GetRecruiter(ctx context.Context, id string) (models.Recruiter, error) {
	var r models.Recruiter
	err := s.pool.QueryRow(ctx, `
		SELECT id, company, email, first_name, last_name
		FROM recruiters WHERE id = $1
	`, id).Scan(&r.ID, &r.Company, &r.Email, &r.FirstName, &r.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Recruiter{}, fmt.Errorf("recruiter %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Recruiter{}, fmt.Errorf("query recruiter: %w", err)
	}
	return r, nil
}

// CreateJobPostParams collects inputs required to insert a job post.
type CreateJobPostParams struct {
	RecruiterID            string
	Title                  string
	Description            string
	Responsibility         string
	RequiredQualification  string
	PreferredQualification string
	MaxCandidates          int
	MinMatchingPercentage  int
	AICallsStartingDate    time.Time
	AICallsEndDate         time.Time
	InterviewQuestions     []string
}

// CreateJobPost inserts a job post in status NEW.
func (s *Store) CreateJobPost(ctx context.Context, p CreateJobPostParams) (models.JobPost, error) {
	questionsJSON, err := json.Marshal(p.InterviewQuestions)
	if err != nil {
		return models.JobPost{}, fmt.Errorf("marshal interview questions: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO job_posts (
			id, recruiter_id, status, title, description, responsibility,
			required_qualification, preferred_qualification, max_candidates,
			min_matching_percentage, ai_calls_starting_date, ai_calls_end_date,
			interview_questions, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`, id, p.RecruiterID, models.StatusNew, p.Title, p.Description, p.Responsibility,
		p.RequiredQualification, p.PreferredQualification, p.MaxCandidates,
		p.MinMatchingPercentage, p.AICallsStartingDate, p.AICallsEndDate,
		questionsJSON, now)
	if err != nil {
		return models.JobPost{}, fmt.Errorf("insert job post: %w", err)
	}

	return models.JobPost{
		ID:                     id,
		RecruiterID:            p.RecruiterID,
		Status:                 models.StatusNew,
		Title:                  p.Title,
		Description:            p.Description,
		Responsibility:         p.Responsibility,
		RequiredQualification:  p.RequiredQualification,
		PreferredQualification: p.PreferredQualification,
		MaxCandidates:          p.MaxCandidates,
		MinMatchingPercentage:  p.MinMatchingPercentage,
		AICallsStartingDate:    p.AICallsStartingDate,
		AICallsEndDate:         p.AICallsEndDate,
		InterviewQuestions:     p.InterviewQuestions,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

const jobPostColumns = `
	id, recruiter_id, status, title, description, responsibility,
	required_qualification, preferred_qualification, max_candidates,
	min_matching_percentage, ai_calls_starting_date, ai_calls_end_date,
	interview_questions, created_at, updated_at
`

func scanJobPost(row pgx.Row) (models.JobPost, error) {
	var jp models.JobPost
	var questionsJSON []byte
	if err := row.Scan(&jp.ID, &jp.RecruiterID, &jp.Status, &jp.Title, &jp.Description,
		&jp.Responsibility, &jp.RequiredQualification, &jp.PreferredQualification,
		&jp.MaxCandidates, &jp.MinMatchingPercentage, &jp.AICallsStartingDate,
		&jp.AICallsEndDate, &questionsJSON, &jp.CreatedAt, &jp.UpdatedAt); err != nil {
		return models.JobPost{}, err
	}
	if len(questionsJSON) > 0 {
		if err := json.Unmarshal(questionsJSON, &jp.InterviewQuestions); err != nil {
			return models.JobPost{}, fmt.Errorf("unmarshal interview questions: %w", err)
		}
	}
	return jp, nil
}

// GetJobPost fetches a job post by id.
func (s *Store) GetJobPost(ctx context.Context, id string) (models.JobPost, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobPostColumns+` FROM job_posts WHERE id = $1`, id)
	jp, err := scanJobPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.JobPost{}, fmt.Errorf("job post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.JobPost{}, fmt.Errorf("scan job post: %w", err)
	}
	return jp, nil
}

// UpdateJobPostStatus applies a lifecycle transition as a conditional update.
// It reports whether a row actually changed; zero rows affected means the job
// post was not in the expected state and the caller treats it as a no-op.
func (s *Store) UpdateJobPostStatus(ctx context.Context, id, expected, next string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE job_posts SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("update job post status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListJobPostsToRun returns READY job posts whose calling window has opened.
// The start boundary is inclusive.
func (s *Store) ListJobPostsToRun(ctx context.Context, now time.Time) ([]models.JobPost, error) {
	return s.listJobPosts(ctx, `
		SELECT `+jobPostColumns+` FROM job_posts
		WHERE status = $1 AND ai_calls_starting_date <= $2
		ORDER BY created_at
	`, models.StatusReady, now)
}

// ListJobPostsToComplete returns RUNNING job posts whose calling window has
// closed. The end boundary is exclusive: a job post ending exactly now stays RUNNING.
func (s *Store) ListJobPostsToComplete(ctx context.Context, now time.Time) ([]models.JobPost, error) {
	return s.listJobPosts(ctx, `
		SELECT `+jobPostColumns+` FROM job_posts
		WHERE status = $1 AND ai_calls_end_date < $2
		ORDER BY created_at
	`, models.StatusRunning, now)
}

func (s *Store) listJobPosts(ctx context.Context, query string, args ...any) ([]models.JobPost, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query job posts: %w", err)
	}
	defer rows.Close()

	var out []models.JobPost
	for rows.Next() {
		jp, err := scanJobPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job post: %w", err)
		}
		out = append(out, jp)
	}
	return out, rows.Err()
}

// ListJobSeekers loads every job seeker aggregate in the system. The pipeline
// fans out over the full pool, so there is no filtering here.
func (s *Store) ListJobSeekers(ctx context.Context) ([]models.JobSeeker, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, first_name, last_name, email, phone, summary
		FROM job_seekers ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query job seekers: %w", err)
	}
	defer rows.Close()

	var seekers []models.JobSeeker
	index := map[string]int{}
	for rows.Next() {
		var js models.JobSeeker
		if err := rows.Scan(&js.ID, &js.FirstName, &js.LastName, &js.Email, &js.Phone, &js.Summary); err != nil {
			return nil, fmt.Errorf("scan job seeker: %w", err)
		}
		index[js.ID] = len(seekers)
		seekers = append(seekers, js)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(seekers) == 0 {
		return nil, nil
	}

	if err := s.loadEducations(ctx, seekers, index); err != nil {
		return nil, err
	}
	if err := s.loadWorks(ctx, seekers, index); err != nil {
		return nil, err
	}
	if err := s.loadCertifications(ctx, seekers, index); err != nil {
		return nil, err
	}
	return seekers, nil
}

func (s *Store) loadEducations(ctx context.Context, seekers []models.JobSeeker, index map[string]int) error {
	rows, err := s.pool.Query(ctx, `
		SELECT job_seeker_id, school, degree, field, start_year, end_year, description
		FROM educations ORDER BY job_seeker_id, position
	`)
	if err != nil {
		return fmt.Errorf("query educations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seekerID string
		var e models.Education
		if err := rows.Scan(&seekerID, &e.School, &e.Degree, &e.Field, &e.StartYear, &e.EndYear, &e.Description); err != nil {
			return fmt.Errorf("scan education: %w", err)
		}
		if i, ok := index[seekerID]; ok {
			seekers[i].Educations = append(seekers[i].Educations, e)
		}
	}
	return rows.Err()
}

func (s *Store) loadWorks(ctx context.Context, seekers []models.JobSeeker, index map[string]int) error {
	rows, err := s.pool.Query(ctx, `
		SELECT job_seeker_id, company, title, start_year, end_year, description
		FROM works ORDER BY job_seeker_id, position
	`)
	if err != nil {
		return fmt.Errorf("query works: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seekerID string
		var w models.Work
		if err := rows.Scan(&seekerID, &w.Company, &w.Title, &w.StartYear, &w.EndYear, &w.Description); err != nil {
			return fmt.Errorf("scan work: %w", err)
		}
		if i, ok := index[seekerID]; ok {
			seekers[i].Works = append(seekers[i].Works, w)
		}
	}
	return rows.Err()
}

func (s *Store) loadCertifications(ctx context.Context, seekers []models.JobSeeker, index map[string]int) error {
	rows, err := s.pool.Query(ctx, `
		SELECT job_seeker_id, name, issuer, issue_year, description
		FROM certifications ORDER BY job_seeker_id, position
	`)
	if err != nil {
		return fmt.Errorf("query certifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seekerID string
		var c models.Certification
		if err := rows.Scan(&seekerID, &c.Name, &c.Issuer, &c.IssueYear, &c.Description); err != nil {
			return fmt.Errorf("scan certification: %w", err)
		}
		if i, ok := index[seekerID]; ok {
			seekers[i].Certifications = append(seekers[i].Certifications, c)
		}
	}
	return rows.Err()
}

// CreateOpportunityResult inserts the per-candidate screening outcome.
// The access key carries a unique constraint so a duplicate creation fails
// loudly instead of silently producing two capability tokens.
func (s *Store) CreateOpportunityResult(ctx context.Context, o models.OpportunityResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO opportunity_results (
			id, job_post_id, job_seeker_id, one_time_access_key,
			matching_score, status, interview_completion_date, recording_uri, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, o.ID, o.JobPostID, o.JobSeekerID, o.OneTimeAccessKey,
		o.MatchingScore, o.Status, o.InterviewCompletionDate, o.RecordingURI, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert opportunity result: %w", err)
	}
	return nil
}

// DeleteOpportunityResult removes an opportunity. Used for best-effort rollback
// when a later per-candidate write fails.
func (s *Store) DeleteOpportunityResult(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM opportunity_results WHERE id = $1`, id)
	return err
}

// GetOpportunityResult fetches one opportunity by id.
func (s *Store) GetOpportunityResult(ctx context.Context, id string) (models.OpportunityResult, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, job_post_id, job_seeker_id, one_time_access_key,
		       matching_score, status, interview_completion_date, recording_uri, created_at
		FROM opportunity_results WHERE id = $1
	`, id)
	o, err := scanOpportunity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.OpportunityResult{}, fmt.Errorf("opportunity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.OpportunityResult{}, fmt.Errorf("scan opportunity: %w", err)
	}
	return o, nil
}

// ListOpportunitiesByJobPost returns all opportunities created for a job post.
func (s *Store) ListOpportunitiesByJobPost(ctx context.Context, jobPostID string) ([]models.OpportunityResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, job_post_id, job_seeker_id, one_time_access_key,
		       matching_score, status, interview_completion_date, recording_uri, created_at
		FROM opportunity_results WHERE job_post_id = $1 ORDER BY created_at
	`, jobPostID)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	var out []models.OpportunityResult
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOpportunity(row pgx.Row) (models.OpportunityResult, error) {
	var o models.OpportunityResult
	var completion pgtype.Timestamptz
	var recording pgtype.Text
	if err := row.Scan(&o.ID, &o.JobPostID, &o.JobSeekerID, &o.OneTimeAccessKey,
		&o.MatchingScore, &o.Status, &completion, &recording, &o.CreatedAt); err != nil {
		return models.OpportunityResult{}, err
	}
	if completion.Valid {
		t := completion.Time
		o.InterviewCompletionDate = &t
	}
	if recording.Valid {
		v := recording.String
		o.RecordingURI = &v
	}
	return o, nil
}
