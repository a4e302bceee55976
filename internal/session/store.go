package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a record does not exist or has expired.
var ErrNotFound = errors.New("session record not found")

// Store writes the three ephemeral record kinds to Redis with absolute expiry.
type Store struct {
	client *redis.Client
}

// NewStore wraps an existing Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func sessionKey(accessKey string) string {
	return "interview:session:" + accessKey
}

func directiveKey(jobPostID string) string {
	return "interview:directive:" + jobPostID
}

func counterKey(jobPostID string) string {
	return "interview:counter:" + jobPostID
}

// indexKey tracks every access key issued for a job post so deactivation can
// find the sessions without scanning.
func indexKey(jobPostID string) string {
	return "interview:jobpost:" + jobPostID
}

// PutSession writes one candidate session keyed by the access key and records
// the key in the job post's index. Both expire at the record's ExpiresAt.
func (s *Store) PutSession(ctx context.Context, r SessionRecord) error {
	if err := r.validate(); err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(r.AccessKey), map[string]any{
		"job_post_id":    r.JobPostID,
		"opportunity_id": r.OpportunityID,
		"first_name":     r.FirstName,
		"last_name":      r.LastName,
		"phone":          r.Phone,
		"max_candidates": r.MaxCandidates,
		"is_active":      strconv.FormatBool(r.IsActive),
		"did_call":       strconv.FormatBool(r.DidCall),
	})
	pipe.ExpireAt(ctx, sessionKey(r.AccessKey), r.ExpiresAt)
	pipe.SAdd(ctx, indexKey(r.JobPostID), r.AccessKey)
	pipe.ExpireAt(ctx, indexKey(r.JobPostID), r.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put session record: %w", err)
	}
	return nil
}

// PutDirective writes the rendered interview script for a job post.
func (s *Store) PutDirective(ctx context.Context, r DirectiveRecord) error {
	if err := r.validate(); err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, directiveKey(r.JobPostID), map[string]any{
		"job_post_id": r.JobPostID,
		"script":      r.Script,
	})
	pipe.ExpireAt(ctx, directiveKey(r.JobPostID), r.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put directive record: %w", err)
	}
	return nil
}

// PutCounter writes the accepted-call counter for a job post.
func (s *Store) PutCounter(ctx context.Context, r CounterRecord) error {
	if err := r.validate(); err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, counterKey(r.JobPostID), map[string]any{
		"job_post_id": r.JobPostID,
		"count":       r.Count,
	})
	pipe.ExpireAt(ctx, counterKey(r.JobPostID), r.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put counter record: %w", err)
	}
	return nil
}

// GetSession reads one candidate session back.
func (s *Store) GetSession(ctx context.Context, accessKey string) (SessionRecord, error) {
	vals, err := s.client.HGetAll(ctx, sessionKey(accessKey)).Result()
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session record: %w", err)
	}
	if len(vals) == 0 {
		return SessionRecord{}, ErrNotFound
	}
	maxCandidates, _ := strconv.Atoi(vals["max_candidates"])
	isActive, _ := strconv.ParseBool(vals["is_active"])
	didCall, _ := strconv.ParseBool(vals["did_call"])
	return SessionRecord{
		AccessKey:     accessKey,
		JobPostID:     vals["job_post_id"],
		OpportunityID: vals["opportunity_id"],
		FirstName:     vals["first_name"],
		LastName:      vals["last_name"],
		Phone:         vals["phone"],
		MaxCandidates: maxCandidates,
		IsActive:      isActive,
		DidCall:       didCall,
	}, nil
}

// DeleteSession removes one candidate session and its index entry. Used for
// best-effort rollback when resume provisioning fails after the session write.
func (s *Store) DeleteSession(ctx context.Context, jobPostID, accessKey string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(accessKey))
	pipe.SRem(ctx, indexKey(jobPostID), accessKey)
	_, err := pipe.Exec(ctx)
	return err
}

// DeactivateJobPost flips is_active off on every session of a job post.
// Expired or already-purged sessions are skipped silently.
func (s *Store) DeactivateJobPost(ctx context.Context, jobPostID string) error {
	keys, err := s.client.SMembers(ctx, indexKey(jobPostID)).Result()
	if err != nil {
		return fmt.Errorf("list sessions for job post %s: %w", jobPostID, err)
	}
	if len(keys) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, accessKey := range keys {
		pipe.HSet(ctx, sessionKey(accessKey), "is_active", strconv.FormatBool(false))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deactivate sessions for job post %s: %w", jobPostID, err)
	}
	return nil
}

// SessionTTL reports the remaining lifetime of a session record.
func (s *Store) SessionTTL(ctx context.Context, accessKey string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, sessionKey(accessKey)).Result()
	if err != nil {
		return 0, fmt.Errorf("session ttl: %w", err)
	}
	return d, nil
}
