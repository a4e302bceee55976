// Package session persists the ephemeral interview records consumed by the
// telephony system: one directive and one counter per job post, plus one
// session per provisioned candidate. Records expire at end of day of the job
// post's last calling date; the store never consumes them back.
package session

import (
	"errors"
	"fmt"
	"time"
)

// SessionRecord is the per-candidate record keyed by the one-time access key.
// It exists if and only if a PENDING/SELECTED opportunity exists and the job
// post has not been deactivated.
type SessionRecord struct {
	AccessKey     string
	JobPostID     string
	OpportunityID string
	FirstName     string
	LastName      string
	Phone         string
	MaxCandidates int
	IsActive      bool
	DidCall       bool
	ExpiresAt     time.Time
}

// DirectiveRecord holds the rendered interview-question script, one per job post.
type DirectiveRecord struct {
	JobPostID string
	Script    string
	ExpiresAt time.Time
}

// CounterRecord tracks accepted calls against the job post's candidate ceiling.
type CounterRecord struct {
	JobPostID string
	Count     int
	ExpiresAt time.Time
}

func (r SessionRecord) validate() error {
	if r.AccessKey == "" {
		return errors.New("session record: access key is required")
	}
	if r.JobPostID == "" {
		return errors.New("session record: job post id is required")
	}
	if r.OpportunityID == "" {
		return errors.New("session record: opportunity id is required")
	}
	if r.MaxCandidates < 1 {
		return fmt.Errorf("session record: max candidates must be >= 1, got %d", r.MaxCandidates)
	}
	if r.ExpiresAt.IsZero() {
		return errors.New("session record: expiry is required")
	}
	return nil
}

func (r DirectiveRecord) validate() error {
	if r.JobPostID == "" {
		return errors.New("directive record: job post id is required")
	}
	if r.Script == "" {
		return errors.New("directive record: script is required")
	}
	if r.ExpiresAt.IsZero() {
		return errors.New("directive record: expiry is required")
	}
	return nil
}

func (r CounterRecord) validate() error {
	if r.JobPostID == "" {
		return errors.New("counter record: job post id is required")
	}
	if r.Count < 0 {
		return fmt.Errorf("counter record: count must not be negative, got %d", r.Count)
	}
	if r.ExpiresAt.IsZero() {
		return errors.New("counter record: expiry is required")
	}
	return nil
}

// EndOfDay returns 23:59:59 local time of t's calendar day, the expiry
// instant shared by all three record kinds of a job post.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
