// Package resume derives a tailored resume per qualified candidate and
// persists it to the document store.
package resume

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alialjohani/quickhop-sub000/internal/ai"
	"github.com/alialjohani/quickhop-sub000/internal/docstore"
	"github.com/alialjohani/quickhop-sub000/internal/models"
)

// DocumentStore is the subset of the object store the provisioner needs.
type DocumentStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string, tags map[string]string) error
}

// Provisioner tailors, renders, and uploads one resume per qualified candidate.
type Provisioner struct {
	client      ai.Client
	renderer    Renderer
	docs        DocumentStore
	logger      *zap.Logger
	callTimeout time.Duration
}

// NewProvisioner constructs a provisioner. callTimeout bounds the AI call.
func NewProvisioner(client ai.Client, renderer Renderer, docs DocumentStore, logger *zap.Logger, callTimeout time.Duration) *Provisioner {
	if callTimeout <= 0 {
		callTimeout = 90 * time.Second
	}
	return &Provisioner{
		client:      client,
		renderer:    renderer,
		docs:        docs,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

// ObjectKey is the deterministic document-store key of a candidate's tailored
// resume, derivable later from the opportunity alone.
func ObjectKey(jobPostID, jobSeekerID string) string {
	return fmt.Sprintf("resumes/%s/%s.txt", jobPostID, jobSeekerID)
}

// Provision runs tailor, render, upload for one candidate. Any failure is
// fatal for this candidate only; the caller isolates it. The transient render
// artifact is removed whether or not the upload succeeds.
func (p *Provisioner) Provision(ctx context.Context, jp models.JobPost, recruiter models.Recruiter, seeker models.JobSeeker, input ai.MatchingInput) error {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	sections, err := p.client.TailorResume(callCtx, input)
	if err != nil {
		return fmt.Errorf("tailor resume: %w", err)
	}

	path, contentType, err := p.renderer.Render(Document{
		CandidateName: seeker.FirstName + " " + seeker.LastName,
		Email:         seeker.Email,
		Phone:         seeker.Phone,
		JobTitle:      jp.Title,
		Sections:      sections,
	})
	if err != nil {
		return fmt.Errorf("render resume: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			p.logger.Warn("remove transient resume artifact",
				zap.String("path", path), zap.Error(err))
		}
	}()

	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rendered resume: %w", err)
	}

	key := ObjectKey(jp.ID, seeker.ID)
	tags := map[string]string{
		docstore.TagRecruiterID: recruiter.ID,
		docstore.TagJobSeekerID: seeker.ID,
	}
	if err := p.docs.Put(ctx, key, body, contentType, tags); err != nil {
		return fmt.Errorf("upload resume: %w", err)
	}

	p.logger.Debug("resume provisioned",
		zap.String("job_post_id", jp.ID),
		zap.String("job_seeker_id", seeker.ID),
		zap.String("key", key),
	)
	return nil
}
