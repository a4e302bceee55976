package resume

import (
	"fmt"
	"os"
	"strings"

	"github.com/alialjohani/quickhop-sub000/internal/ai"
)

// Document is the structured input handed to a Renderer.
type Document struct {
	CandidateName string
	Email         string
	Phone         string
	JobTitle      string
	Sections      ai.TailoredSections
}

// Renderer produces a document file from structured sections. Layout is a
// collaborator concern; implementations render to a transient local file that
// the provisioner uploads and removes.
type Renderer interface {
	Render(doc Document) (path string, contentType string, err error)
}

// TextRenderer is the plain-text Renderer shipped with the service.
type TextRenderer struct{}

// NewTextRenderer returns a renderer writing UTF-8 text files.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render writes the resume as a temp file and returns its path.
func (r *TextRenderer) Render(doc Document) (string, string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s | %s\n", doc.CandidateName, doc.Email, doc.Phone)
	fmt.Fprintf(&b, "Tailored for: %s\n\n", doc.JobTitle)
	if doc.Sections.Summary != "" {
		fmt.Fprintf(&b, "SUMMARY\n%s\n\n", doc.Sections.Summary)
	}
	writeSection(&b, "WORK EXPERIENCE", doc.Sections.Work)
	writeSection(&b, "EDUCATION", doc.Sections.Education)
	writeSection(&b, "CERTIFICATIONS", doc.Sections.Certifications)

	f, err := os.CreateTemp("", "resume-*.txt")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", "", fmt.Errorf("write resume: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", "", fmt.Errorf("close resume: %w", err)
	}
	return f.Name(), "text/plain; charset=utf-8", nil
}

func writeSection(b *strings.Builder, heading string, entries []ai.SectionEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "%s\n", heading)
	for _, e := range entries {
		line := e.Title
		if e.Organization != "" {
			line += ", " + e.Organization
		}
		if e.Years != "" {
			line += " (" + e.Years + ")"
		}
		fmt.Fprintf(b, "%s\n", strings.TrimSpace(line))
		for _, p := range e.Points {
			if strings.TrimSpace(p) == "" {
				continue
			}
			fmt.Fprintf(b, "  - %s\n", p)
		}
	}
	b.WriteString("\n")
}
