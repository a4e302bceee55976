// Package gemini implements the ai.Client contract on top of the Google
// GenAI API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/alialjohani/quickhop-sub000/internal/ai"
)

const defaultModel = "gemini-2.5-flash"

const extractPointsPrompt = `Condense the following text into short bullet points.
Return a JSON array of strings only, no markdown, no commentary.

Text:
%s`

const scoreCandidatePrompt = `You screen job candidates. Given the job and the
candidate sections below, decide whether the candidate qualifies.
Return JSON only with this shape:
{"qualified": bool, "matching_score": number between 0 and 100, "feedback": "short reason"}
A candidate qualifies when the score meets min_matching_percentage.

Input:
%s`

const tailorResumePrompt = `You tailor resumes. Filter and re-rank each candidate
section below so it best matches the job, dropping irrelevant entries.
Return JSON only with this shape:
{"summary": "one paragraph", "education": [...], "work": [...], "certifications": [...]}
Each section entry has: {"title": "", "organization": "", "years": "", "points": [""]}.
An absent input section must come back as an empty array, never null text.

Input:
%s`

// Client wraps the GenAI client behind the ai.Client contract.
type Client struct {
	client    *genai.Client
	modelName string
}

var _ ai.Client = (*Client)(nil)

// NewClient creates a client configured for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Client{client: client, modelName: model}, nil
}

// ExtractPoints condenses free text into bullet points.
func (c *Client) ExtractPoints(ctx context.Context, text string) ([]string, error) {
	raw, err := c.generate(ctx, fmt.Sprintf(extractPointsPrompt, text))
	if err != nil {
		return nil, err
	}
	return parsePoints(raw)
}

// ScoreCandidate returns the qualification verdict for one candidate.
func (c *Client) ScoreCandidate(ctx context.Context, input ai.MatchingInput) (ai.Assessment, error) {
	payload, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return ai.Assessment{}, fmt.Errorf("marshal matching input: %w", err)
	}
	raw, err := c.generate(ctx, fmt.Sprintf(scoreCandidatePrompt, payload))
	if err != nil {
		return ai.Assessment{}, err
	}
	return parseAssessment(raw)
}

// TailorResume filters each CV section against the job.
func (c *Client) TailorResume(ctx context.Context, input ai.MatchingInput) (ai.TailoredSections, error) {
	payload, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return ai.TailoredSections{}, fmt.Errorf("marshal matching input: %w", err)
	}
	raw, err := c.generate(ctx, fmt.Sprintf(tailorResumePrompt, payload))
	if err != nil {
		return ai.TailoredSections{}, err
	}
	return parseTailored(raw)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client is not initialized")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

// Model reports the configured model name.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}
