package gemini

import (
	"testing"
)

func TestParsePointsPlain(t *testing.T) {
	points, err := parsePoints(`["built APIs", "led a team", "  "]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(points) != 2 || points[0] != "built APIs" {
		t.Fatalf("unexpected points: %v", points)
	}
}

func TestParsePointsFenced(t *testing.T) {
	raw := "```json\n[\"one\", \"two\"]\n```"
	points, err := parsePoints(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(points) != 2 || points[1] != "two" {
		t.Fatalf("unexpected points: %v", points)
	}
}

func TestParsePointsGarbage(t *testing.T) {
	if _, err := parsePoints("sure, here are the points:"); err == nil {
		t.Fatalf("expected error on non-JSON payload")
	}
}

func TestParseAssessment(t *testing.T) {
	a, err := parseAssessment(`{"qualified": true, "matching_score": 87.5, "feedback": "solid match"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !a.Qualified || a.MatchingScore != 87.5 || a.Feedback != "solid match" {
		t.Fatalf("unexpected assessment: %+v", a)
	}
}

func TestParseAssessmentCoercesLooseTypes(t *testing.T) {
	// Models sometimes return strings where numbers and booleans belong.
	a, err := parseAssessment("```\n{\"qualified\": \"yes\", \"matching_score\": \"73\", \"feedback\": null}\n```")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !a.Qualified || a.MatchingScore != 73 || a.Feedback != "" {
		t.Fatalf("unexpected assessment: %+v", a)
	}
}

func TestParseTailoredDefaultsMissingSections(t *testing.T) {
	s, err := parseTailored(`{"summary": "experienced engineer", "work": [{"title": "dev", "organization": "co", "points": ["shipped"]}]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Summary != "experienced engineer" {
		t.Fatalf("unexpected summary: %q", s.Summary)
	}
	if len(s.Work) != 1 || s.Work[0].Points[0] != "shipped" {
		t.Fatalf("unexpected work section: %+v", s.Work)
	}
	// Absent sections come back empty, never nil.
	if s.Education == nil || s.Certifications == nil {
		t.Fatalf("missing sections must default to empty slices")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                      `{"a":1}`,
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"```\n{\"a\":1}\n```":            `{"a":1}`,
		"`{\"a\":1}`":                    `{"a":1}`,
		"  \n```json\n{\"a\":1}\n```\n ": `{"a":1}`,
	}
	for raw, want := range cases {
		if got := extractJSON(raw); got != want {
			t.Fatalf("extractJSON(%q) = %q, want %q", raw, got, want)
		}
	}
}
