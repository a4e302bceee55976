package gemini

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alialjohani/quickhop-sub000/internal/ai"
)

// The model occasionally wraps its answer in markdown fences or stray
// backticks; every parser goes through extractJSON first.

func parsePoints(raw string) ([]string, error) {
	cleaned := extractJSON(raw)
	var points []string
	if err := json.Unmarshal([]byte(cleaned), &points); err != nil {
		return nil, fmt.Errorf("parse points response: %w", err)
	}
	out := points[:0]
	for _, p := range points {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

func parseAssessment(raw string) (ai.Assessment, error) {
	cleaned := extractJSON(raw)
	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return ai.Assessment{}, fmt.Errorf("parse assessment response: %w", err)
	}

	score := coerceFloat(data["matching_score"])
	if math.IsNaN(score) {
		score = 0
	}
	return ai.Assessment{
		Qualified:     coerceBool(data["qualified"]),
		MatchingScore: score,
		Feedback:      coerceString(data["feedback"]),
	}, nil
}

func parseTailored(raw string) (ai.TailoredSections, error) {
	cleaned := extractJSON(raw)
	var sections ai.TailoredSections
	if err := json.Unmarshal([]byte(cleaned), &sections); err != nil {
		return ai.TailoredSections{}, fmt.Errorf("parse tailored response: %w", err)
	}
	if sections.Education == nil {
		sections.Education = []ai.SectionEntry{}
	}
	if sections.Work == nil {
		sections.Work = []ai.SectionEntry{}
	}
	if sections.Certifications == nil {
		sections.Certifications = []ai.SectionEntry{}
	}
	return sections, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
