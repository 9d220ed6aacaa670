package optimizer

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePlannerResponse_Valid(t *testing.T) {
	reply := `{
		"sequence": [2, 0, 1],
		"reasoning": "Urgent stop first, then shortest path.",
		"estimatedMetrics": {"totalDistanceKm": 12.5, "totalDurationMinutes": 45, "fuelEstimateLiters": 1.25},
		"warnings": ["tight window on stop 1"],
		"alternativeSequences": [[0, 2, 1], [1, 2, 0]]
	}`

	result, err := parsePlannerResponse(reply, 3)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(result.Sequence) != 3 || result.Sequence[0] != 2 {
		t.Errorf("unexpected sequence %v", result.Sequence)
	}
	if result.Metrics.TotalDistanceKm != 12.5 {
		t.Errorf("distance = %f, want 12.5", result.Metrics.TotalDistanceKm)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v", result.Warnings)
	}
	if len(result.Alternatives) != 2 {
		t.Errorf("alternatives = %d, want 2", len(result.Alternatives))
	}
}

func TestParsePlannerResponse_CodeFence(t *testing.T) {
	reply := "```json\n{\"sequence\": [0, 1], \"reasoning\": \"ok\", \"estimatedMetrics\": {}, \"warnings\": []}\n```"

	result, err := parsePlannerResponse(reply, 2)
	if err != nil {
		t.Fatalf("fenced JSON should parse: %v", err)
	}
	if len(result.Sequence) != 2 {
		t.Errorf("unexpected sequence %v", result.Sequence)
	}
}

func TestParsePlannerResponse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "sure! here is the plan: visit stop 2 first"},
		{"missing index", `{"sequence": [0, 1], "reasoning": "", "estimatedMetrics": {}}`},
		{"out of range", `{"sequence": [0, 1, 3], "reasoning": "", "estimatedMetrics": {}}`},
		{"duplicate index", `{"sequence": [0, 1, 1], "reasoning": "", "estimatedMetrics": {}}`},
		{"too many indices", `{"sequence": [0, 1, 2, 0], "reasoning": "", "estimatedMetrics": {}}`},
		{"empty reply", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parsePlannerResponse(tt.reply, 3); err == nil {
				t.Fatal("expected parse failure")
			} else if !errors.Is(err, ErrInvalidResult) {
				t.Errorf("expected ErrInvalidResult, got %v", err)
			}
		})
	}
}

func TestParsePlannerResponse_DropsInvalidAlternatives(t *testing.T) {
	reply := `{
		"sequence": [0, 1, 2],
		"reasoning": "direct",
		"estimatedMetrics": {},
		"warnings": [],
		"alternativeSequences": [[2, 1, 0], [0, 0, 1], [1, 0, 2], [2, 0, 1]]
	}`

	result, err := parsePlannerResponse(reply, 3)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	// Invalid alternative dropped, and the count capped at two.
	if len(result.Alternatives) != 2 {
		t.Fatalf("alternatives = %d, want 2", len(result.Alternatives))
	}
	for _, alt := range result.Alternatives {
		if err := validateSequence(alt, 3); err != nil {
			t.Errorf("kept invalid alternative %v: %v", alt, err)
		}
	}
}

func TestBuildPrompt_IncludesContext(t *testing.T) {
	req := Request{
		Stops:          fixtureStops(),
		Start:          fixtureStops()[0].Location,
		VehicleType:    "van",
		Priority:       PriorityBalanced,
		TrafficSummary: "severe congestion on A10",
		WeatherSummary: "heavy rain",
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		t.Fatalf("buildPrompt failed: %v", err)
	}

	for _, want := range []string{"severe congestion on A10", "heavy rain", "balanced", "van", `"priority":"urgent"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
