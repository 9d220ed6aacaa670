package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"
)

const (
	// DefaultModel is the Claude model used for route planning.
	DefaultModel = "claude-sonnet-4-20250514"

	// planTimeout bounds one AI planning call.
	planTimeout = 60 * time.Second

	// maxAlternatives caps alternative sequences accepted from the planner.
	maxAlternatives = 2
)

// AnthropicPlanner delegates stop sequencing to a Claude model. The model's
// reply must be strict JSON; any deviation is a parse failure, never a crash.
type AnthropicPlanner struct {
	client anthropic.Client
	model  string
	logger zerolog.Logger
}

// AnthropicConfig holds configuration for the AI planner.
type AnthropicConfig struct {
	// Model overrides DefaultModel when set.
	Model string

	// Logger for planner operations.
	Logger zerolog.Logger
}

// NewAnthropicPlanner creates an AI planner. The API key is read from the
// environment by the SDK.
func NewAnthropicPlanner(cfg AnthropicConfig) *AnthropicPlanner {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &AnthropicPlanner{
		client: anthropic.NewClient(),
		model:  model,
		logger: cfg.Logger,
	}
}

// Name returns the model identifier used in result attribution.
func (p *AnthropicPlanner) Name() string {
	return p.model
}

// Plan sends the sequencing problem to the model and parses its reply.
func (p *AnthropicPlanner) Plan(ctx context.Context, req Request) (*Result, error) {
	if len(req.Stops) == 0 {
		return nil, ErrNoStops
	}

	ctx, cancel := context.WithTimeout(ctx, planTimeout)
	defer cancel()

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	result, err := parsePlannerResponse(content.String(), len(req.Stops))
	if err != nil {
		return nil, err
	}

	result.Method = p.model
	annotateVisits(result, req.Stops)
	return result, nil
}

// promptStop is the stop representation embedded in the prompt.
type promptStop struct {
	Index          int     `json:"index"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	EarliestUTC    string  `json:"earliest,omitempty"`
	LatestUTC      string  `json:"latest,omitempty"`
	Priority       string  `json:"priority"`
	ServiceMinutes int     `json:"serviceMinutes"`
	PackageType    string  `json:"packageType,omitempty"`
}

func buildPrompt(req Request) (string, error) {
	stops := make([]promptStop, 0, len(req.Stops))
	for i, s := range req.Stops {
		ps := promptStop{
			Index:          i,
			Lat:            s.Location.Lat,
			Lon:            s.Location.Lon,
			Priority:       string(s.Priority),
			ServiceMinutes: s.ServiceMinutes,
			PackageType:    s.PackageType,
		}
		if !s.Window.Earliest.IsZero() {
			ps.EarliestUTC = s.Window.Earliest.UTC().Format(time.RFC3339)
		}
		if !s.Window.Latest.IsZero() {
			ps.LatestUTC = s.Window.Latest.UTC().Format(time.RFC3339)
		}
		stops = append(stops, ps)
	}

	stopsJSON, err := json.Marshal(stops)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a delivery route optimizer. Sequence the stops below into the best visiting order.\n\n")
	fmt.Fprintf(&b, "Start location: %.6f,%.6f\n", req.Start.Lat, req.Start.Lon)
	if req.End != nil {
		fmt.Fprintf(&b, "End location: %.6f,%.6f\n", req.End.Lat, req.End.Lon)
	}
	fmt.Fprintf(&b, "Vehicle type: %s\n", req.VehicleType)
	fmt.Fprintf(&b, "Optimize for: %s\n", req.Priority)
	if req.TrafficSummary != "" {
		fmt.Fprintf(&b, "Current traffic: %s\n", req.TrafficSummary)
	}
	if req.WeatherSummary != "" {
		fmt.Fprintf(&b, "Current weather: %s\n", req.WeatherSummary)
	}
	fmt.Fprintf(&b, "\nStops (JSON):\n%s\n\n", stopsJSON)
	b.WriteString(`Respond with ONLY a JSON object, no prose, in exactly this shape:
{
  "sequence": [/* every stop index exactly once, in visiting order */],
  "reasoning": "why this order",
  "estimatedMetrics": {"totalDistanceKm": 0, "totalDurationMinutes": 0, "fuelEstimateLiters": 0},
  "warnings": [],
  "alternativeSequences": [/* up to 2 alternative index arrays, optional */]
}`)

	return b.String(), nil
}

// plannerResponse is the strict reply contract.
type plannerResponse struct {
	Sequence         []int  `json:"sequence"`
	Reasoning        string `json:"reasoning"`
	EstimatedMetrics struct {
		TotalDistanceKm      float64 `json:"totalDistanceKm"`
		TotalDurationMinutes int     `json:"totalDurationMinutes"`
		FuelEstimateLiters   float64 `json:"fuelEstimateLiters"`
	} `json:"estimatedMetrics"`
	Warnings             []string `json:"warnings"`
	AlternativeSequences [][]int  `json:"alternativeSequences"`
}

// parsePlannerResponse validates the model reply against the contract. The
// sequence must be a permutation of the n request indices; alternatives that
// fail validation are dropped silently.
func parsePlannerResponse(text string, n int) (*Result, error) {
	cleaned := stripCodeFence(strings.TrimSpace(text))

	var resp plannerResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	if err := validateSequence(resp.Sequence, n); err != nil {
		return nil, err
	}

	var alternatives [][]int
	for _, alt := range resp.AlternativeSequences {
		if len(alternatives) == maxAlternatives {
			break
		}
		if validateSequence(alt, n) == nil {
			alternatives = append(alternatives, alt)
		}
	}

	return &Result{
		Sequence:     resp.Sequence,
		Reasoning:    resp.Reasoning,
		Warnings:     resp.Warnings,
		Alternatives: alternatives,
		Metrics: Metrics{
			TotalDistanceKm:      resp.EstimatedMetrics.TotalDistanceKm,
			TotalDurationMinutes: resp.EstimatedMetrics.TotalDurationMinutes,
			FuelLiters:           resp.EstimatedMetrics.FuelEstimateLiters,
		},
	}, nil
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
