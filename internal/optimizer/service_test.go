package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleetpulse/internal/route"
)

type stubPlanner struct {
	result *Result
	err    error
	calls  int
}

func (p *stubPlanner) Name() string { return "stub" }

func (p *stubPlanner) Plan(_ context.Context, req Request) (*Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	result := *p.result
	annotateVisits(&result, req.Stops)
	return &result, nil
}

func TestService_PrimarySuccessScoresConfidence(t *testing.T) {
	primary := &stubPlanner{result: &Result{
		Sequence:  []int{0, 1, 2, 3, 4},
		Reasoning: "urgent stops first, then shortest remaining path",
		Metrics:   Metrics{TotalDistanceKm: 18.4},
		Method:    "stub",
	}}
	svc := NewService(ServiceConfig{Primary: primary, Logger: zerolog.Nop()})

	result, err := svc.Optimize(context.Background(), Request{Stops: fixtureStops()})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	// No time windows on the fixture stops: base 0.7 plus rationale and
	// distance bonuses.
	if result.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", result.Confidence)
	}
	if result.Method != "stub" {
		t.Errorf("method = %q, want stub", result.Method)
	}
}

func TestService_WindowedStopsClampAtMax(t *testing.T) {
	primary := &stubPlanner{result: &Result{
		Sequence:  []int{0},
		Reasoning: "single stop, trivially the only possible order",
		Metrics:   Metrics{TotalDistanceKm: 3.1},
		Method:    "stub",
	}}
	svc := NewService(ServiceConfig{Primary: primary, Logger: zerolog.Nop()})

	now := time.Now()
	stops := fixtureStops()[:1]
	stops[0].Window = route.TimeWindow{Earliest: now, Latest: now.Add(time.Hour)}

	result, err := svc.Optimize(context.Background(), Request{Stops: stops})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %f, want clamp at 1.0", result.Confidence)
	}
}

func TestService_FallsBackOnPrimaryFailure(t *testing.T) {
	primary := &stubPlanner{err: errors.New("model overloaded")}
	svc := NewService(ServiceConfig{Primary: primary, Logger: zerolog.Nop()})

	result, err := svc.Optimize(context.Background(), Request{Stops: fixtureStops()})
	if err != nil {
		t.Fatalf("Optimize must not surface primary failures: %v", err)
	}

	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}
	if result.Method != FallbackName {
		t.Errorf("method = %q, want %q", result.Method, FallbackName)
	}
	if result.Confidence != fallbackConfidence {
		t.Errorf("confidence = %f, want %f", result.Confidence, fallbackConfidence)
	}
}

func TestService_NilPrimaryUsesFallback(t *testing.T) {
	svc := NewService(ServiceConfig{Logger: zerolog.Nop()})

	result, err := svc.Optimize(context.Background(), Request{Stops: fixtureStops()})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if result.Method != FallbackName {
		t.Errorf("method = %q, want %q", result.Method, FallbackName)
	}
}

func TestService_EmptyStops(t *testing.T) {
	svc := NewService(ServiceConfig{Logger: zerolog.Nop()})
	if _, err := svc.Optimize(context.Background(), Request{}); !errors.Is(err, ErrNoStops) {
		t.Fatalf("expected ErrNoStops, got %v", err)
	}
}
