package optimizer

import (
	"context"
	"math"
	"sort"

	"github.com/fleetpulse/fleetpulse/internal/geo"
)

const (
	// FallbackName identifies the deterministic planner in results.
	FallbackName = "fallback"

	// fallbackConfidence is the fixed confidence of heuristic results.
	fallbackConfidence = 0.6

	// avgSpeedKmh converts distance to duration for heuristic estimates.
	avgSpeedKmh = 40.0

	// fuelPerKm estimates fuel consumption in liters per kilometer.
	fuelPerKm = 0.1
)

// FallbackPlanner is the deterministic priority-bucketed nearest-neighbor
// sequencer. It is cheap, always available, and fully reproducible: the
// system degrades to it rather than stalling when the AI path fails.
type FallbackPlanner struct{}

// NewFallbackPlanner creates the deterministic planner.
func NewFallbackPlanner() *FallbackPlanner {
	return &FallbackPlanner{}
}

// Name returns the planner name.
func (p *FallbackPlanner) Name() string {
	return FallbackName
}

// Plan partitions stops into priority buckets (urgent, high, normal, low)
// and sequences each bucket by nearest-neighbor haversine distance from the
// running position. Buckets are processed strictly in priority order: every
// urgent stop is sequenced before any high-priority stop is considered,
// regardless of geography.
func (p *FallbackPlanner) Plan(_ context.Context, req Request) (*Result, error) {
	if len(req.Stops) == 0 {
		return nil, ErrNoStops
	}

	buckets := make([][]int, 4)
	for i, s := range req.Stops {
		rank := s.Priority.Rank()
		buckets[rank] = append(buckets[rank], i)
	}

	sequence := make([]int, 0, len(req.Stops))
	position := req.Start
	totalKm := 0.0

	for _, bucket := range buckets {
		remaining := append([]int(nil), bucket...)
		// Stable starting order keeps runs reproducible.
		sort.Ints(remaining)

		for len(remaining) > 0 {
			best := 0
			bestDist := math.MaxFloat64
			for j, idx := range remaining {
				d := geo.Distance(position, req.Stops[idx].Location)
				if d < bestDist {
					bestDist = d
					best = j
				}
			}

			chosen := remaining[best]
			sequence = append(sequence, chosen)
			totalKm += bestDist
			position = req.Stops[chosen].Location
			remaining = append(remaining[:best], remaining[best+1:]...)
		}
	}

	if req.End != nil {
		totalKm += geo.Distance(position, *req.End)
	}

	serviceMinutes := 0
	for _, s := range req.Stops {
		serviceMinutes += s.ServiceMinutes
	}

	result := &Result{
		Sequence:  sequence,
		Reasoning: "Deterministic sequencing: priority buckets ordered urgent to low, nearest-neighbor within each bucket.",
		Metrics: Metrics{
			TotalDistanceKm:      totalKm,
			TotalDurationMinutes: int(math.Round(totalKm/avgSpeedKmh*60)) + serviceMinutes,
			FuelLiters:           totalKm * fuelPerKm,
		},
		Warnings:   []string{"Primary planner unavailable; used deterministic fallback heuristic"},
		Confidence: fallbackConfidence,
		Method:     FallbackName,
	}

	annotateVisits(result, req.Stops)
	return result, nil
}
