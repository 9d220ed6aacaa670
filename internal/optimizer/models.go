// Package optimizer produces delivery stop sequences. The primary strategy
// delegates to an AI route planner; a deterministic priority-bucketed
// nearest-neighbor heuristic takes over whenever the primary fails.
package optimizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetpulse/fleetpulse/internal/geo"
	"github.com/fleetpulse/fleetpulse/internal/route"
)

// Optimizer errors.
var (
	ErrNoStops       = errors.New("no stops to sequence")
	ErrInvalidResult = errors.New("planner returned an invalid sequence")
)

// Priority selects what the optimizer should minimize.
type Priority string

const (
	PriorityTime     Priority = "time"
	PriorityDistance Priority = "distance"
	PriorityCost     Priority = "cost"
	PriorityBalanced Priority = "balanced"
)

// Stop is a sequencing candidate. Index is the stop's position in the
// request and maps results back to persisted stop identifiers.
type Stop struct {
	Index          int
	ID             string
	Location       geo.Point
	Window         route.TimeWindow
	Priority       route.Priority
	ServiceMinutes int
	PackageType    string
}

// Request describes one sequencing problem.
type Request struct {
	Stops       []Stop
	Start       geo.Point
	End         *geo.Point
	VehicleType string
	Priority    Priority

	// TrafficSummary and WeatherSummary are optional free-text context for
	// the AI planner.
	TrafficSummary string
	WeatherSummary string
}

// Metrics are the estimated costs of a proposed sequence.
type Metrics struct {
	TotalDistanceKm      float64
	TotalDurationMinutes int
	FuelLiters           float64
}

// Visit annotates one stop's place in the proposed sequence.
type Visit struct {
	// Position is 1-based within the new sequence.
	Position int

	// OriginalIndex is the stop's index in the request.
	OriginalIndex int

	StopID string
}

// Result is a proposed visiting sequence with metrics and rationale.
type Result struct {
	// Sequence holds request indices in visiting order.
	Sequence []int

	// Visits annotates each stop with its new position and original index.
	Visits []Visit

	Reasoning    string
	Metrics      Metrics
	Warnings     []string
	Alternatives [][]int

	// Confidence in [0,1].
	Confidence float64

	// Method names the planner that produced the result: the AI model
	// identifier, or "fallback".
	Method string
}

// Planner proposes a stop sequence for a request.
type Planner interface {
	Name() string
	Plan(ctx context.Context, req Request) (*Result, error)
}

// validateSequence checks that seq is a permutation of [0, n).
func validateSequence(seq []int, n int) error {
	if len(seq) != n {
		return fmt.Errorf("%w: got %d indices, want %d", ErrInvalidResult, len(seq), n)
	}
	seen := make([]bool, n)
	for _, idx := range seq {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: index %d out of range", ErrInvalidResult, idx)
		}
		if seen[idx] {
			return fmt.Errorf("%w: index %d repeated", ErrInvalidResult, idx)
		}
		seen[idx] = true
	}
	return nil
}

// annotateVisits fills Visits from the sequence.
func annotateVisits(result *Result, stops []Stop) {
	result.Visits = make([]Visit, 0, len(result.Sequence))
	for pos, idx := range result.Sequence {
		result.Visits = append(result.Visits, Visit{
			Position:      pos + 1,
			OriginalIndex: stops[idx].Index,
			StopID:        stops[idx].ID,
		})
	}
}
