// Package snapshot records per-route condition snapshots: the traffic and
// weather observed during a scan, the resulting delay estimate, and the
// recalculation verdict. Snapshots are the system's audit trail and feed the
// manual re-optimization path.
package snapshot

import (
	"errors"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/eta"
	"github.com/fleetpulse/fleetpulse/internal/traffic"
	"github.com/fleetpulse/fleetpulse/internal/weather"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a route.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// OptimizationRecord is evidence of a re-optimization applied to a route.
type OptimizationRecord struct {
	Method          string    `json:"method"`
	Confidence      float64   `json:"confidence"`
	Reasoning       string    `json:"reasoning,omitempty"`
	DistanceKm      float64   `json:"distanceKm"`
	DurationMinutes int       `json:"durationMinutes"`
	AppliedAt       time.Time `json:"appliedAt"`
}

// ConditionSnapshot is one scan's observation of a route. Traffic or Weather
// may be nil when the corresponding provider fetch failed during the scan.
type ConditionSnapshot struct {
	ID           string              `json:"id"`
	RouteID      string              `json:"routeId"`
	CapturedAt   time.Time           `json:"capturedAt"`
	Traffic      *traffic.Summary    `json:"traffic,omitempty"`
	Weather      *weather.Report     `json:"weather,omitempty"`
	Estimate     eta.Estimate        `json:"estimate"`
	Verdict      eta.Verdict         `json:"verdict"`
	Notified     bool                `json:"notified"`
	Optimization *OptimizationRecord `json:"optimization,omitempty"`
}
