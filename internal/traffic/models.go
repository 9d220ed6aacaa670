// Package traffic defines the traffic domain model: flow samples, congestion
// levels, incidents, and the provider contract for live traffic data.
package traffic

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/geo"
)

// CongestionLevel is the discretized ratio of current to free-flow speed.
type CongestionLevel string

const (
	CongestionFree     CongestionLevel = "free"
	CongestionLight    CongestionLevel = "light"
	CongestionModerate CongestionLevel = "moderate"
	CongestionHeavy    CongestionLevel = "heavy"
	CongestionSevere   CongestionLevel = "severe"
	CongestionUnknown  CongestionLevel = "unknown"
)

// CongestionFromSpeeds classifies the current/free-flow speed ratio.
// Thresholds: >=0.9 free, >=0.7 light, >=0.5 moderate, >=0.3 heavy, else
// severe. Unknown when either speed is zero or missing.
func CongestionFromSpeeds(current, freeFlow float64) CongestionLevel {
	if current <= 0 || freeFlow <= 0 {
		return CongestionUnknown
	}

	switch ratio := current / freeFlow; {
	case ratio >= 0.9:
		return CongestionFree
	case ratio >= 0.7:
		return CongestionLight
	case ratio >= 0.5:
		return CongestionModerate
	case ratio >= 0.3:
		return CongestionHeavy
	default:
		return CongestionSevere
	}
}

// CongestionPercent returns the slowdown as a whole percentage in [0,100].
func CongestionPercent(current, freeFlow float64) int {
	if current <= 0 || freeFlow <= 0 {
		return 0
	}
	pct := (1 - current/freeFlow) * 100
	return int(math.Round(math.Max(0, math.Min(100, pct))))
}

// Flow is a single-point traffic flow reading.
type Flow struct {
	// CurrentSpeed in km/h.
	CurrentSpeed float64

	// FreeFlowSpeed in km/h under ideal conditions.
	FreeFlowSpeed float64

	// Confidence in [0,1] reported by the provider.
	Confidence float64

	// RoadClosure marks the segment as closed.
	RoadClosure bool
}

// IncidentType categorizes a traffic incident.
type IncidentType string

const (
	IncidentAccident   IncidentType = "accident"
	IncidentClosure    IncidentType = "closure"
	IncidentRoadworks  IncidentType = "roadworks"
	IncidentCongestion IncidentType = "congestion"
	IncidentHazard     IncidentType = "hazard"
	IncidentOther      IncidentType = "other"
)

// IncidentSeverity grades an incident's routing impact.
type IncidentSeverity string

const (
	SeverityMinor    IncidentSeverity = "minor"
	SeverityModerate IncidentSeverity = "moderate"
	SeverityMajor    IncidentSeverity = "major"
	SeveritySevere   IncidentSeverity = "severe"
)

// Incident is a reported traffic disruption within an area.
type Incident struct {
	Type          IncidentType
	Severity      IncidentSeverity
	Geometry      []geo.Point
	Description   string
	DelayMinutes  int
	StartsAt      time.Time
	EndsAt        time.Time
	AffectedRoads []string
}

// Summary aggregates flow readings over a route's sampled points, plus the
// incidents in its bounding box.
type Summary struct {
	// AvgCurrentSpeed and AvgFreeFlowSpeed average the surviving samples,
	// in km/h. Zero when no sample survived.
	AvgCurrentSpeed  float64
	AvgFreeFlowSpeed float64

	Congestion CongestionLevel
	Incidents  []Incident

	// SampledPoints and FailedPoints record fan-out outcomes.
	SampledPoints int
	FailedPoints  int

	CapturedAt time.Time
}

// HasClosure reports whether any incident closes a road.
func (s *Summary) HasClosure() bool {
	for _, inc := range s.Incidents {
		if inc.Type == IncidentClosure {
			return true
		}
	}
	return false
}

// HasSevereIncident reports whether any incident is graded severe.
func (s *Summary) HasSevereIncident() bool {
	for _, inc := range s.Incidents {
		if inc.Severity == SeveritySevere {
			return true
		}
	}
	return false
}

// Provider is the external traffic data contract.
type Provider interface {
	// Name identifies the provider for logs and errors.
	Name() string

	// GetFlow fetches the flow reading nearest to a point.
	GetFlow(ctx context.Context, lat, lon float64) (*Flow, error)

	// GetIncidents fetches incidents within a bounding box.
	GetIncidents(ctx context.Context, box geo.BoundingBox) ([]Incident, error)
}

// Error is a typed traffic provider failure carrying the upstream status.
// Callers treat it as recoverable per route, never process-fatal.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("traffic provider %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("traffic provider %s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
