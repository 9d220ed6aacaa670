// Package route defines the Route and Stop domain model and its repository.
package route

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/geo"
)

// Route errors.
var (
	ErrRouteNotFound     = errors.New("route not found")
	ErrInvalidTransition = errors.New("invalid route status transition")
)

// Status is the lifecycle state of a route.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusDelayed    Status = "delayed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo enforces monotonic transitions: draft/planned →
// in_progress → completed, with delayed and cancelled reachable from any
// non-terminal state. A delayed route may still progress or complete.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusDelayed, StatusCancelled:
		return true
	case StatusInProgress:
		return s == StatusDraft || s == StatusPlanned || s == StatusDelayed
	case StatusCompleted:
		return s == StatusInProgress || s == StatusDelayed
	case StatusPlanned:
		return s == StatusDraft
	default:
		return false
	}
}

// StopStatus is the lifecycle state of a single delivery stop.
type StopStatus string

const (
	StopPending     StopStatus = "pending"
	StopAssigned    StopStatus = "assigned"
	StopInTransit   StopStatus = "in_transit"
	StopArrived     StopStatus = "arrived"
	StopDelivered   StopStatus = "delivered"
	StopFailed      StopStatus = "failed"
	StopCancelled   StopStatus = "cancelled"
	StopRescheduled StopStatus = "rescheduled"
)

// Terminal reports whether the stop needs no further visit.
func (s StopStatus) Terminal() bool {
	return s == StopDelivered || s == StopFailed || s == StopCancelled
}

// Priority ranks a stop's delivery urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities for sequencing: urgent first, low last.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	default:
		return 3
	}
}

// TimeWindow bounds when a stop may be serviced.
type TimeWindow struct {
	Earliest time.Time
	Latest   time.Time
}

// Valid reports whether the window is present and ordered.
func (w TimeWindow) Valid() bool {
	return !w.Earliest.IsZero() && !w.Latest.IsZero() && !w.Earliest.After(w.Latest)
}

// Stop is a single delivery commitment.
type Stop struct {
	ID             string
	RouteID        string
	Location       geo.Point
	Window         TimeWindow
	Priority       Priority
	ServiceMinutes int
	PackageType    string
	Status         StopStatus
	Sequence       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks stop invariants.
func (s *Stop) Validate() error {
	if !s.Location.Valid() {
		return fmt.Errorf("stop %s: coordinates out of range", s.ID)
	}
	if !s.Window.Earliest.IsZero() && !s.Window.Latest.IsZero() && s.Window.Earliest.After(s.Window.Latest) {
		return fmt.Errorf("stop %s: time window earliest after latest", s.ID)
	}
	return nil
}

// Metrics aggregates route-level estimates.
type Metrics struct {
	DistanceKm      float64
	DurationMinutes int
	StopCount       int
}

// Route is an ordered collection of stops assigned to one vehicle/driver for
// a scheduled day.
type Route struct {
	ID            string
	Name          string
	Stops         []Stop
	Geometry      []geo.Point
	ScheduledDate time.Time
	ScheduledEnd  time.Time
	Status        Status
	Metrics       Metrics
	VehicleID     string
	DriverID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Coordinates returns the route's stored geometry, falling back to the
// ordered stop locations when no geometry is stored.
func (r *Route) Coordinates() []geo.Point {
	if len(r.Geometry) > 0 {
		return r.Geometry
	}

	points := make([]geo.Point, 0, len(r.Stops))
	for _, s := range r.Stops {
		points = append(points, s.Location)
	}
	return points
}

// OriginalETA is the route's scheduled end time, or the scheduled date when
// no end time is set.
func (r *Route) OriginalETA() time.Time {
	if !r.ScheduledEnd.IsZero() {
		return r.ScheduledEnd
	}
	return r.ScheduledDate
}

// RemainingStops returns the stops still awaiting a visit, in sequence order.
func (r *Route) RemainingStops() []Stop {
	var remaining []Stop
	for _, s := range r.Stops {
		if !s.Status.Terminal() && s.Status != StopRescheduled {
			remaining = append(remaining, s)
		}
	}
	return remaining
}

// Finished reports whether no stop still awaits a visit: every stop is
// either terminal or was rescheduled off the route. A route without stops
// is never finished.
func (r *Route) Finished() bool {
	return len(r.Stops) > 0 && len(r.RemainingStops()) == 0
}

// Transition moves the route to the next status, enforcing monotonicity.
func (r *Route) Transition(next Status) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = time.Now()
	return nil
}
