package route

import (
	"context"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/geo"
)

// Repository is the persistence contract for routes and their stops.
type Repository interface {
	// Get retrieves a route with its stops.
	Get(ctx context.Context, id string) (*Route, error)

	// ListActiveOn returns routes whose status is planned, in_progress, or
	// delayed and whose scheduled date falls on the given calendar day.
	ListActiveOn(ctx context.Context, day time.Time) ([]*Route, error)

	// UpdateStatus persists a status change.
	UpdateStatus(ctx context.Context, id string, status Status) error

	// UpdatePlan overwrites a route's stop order, geometry, and metrics
	// after a re-optimization.
	UpdatePlan(ctx context.Context, id string, stops []Stop, geometry []geo.Point, metrics Metrics) error

	// UpdateStopStatus persists a stop status change.
	UpdateStopStatus(ctx context.Context, stopID string, status StopStatus) error
}
