package route

import (
	"context"
	"sync"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/geo"
)

// InMemoryRepository is an in-memory implementation of Repository for tests
// and local development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	routes map[string]*Route
}

// NewInMemoryRepository creates a new in-memory route repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{routes: make(map[string]*Route)}
}

// Put stores or replaces a route. Test seeding helper.
func (r *InMemoryRepository) Put(rt *Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[rt.ID] = cloneRoute(rt)
}

// Get retrieves a route with its stops.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[id]
	if !ok {
		return nil, ErrRouteNotFound
	}
	return cloneRoute(rt), nil
}

// ListActiveOn returns planned, in_progress, or delayed routes scheduled on
// the day.
func (r *InMemoryRepository) ListActiveOn(_ context.Context, day time.Time) ([]*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var routes []*Route
	for _, rt := range r.routes {
		if rt.Status != StatusPlanned && rt.Status != StatusInProgress && rt.Status != StatusDelayed {
			continue
		}
		if rt.ScheduledDate.Before(dayStart) || !rt.ScheduledDate.Before(dayEnd) {
			continue
		}
		routes = append(routes, cloneRoute(rt))
	}
	return routes, nil
}

// UpdateStatus persists a status change.
func (r *InMemoryRepository) UpdateStatus(_ context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.routes[id]
	if !ok {
		return ErrRouteNotFound
	}
	rt.Status = status
	rt.UpdatedAt = time.Now()
	return nil
}

// UpdatePlan overwrites a route's stop order, geometry, and metrics.
func (r *InMemoryRepository) UpdatePlan(_ context.Context, id string, stops []Stop, geometry []geo.Point, metrics Metrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.routes[id]
	if !ok {
		return ErrRouteNotFound
	}

	rt.Stops = make([]Stop, len(stops))
	copy(rt.Stops, stops)
	for i := range rt.Stops {
		rt.Stops[i].Sequence = i + 1
	}
	rt.Geometry = make([]geo.Point, len(geometry))
	copy(rt.Geometry, geometry)
	rt.Metrics = metrics
	rt.UpdatedAt = time.Now()
	return nil
}

// UpdateStopStatus persists a stop status change.
func (r *InMemoryRepository) UpdateStopStatus(_ context.Context, stopID string, status StopStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rt := range r.routes {
		for i := range rt.Stops {
			if rt.Stops[i].ID == stopID {
				rt.Stops[i].Status = status
				rt.Stops[i].UpdatedAt = time.Now()
				return nil
			}
		}
	}
	return ErrRouteNotFound
}

func cloneRoute(rt *Route) *Route {
	clone := *rt
	clone.Stops = make([]Stop, len(rt.Stops))
	copy(clone.Stops, rt.Stops)
	clone.Geometry = make([]geo.Point, len(rt.Geometry))
	copy(clone.Geometry, rt.Geometry)
	return &clone
}
