package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleetpulse/internal/geo"
	"github.com/fleetpulse/fleetpulse/internal/optimizer"
	"github.com/fleetpulse/fleetpulse/internal/route"
	"github.com/fleetpulse/fleetpulse/internal/snapshot"
	"github.com/fleetpulse/fleetpulse/internal/weather"
)

// reoptimizeDelayThresholdMinutes is the delay past which a manual
// re-optimization request is honored.
const reoptimizeDelayThresholdMinutes = 15

// ErrRouteInactive is returned when re-optimization is requested for a route
// that already reached a terminal status.
var ErrRouteInactive = errors.New("route is not active")

// Reoptimizer handles on-demand route re-sequencing. It acts only on the
// stops still awaiting a visit and only when recorded conditions justify it.
type Reoptimizer struct {
	routes    route.Repository
	snapshots snapshot.Repository
	optimizer *optimizer.Service
	logger    zerolog.Logger
}

// ReoptimizerConfig holds dependencies for creating a Reoptimizer.
type ReoptimizerConfig struct {
	Routes    route.Repository
	Snapshots snapshot.Repository
	Optimizer *optimizer.Service
	Logger    zerolog.Logger
}

// NewReoptimizer creates a re-optimizer.
func NewReoptimizer(cfg ReoptimizerConfig) *Reoptimizer {
	return &Reoptimizer{
		routes:    cfg.Routes,
		snapshots: cfg.Snapshots,
		optimizer: cfg.Optimizer,
		logger:    cfg.Logger,
	}
}

// ReoptimizeResult reports whether a new plan was applied and why.
type ReoptimizeResult struct {
	RouteID   string            `json:"routeId"`
	Performed bool              `json:"performed"`
	Reason    string            `json:"reason"`
	Plan      *optimizer.Result `json:"plan,omitempty"`
}

// Reoptimize re-sequences a route's remaining stops when the latest recorded
// conditions warrant it. A request against calm conditions is answered
// without invoking any planner.
func (r *Reoptimizer) Reoptimize(ctx context.Context, routeID string) (*ReoptimizeResult, error) {
	rt, err := r.routes.Get(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if rt.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrRouteInactive, routeID, rt.Status)
	}

	result := &ReoptimizeResult{RouteID: routeID}

	remaining := rt.RemainingStops()
	if len(remaining) < 2 {
		result.Reason = "fewer than two stops remaining"
		return result, nil
	}

	snap, err := r.snapshots.Latest(ctx, routeID)
	if err != nil {
		if errors.Is(err, snapshot.ErrSnapshotNotFound) {
			result.Reason = "no conditions recorded yet"
			return result, nil
		}
		return nil, err
	}

	trigger, ok := reoptimizeTrigger(snap)
	if !ok {
		result.Reason = "conditions do not warrant re-optimization"
		return result, nil
	}

	req := buildOptimizeRequest(rt, remaining, snap)

	plan, err := r.optimizer.Optimize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("optimizing route %s: %w", routeID, err)
	}

	resequenced := make([]route.Stop, len(plan.Sequence))
	for pos, idx := range plan.Sequence {
		resequenced[pos] = remaining[idx]
	}

	// Visited stops keep their place at the head of the route; only the
	// remainder is re-sequenced.
	ordered := make([]route.Stop, 0, len(rt.Stops))
	for _, s := range rt.Stops {
		if s.Status.Terminal() || s.Status == route.StopRescheduled {
			ordered = append(ordered, s)
		}
	}
	ordered = append(ordered, resequenced...)

	newGeometry := stopLocations(resequenced)
	metrics := route.Metrics{
		DistanceKm:      plan.Metrics.TotalDistanceKm,
		DurationMinutes: plan.Metrics.TotalDurationMinutes,
		StopCount:       len(ordered),
	}

	if err := r.routes.UpdatePlan(ctx, routeID, ordered, newGeometry, metrics); err != nil {
		return nil, fmt.Errorf("applying plan to route %s: %w", routeID, err)
	}

	record := &snapshot.ConditionSnapshot{
		RouteID:    routeID,
		CapturedAt: time.Now().UTC(),
		Traffic:    snap.Traffic,
		Weather:    snap.Weather,
		Estimate:   snap.Estimate,
		Verdict:    snap.Verdict,
		Optimization: &snapshot.OptimizationRecord{
			Method:          plan.Method,
			Confidence:      plan.Confidence,
			Reasoning:       plan.Reasoning,
			DistanceKm:      plan.Metrics.TotalDistanceKm,
			DurationMinutes: plan.Metrics.TotalDurationMinutes,
			AppliedAt:       time.Now().UTC(),
		},
	}
	if err := r.snapshots.Append(ctx, record); err != nil {
		r.logger.Warn().Err(err).Str("route_id", routeID).
			Msg("failed to record optimization evidence")
	}

	r.logger.Info().
		Str("route_id", routeID).
		Str("trigger", trigger).
		Str("method", plan.Method).
		Float64("confidence", plan.Confidence).
		Int("stops", len(ordered)).
		Msg("route re-optimized")

	result.Performed = true
	result.Reason = trigger
	result.Plan = plan
	return result, nil
}

// reoptimizeTrigger decides whether the recorded conditions justify a
// re-sequencing and names the trigger.
func reoptimizeTrigger(snap *snapshot.ConditionSnapshot) (string, bool) {
	if snap.Estimate.DelayMinutes > reoptimizeDelayThresholdMinutes {
		return fmt.Sprintf("estimated delay of %d minutes", snap.Estimate.DelayMinutes), true
	}
	if snap.Weather != nil {
		cond := snap.Weather.Current.Condition
		if cond == weather.ConditionStorm || cond == weather.ConditionHail {
			return fmt.Sprintf("severe weather: %s", cond), true
		}
	}
	if snap.Traffic != nil {
		if snap.Traffic.HasClosure() {
			return "road closure on route", true
		}
		if snap.Traffic.HasSevereIncident() {
			return "severe traffic incident on route", true
		}
	}
	return "", false
}

// stopLocations derives a fresh route geometry from the new visiting order.
func stopLocations(stops []route.Stop) []geo.Point {
	points := make([]geo.Point, 0, len(stops))
	for _, s := range stops {
		points = append(points, s.Location)
	}
	return points
}

func buildOptimizeRequest(rt *route.Route, remaining []route.Stop, snap *snapshot.ConditionSnapshot) optimizer.Request {
	stops := make([]optimizer.Stop, len(remaining))
	for i, s := range remaining {
		stops[i] = optimizer.Stop{
			Index:          i,
			ID:             s.ID,
			Location:       s.Location,
			Window:         s.Window,
			Priority:       s.Priority,
			ServiceMinutes: s.ServiceMinutes,
			PackageType:    s.PackageType,
		}
	}

	req := optimizer.Request{
		Stops: stops,
		// No live vehicle position is tracked; the route's first
		// coordinate stands in for it.
		Start:    rt.Coordinates()[0],
		Priority: optimizer.PriorityBalanced,
	}
	if snap.Traffic != nil {
		req.TrafficSummary = fmt.Sprintf("%s congestion, %d incidents reported",
			snap.Traffic.Congestion, len(snap.Traffic.Incidents))
	}
	if snap.Weather != nil {
		req.WeatherSummary = string(snap.Weather.Current.Condition)
	}
	return req
}
