// Package eta derives delay estimates and revised arrival times from live
// traffic conditions, and decides whether a route needs recalculation.
package eta

import (
	"math"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/route"
	"github.com/fleetpulse/fleetpulse/internal/traffic"
)

// Estimate is a revised arrival estimate for a route.
type Estimate struct {
	OriginalETA  time.Time
	CurrentETA   time.Time
	DelayMinutes int
}

// DelayMinutes estimates how many minutes the current flow adds to a trip of
// the given original duration. Returns zero when any required input is
// missing or the original duration is unknown.
func DelayMinutes(summary *traffic.Summary, originalMinutes int) int {
	if summary == nil || originalMinutes <= 0 {
		return 0
	}
	if summary.AvgCurrentSpeed <= 0 || summary.AvgFreeFlowSpeed <= 0 {
		return 0
	}

	projected := float64(originalMinutes) * (summary.AvgFreeFlowSpeed / summary.AvgCurrentSpeed)
	delay := int(math.Round(projected - float64(originalMinutes)))
	if delay < 0 {
		return 0
	}
	return delay
}

// Revise computes the route's revised ETA from the traffic summary. With no
// traffic data the current ETA equals the original and the delay is zero.
func Revise(rt *route.Route, summary *traffic.Summary) Estimate {
	original := rt.OriginalETA()

	delay := DelayMinutes(summary, rt.Metrics.DurationMinutes)

	return Estimate{
		OriginalETA:  original,
		CurrentETA:   original.Add(time.Duration(delay) * time.Minute),
		DelayMinutes: delay,
	}
}
