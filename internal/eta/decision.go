package eta

import (
	"fmt"

	"github.com/fleetpulse/fleetpulse/internal/traffic"
	"github.com/fleetpulse/fleetpulse/internal/weather"
)

// recalcDelayThresholdMinutes is the delay past which a route should be
// recomputed regardless of other signals.
const recalcDelayThresholdMinutes = 30

// Verdict is the outcome of the recalculation decision.
type Verdict struct {
	Suggested bool
	Reasons   []string
}

// Decide evaluates the recalculation rules against the current conditions.
// Every rule runs independently and all matching reasons accumulate; the
// function is pure and performs no I/O. Either conditions input may be nil
// when the corresponding fetch failed.
func Decide(summary *traffic.Summary, report *weather.Report, est Estimate) Verdict {
	var reasons []string

	if summary != nil {
		if summary.Congestion == traffic.CongestionSevere {
			reasons = append(reasons, "Severe traffic congestion on route")
		}
		if summary.HasClosure() {
			reasons = append(reasons, "Road closure reported on route")
		}
	}

	if est.DelayMinutes > recalcDelayThresholdMinutes {
		reasons = append(reasons, fmt.Sprintf("Estimated delay of %d minutes", est.DelayMinutes))
	}

	if report != nil {
		if report.Current.Condition.Severe() {
			reasons = append(reasons, fmt.Sprintf("Severe weather conditions: %s", report.Current.Condition))
		}
		if report.Current.HasVisibility() && report.Current.VisibilityKm < 1 {
			reasons = append(reasons, "Visibility below 1 km")
		}
		if report.HasHighAlert() {
			reasons = append(reasons, "Severe weather alerts")
		}
	}

	return Verdict{
		Suggested: len(reasons) > 0,
		Reasons:   reasons,
	}
}
