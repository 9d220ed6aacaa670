package traffic_test

import (
	"testing"

	"github.com/fleetpulse/fleetpulse/internal/traffic"
)

func TestCongestionFromSpeeds(t *testing.T) {
	tests := []struct {
		current  float64
		freeFlow float64
		want     traffic.CongestionLevel
	}{
		{90, 100, traffic.CongestionFree},
		{75, 100, traffic.CongestionLight},
		{50, 100, traffic.CongestionModerate},
		{30, 100, traffic.CongestionHeavy},
		{20, 100, traffic.CongestionSevere},
		{100, 100, traffic.CongestionFree},
		{0, 100, traffic.CongestionUnknown},
		{50, 0, traffic.CongestionUnknown},
	}

	for _, tt := range tests {
		if got := traffic.CongestionFromSpeeds(tt.current, tt.freeFlow); got != tt.want {
			t.Errorf("CongestionFromSpeeds(%v, %v) = %q, want %q",
				tt.current, tt.freeFlow, got, tt.want)
		}
	}
}

func TestCongestionPercent(t *testing.T) {
	tests := []struct {
		current  float64
		freeFlow float64
		want     int
	}{
		{100, 100, 0},
		{50, 100, 50},
		{25, 100, 75},
		{110, 100, 0}, // faster than free flow clamps at zero
		{0, 100, 0},   // missing data
		{33, 100, 67},
	}

	for _, tt := range tests {
		if got := traffic.CongestionPercent(tt.current, tt.freeFlow); got != tt.want {
			t.Errorf("CongestionPercent(%v, %v) = %d, want %d",
				tt.current, tt.freeFlow, got, tt.want)
		}
	}
}

func TestSummary_HasClosure(t *testing.T) {
	s := &traffic.Summary{
		Incidents: []traffic.Incident{
			{Type: traffic.IncidentAccident},
			{Type: traffic.IncidentClosure},
		},
	}
	if !s.HasClosure() {
		t.Error("expected closure to be detected")
	}

	s.Incidents = s.Incidents[:1]
	if s.HasClosure() {
		t.Error("accident must not count as closure")
	}
}

func TestSummary_HasSevereIncident(t *testing.T) {
	s := &traffic.Summary{
		Incidents: []traffic.Incident{
			{Severity: traffic.SeverityModerate},
			{Severity: traffic.SeveritySevere},
		},
	}
	if !s.HasSevereIncident() {
		t.Error("expected severe incident to be detected")
	}
}
