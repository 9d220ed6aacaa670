// Package weather defines the weather domain model for route monitoring.
// Provider responses are converted into these types at the client boundary;
// nothing downstream handles raw provider shapes.
package weather

import (
	"fmt"
	"time"
)

// Condition is the enumerated weather condition relevant to routing.
type Condition string

const (
	ConditionClear     Condition = "clear"
	ConditionCloudy    Condition = "cloudy"
	ConditionRain      Condition = "rain"
	ConditionHeavyRain Condition = "heavy_rain"
	ConditionSnow      Condition = "snow"
	ConditionFog       Condition = "fog"
	ConditionStorm     Condition = "storm"
	ConditionHail      Condition = "hail"
	ConditionWind      Condition = "wind"
)

// Severe reports whether the condition alone warrants re-planning a route.
func (c Condition) Severe() bool {
	return c == ConditionStorm || c == ConditionHail || c == ConditionHeavyRain
}

// ConditionFromCode maps a WMO weather code to a Condition.
//
// Mapping: 0 clear; 1-3 cloudy; 45-48 fog; 51-64 rain (drizzle and rain up
// to moderate); 65-67 heavy rain; 71-77 snow; 80-81 rain showers; 82 heavy
// showers; 85-86 snow showers; 95 thunderstorm; 96-99 thunderstorm with hail.
func ConditionFromCode(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code >= 1 && code <= 3:
		return ConditionCloudy
	case code >= 45 && code <= 48:
		return ConditionFog
	case code >= 51 && code <= 64:
		return ConditionRain
	case code >= 65 && code <= 67:
		return ConditionHeavyRain
	case code >= 71 && code <= 77:
		return ConditionSnow
	case code >= 80 && code <= 81:
		return ConditionRain
	case code == 82:
		return ConditionHeavyRain
	case code >= 85 && code <= 86:
		return ConditionSnow
	case code == 95:
		return ConditionStorm
	case code >= 96 && code <= 99:
		return ConditionHail
	default:
		return ConditionCloudy
	}
}

// Observation is the current weather at a point.
type Observation struct {
	Condition Condition

	// Temperature in Celsius.
	Temperature float64

	// WindSpeed in km/h.
	WindSpeed float64

	// Precipitation in mm over the last hour.
	Precipitation float64

	// VisibilityKm in kilometers; negative when the provider omitted it.
	VisibilityKm float64

	ObservedAt time.Time
}

// HasVisibility reports whether the provider supplied visibility data.
func (o Observation) HasVisibility() bool {
	return o.VisibilityKm >= 0
}

// HourlyForecast is weather for one forecast hour.
type HourlyForecast struct {
	Time          time.Time
	Condition     Condition
	Temperature   float64
	WindSpeed     float64
	Precipitation float64
}

// DailyForecast is an aggregate forecast for a calendar day.
type DailyForecast struct {
	Date          time.Time
	Condition     Condition
	TempMin       float64
	TempMax       float64
	Precipitation float64
}

// AlertSeverity grades a synthesized weather alert.
type AlertSeverity string

const (
	SeverityModerate AlertSeverity = "moderate"
	SeverityHigh     AlertSeverity = "high"
)

// Alert is a routing-relevant weather warning synthesized from raw fields.
type Alert struct {
	Kind     string
	Severity AlertSeverity
	Message  string
}

// Report bundles current conditions, the near-term forecast, and alerts for
// a location.
type Report struct {
	Lat       float64
	Lon       float64
	Current   Observation
	Hourly    []HourlyForecast
	Daily     []DailyForecast
	Alerts    []Alert
	FetchedAt time.Time
}

// HasHighAlert reports whether any alert carries high severity.
func (r *Report) HasHighAlert() bool {
	for _, a := range r.Alerts {
		if a.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// SynthesizeAlerts derives alerts from an observation's raw fields.
// Precipitation above 10mm, visibility under 2km, and wind above 50 km/h
// each produce an alert; the severity escalates to high past 20mm, 500m,
// and 70 km/h respectively.
func SynthesizeAlerts(obs Observation) []Alert {
	var alerts []Alert

	if obs.Precipitation > 10 {
		severity := SeverityModerate
		if obs.Precipitation > 20 {
			severity = SeverityHigh
		}
		alerts = append(alerts, Alert{
			Kind:     "precipitation",
			Severity: severity,
			Message:  fmt.Sprintf("Heavy precipitation: %.1f mm/h", obs.Precipitation),
		})
	}

	if obs.HasVisibility() && obs.VisibilityKm < 2 {
		severity := SeverityModerate
		if obs.VisibilityKm < 0.5 {
			severity = SeverityHigh
		}
		alerts = append(alerts, Alert{
			Kind:     "visibility",
			Severity: severity,
			Message:  fmt.Sprintf("Low visibility: %.1f km", obs.VisibilityKm),
		})
	}

	if obs.WindSpeed > 50 {
		severity := SeverityModerate
		if obs.WindSpeed > 70 {
			severity = SeverityHigh
		}
		alerts = append(alerts, Alert{
			Kind:     "wind",
			Severity: severity,
			Message:  fmt.Sprintf("Strong wind: %.0f km/h", obs.WindSpeed),
		})
	}

	return alerts
}

// Error is a typed weather provider failure carrying the upstream status.
// Callers treat it as recoverable per route, never process-fatal.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("weather provider %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("weather provider %s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
