package openmeteo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleetpulse/internal/weather"
	"github.com/fleetpulse/fleetpulse/internal/weather/openmeteo"
)

const forecastFixture = `{
	"latitude": 52.37,
	"longitude": 4.9,
	"current": {
		"time": "2026-09-01T08:00",
		"temperature_2m": 14.2,
		"precipitation": 12.5,
		"weather_code": 65,
		"wind_speed_10m": 32.0,
		"visibility": 8500
	},
	"hourly": {
		"time": ["2026-09-01T09:00","2026-09-01T10:00","2026-09-01T11:00","2026-09-01T12:00","2026-09-01T13:00","2026-09-01T14:00","2026-09-01T15:00","2026-09-01T16:00"],
		"temperature_2m": [14,15,15,16,16,17,17,18],
		"precipitation": [2,1,0,0,0,0,0,0],
		"weather_code": [61,61,3,3,2,1,0,0],
		"wind_speed_10m": [30,28,25,20,18,15,12,10]
	},
	"daily": {
		"time": ["2026-09-01","2026-09-02"],
		"weather_code": [61,3],
		"temperature_2m_min": [12,11],
		"temperature_2m_max": [18,19],
		"precipitation_sum": [8.5,0.2]
	}
}`

func TestClient_GetForecast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(forecastFixture)); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL: server.URL,
		Logger:  zerolog.Nop(),
	})

	report, err := client.GetForecast(context.Background(), 52.37, 4.9)
	if err != nil {
		t.Fatalf("GetForecast failed: %v", err)
	}

	if report.Current.Condition != weather.ConditionHeavyRain {
		t.Errorf("current condition = %q, want heavy_rain (code 65)", report.Current.Condition)
	}
	if report.Current.Temperature != 14.2 {
		t.Errorf("temperature = %f, want 14.2", report.Current.Temperature)
	}
	if report.Current.VisibilityKm != 8.5 {
		t.Errorf("visibility = %f km, want 8.5", report.Current.VisibilityKm)
	}

	// Hourly forecast is capped at six entries.
	if len(report.Hourly) != 6 {
		t.Errorf("hourly entries = %d, want 6", len(report.Hourly))
	}
	if report.Hourly[0].Condition != weather.ConditionRain {
		t.Errorf("first hourly condition = %q, want rain", report.Hourly[0].Condition)
	}

	if len(report.Daily) != 2 {
		t.Errorf("daily entries = %d, want 2", len(report.Daily))
	}

	// 12.5mm precipitation synthesizes a moderate alert.
	if len(report.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1: %+v", len(report.Alerts), report.Alerts)
	}
	if report.Alerts[0].Severity != weather.SeverityModerate {
		t.Errorf("alert severity = %q, want moderate", report.Alerts[0].Severity)
	}
}

func TestClient_GetForecast_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL: server.URL,
		Logger:  zerolog.Nop(),
	})

	_, err := client.GetForecast(context.Background(), 52.37, 4.9)
	if err == nil {
		t.Fatal("expected error for upstream 429")
	}

	var provErr *weather.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *weather.Error, got %T", err)
	}
	if provErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", provErr.StatusCode)
	}
}

func TestClient_GetForecast_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("not json")); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL: server.URL,
		Logger:  zerolog.Nop(),
	})

	_, err := client.GetForecast(context.Background(), 52.37, 4.9)
	if err == nil {
		t.Fatal("expected error for malformed body")
	}

	var provErr *weather.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *weather.Error, got %T", err)
	}
}
