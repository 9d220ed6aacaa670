package tomtom_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleetpulse/internal/geo"
	"github.com/fleetpulse/fleetpulse/internal/traffic"
	"github.com/fleetpulse/fleetpulse/internal/traffic/tomtom"
)

const flowFixture = `{
	"flowSegmentData": {
		"currentSpeed": 42,
		"freeFlowSpeed": 100,
		"confidence": 0.95,
		"roadClosure": false
	}
}`

const incidentsFixture = `{
	"incidents": [
		{
			"type": "Feature",
			"geometry": {"coordinates": [[4.90, 52.37], [4.91, 52.38]]},
			"properties": {
				"iconCategory": 8,
				"magnitudeOfDelay": 4,
				"events": [{"description": "Road closed due to accident"}],
				"startTime": "2026-09-01T07:30:00Z",
				"endTime": "2026-09-01T11:00:00Z",
				"delay": 1800,
				"roadNumbers": ["A10"]
			}
		}
	]
}`

func TestClient_GetFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("missing api key")
		}
		if _, err := w.Write([]byte(flowFixture)); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	client := tomtom.NewClient(tomtom.ClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Logger:  zerolog.Nop(),
	})

	flow, err := client.GetFlow(context.Background(), 52.37, 4.9)
	if err != nil {
		t.Fatalf("GetFlow failed: %v", err)
	}

	if flow.CurrentSpeed != 42 {
		t.Errorf("current speed = %f, want 42", flow.CurrentSpeed)
	}
	if flow.FreeFlowSpeed != 100 {
		t.Errorf("free-flow speed = %f, want 100", flow.FreeFlowSpeed)
	}
	if flow.RoadClosure {
		t.Error("road closure should be false")
	}
}

func TestClient_GetIncidents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(incidentsFixture)); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	client := tomtom.NewClient(tomtom.ClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Logger:  zerolog.Nop(),
	})

	box := geo.BoundingBox{MinLat: 52.3, MinLon: 4.8, MaxLat: 52.4, MaxLon: 5.0}
	incidents, err := client.GetIncidents(context.Background(), box)
	if err != nil {
		t.Fatalf("GetIncidents failed: %v", err)
	}

	if len(incidents) != 1 {
		t.Fatalf("got %d incidents, want 1", len(incidents))
	}

	inc := incidents[0]
	if inc.Type != traffic.IncidentClosure {
		t.Errorf("type = %q, want closure (icon category 8)", inc.Type)
	}
	if inc.Severity != traffic.SeveritySevere {
		t.Errorf("severity = %q, want severe (magnitude 4)", inc.Severity)
	}
	if inc.DelayMinutes != 30 {
		t.Errorf("delay = %d minutes, want 30", inc.DelayMinutes)
	}
	if len(inc.Geometry) != 2 {
		t.Fatalf("geometry points = %d, want 2", len(inc.Geometry))
	}
	// GeoJSON coordinates arrive as [lon, lat].
	if inc.Geometry[0].Lat != 52.37 || inc.Geometry[0].Lon != 4.90 {
		t.Errorf("geometry[0] = %+v, want lat 52.37 lon 4.90", inc.Geometry[0])
	}
}

func TestClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusForbidden)
	}))
	defer server.Close()

	client := tomtom.NewClient(tomtom.ClientConfig{
		APIKey:  "bad-key",
		BaseURL: server.URL,
		Logger:  zerolog.Nop(),
	})

	_, err := client.GetFlow(context.Background(), 52.37, 4.9)
	if err == nil {
		t.Fatal("expected error for upstream 403")
	}

	var provErr *traffic.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *traffic.Error, got %T", err)
	}
	if provErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", provErr.StatusCode)
	}
}
