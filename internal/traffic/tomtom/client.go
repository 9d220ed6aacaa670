// Package tomtom implements the traffic provider contract against the TomTom
// flow segment data and incident details APIs.
package tomtom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleetpulse/internal/geo"
	"github.com/fleetpulse/fleetpulse/internal/provider/resilience"
	"github.com/fleetpulse/fleetpulse/internal/traffic"
)

const (
	// ProviderName identifies this traffic provider.
	ProviderName = "tomtom"

	// DefaultBaseURL is the TomTom traffic API base URL.
	DefaultBaseURL = "https://api.tomtom.com/traffic/services"
)

// ClientConfig holds configuration for the TomTom client.
type ClientConfig struct {
	// APIKey is the TomTom API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to the TomTom API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a TomTom traffic API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new TomTom client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetFlow fetches the flow segment reading nearest to a point.
func (c *Client) GetFlow(ctx context.Context, lat, lon float64) (*traffic.Flow, error) {
	url := fmt.Sprintf("%s/4/flowSegmentData/absolute/10/json?point=%.6f,%.6f&unit=KMPH&key=%s",
		c.baseURL, lat, lon, c.apiKey)

	var raw flowResponse
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	seg := raw.FlowSegmentData
	return &traffic.Flow{
		CurrentSpeed:  seg.CurrentSpeed,
		FreeFlowSpeed: seg.FreeFlowSpeed,
		Confidence:    seg.Confidence,
		RoadClosure:   seg.RoadClosure,
	}, nil
}

// GetIncidents fetches incidents within a bounding box.
func (c *Client) GetIncidents(ctx context.Context, box geo.BoundingBox) ([]traffic.Incident, error) {
	url := fmt.Sprintf("%s/5/incidentDetails?bbox=%.6f,%.6f,%.6f,%.6f"+
		"&fields={incidents{type,geometry{coordinates},properties{iconCategory,magnitudeOfDelay,events{description},startTime,endTime,delay,roadNumbers}}}&key=%s",
		c.baseURL, box.MinLon, box.MinLat, box.MaxLon, box.MaxLat, c.apiKey)

	var raw incidentsResponse
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	incidents := make([]traffic.Incident, 0, len(raw.Incidents))
	for _, inc := range raw.Incidents {
		incidents = append(incidents, toIncident(inc))
	}

	return incidents, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return &traffic.Error{Provider: ProviderName, Message: "creating request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &traffic.Error{Provider: ProviderName, Message: "executing request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &traffic.Error{
			Provider:   ProviderName,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &traffic.Error{Provider: ProviderName, Message: "decoding response", Err: err}
	}

	return nil
}

// toIncident converts a raw incident into the domain model.
func toIncident(raw rawIncident) traffic.Incident {
	inc := traffic.Incident{
		Type:          mapIncidentType(raw.Properties.IconCategory),
		Severity:      mapSeverity(raw.Properties.MagnitudeOfDelay),
		DelayMinutes:  raw.Properties.Delay / 60,
		AffectedRoads: raw.Properties.RoadNumbers,
	}

	if len(raw.Properties.Events) > 0 {
		inc.Description = raw.Properties.Events[0].Description
	}
	if t, err := time.Parse(time.RFC3339, raw.Properties.StartTime); err == nil {
		inc.StartsAt = t
	}
	if t, err := time.Parse(time.RFC3339, raw.Properties.EndTime); err == nil {
		inc.EndsAt = t
	}

	for _, coord := range raw.Geometry.Coordinates {
		if len(coord) == 2 {
			// GeoJSON order: [longitude, latitude].
			inc.Geometry = append(inc.Geometry, geo.Point{Lat: coord[1], Lon: coord[0]})
		}
	}

	return inc
}

// mapIncidentType maps TomTom icon categories to domain incident types.
func mapIncidentType(category int) traffic.IncidentType {
	switch category {
	case 1:
		return traffic.IncidentAccident
	case 6:
		return traffic.IncidentCongestion
	case 7:
		return traffic.IncidentRoadworks
	case 8:
		return traffic.IncidentClosure
	case 2, 3, 4, 5:
		return traffic.IncidentHazard
	default:
		return traffic.IncidentOther
	}
}

// mapSeverity maps TomTom magnitude-of-delay to domain severity.
func mapSeverity(magnitude int) traffic.IncidentSeverity {
	switch magnitude {
	case 1:
		return traffic.SeverityMinor
	case 2:
		return traffic.SeverityModerate
	case 3:
		return traffic.SeverityMajor
	case 4:
		return traffic.SeveritySevere
	default:
		return traffic.SeverityMinor
	}
}

// TomTom API response structures.

type flowResponse struct {
	FlowSegmentData struct {
		CurrentSpeed  float64 `json:"currentSpeed"`
		FreeFlowSpeed float64 `json:"freeFlowSpeed"`
		Confidence    float64 `json:"confidence"`
		RoadClosure   bool    `json:"roadClosure"`
	} `json:"flowSegmentData"`
}

type rawIncident struct {
	Type     string `json:"type"`
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		IconCategory     int `json:"iconCategory"`
		MagnitudeOfDelay int `json:"magnitudeOfDelay"`
		Events           []struct {
			Description string `json:"description"`
		} `json:"events"`
		StartTime   string   `json:"startTime"`
		EndTime     string   `json:"endTime"`
		Delay       int      `json:"delay"` // seconds
		RoadNumbers []string `json:"roadNumbers"`
	} `json:"properties"`
}

type incidentsResponse struct {
	Incidents []rawIncident `json:"incidents"`
}
