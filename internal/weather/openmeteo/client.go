// Package openmeteo implements the weather provider contract against the
// Open-Meteo forecast API, which keys conditions by numeric WMO codes.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleetpulse/internal/provider/resilience"
	"github.com/fleetpulse/fleetpulse/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "open-meteo"

	// DefaultBaseURL is the Open-Meteo forecast API base URL.
	DefaultBaseURL = "https://api.open-meteo.com/v1"

	// maxHourly caps the hourly forecast entries returned to callers.
	maxHourly = 6
)

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to the public API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an Open-Meteo API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Open-Meteo client.
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
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetForecast fetches current conditions, a short hourly forecast, a daily
// outlook, and synthesized alerts for a location.
func (c *Client) GetForecast(ctx context.Context, lat, lon float64) (*weather.Report, error) {
	url := fmt.Sprintf("%s/forecast?latitude=%.6f&longitude=%.6f"+
		"&current=temperature_2m,precipitation,weather_code,wind_speed_10m,visibility"+
		"&hourly=temperature_2m,precipitation,weather_code,wind_speed_10m"+
		"&daily=weather_code,temperature_2m_min,temperature_2m_max,precipitation_sum"+
		"&timezone=UTC", c.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &weather.Error{Provider: ProviderName, Message: "creating request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &weather.Error{Provider: ProviderName, Message: "executing request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &weather.Error{
			Provider:   ProviderName,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var raw forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &weather.Error{Provider: ProviderName, Message: "decoding response", Err: err}
	}

	return c.toReport(&raw), nil
}

// toReport converts the raw Open-Meteo response into the domain model.
func (c *Client) toReport(raw *forecastResponse) *weather.Report {
	visibilityKm := -1.0
	if raw.Current.Visibility != nil {
		visibilityKm = *raw.Current.Visibility / 1000
	}

	current := weather.Observation{
		Condition:     weather.ConditionFromCode(raw.Current.WeatherCode),
		Temperature:   raw.Current.Temperature,
		WindSpeed:     raw.Current.WindSpeed,
		Precipitation: raw.Current.Precipitation,
		VisibilityKm:  visibilityKm,
		ObservedAt:    parseTime(raw.Current.Time),
	}

	report := &weather.Report{
		Lat:       raw.Latitude,
		Lon:       raw.Longitude,
		Current:   current,
		Alerts:    weather.SynthesizeAlerts(current),
		FetchedAt: time.Now(),
	}

	for i, ts := range raw.Hourly.Time {
		if i >= maxHourly {
			break
		}
		report.Hourly = append(report.Hourly, weather.HourlyForecast{
			Time:          parseTime(ts),
			Condition:     weather.ConditionFromCode(at(raw.Hourly.WeatherCode, i)),
			Temperature:   atF(raw.Hourly.Temperature, i),
			WindSpeed:     atF(raw.Hourly.WindSpeed, i),
			Precipitation: atF(raw.Hourly.Precipitation, i),
		})
	}

	for i, ds := range raw.Daily.Time {
		report.Daily = append(report.Daily, weather.DailyForecast{
			Date:          parseTime(ds),
			Condition:     weather.ConditionFromCode(at(raw.Daily.WeatherCode, i)),
			TempMin:       atF(raw.Daily.TempMin, i),
			TempMax:       atF(raw.Daily.TempMax, i),
			Precipitation: atF(raw.Daily.PrecipitationSum, i),
		})
	}

	return report
}

func parseTime(s string) time.Time {
	// Open-Meteo returns ISO 8601 without a zone suffix; dates come bare.
	for _, layout := range []string{"2006-01-02T15:04", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func at(s []int, i int) int {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func atF(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// Open-Meteo API response structures.

type forecastResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   struct {
		Time          string   `json:"time"`
		Temperature   float64  `json:"temperature_2m"`
		Precipitation float64  `json:"precipitation"`
		WeatherCode   int      `json:"weather_code"`
		WindSpeed     float64  `json:"wind_speed_10m"`
		Visibility    *float64 `json:"visibility"` // meters, optional
	} `json:"current"`
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature   []float64 `json:"temperature_2m"`
		Precipitation []float64 `json:"precipitation"`
		WeatherCode   []int     `json:"weather_code"`
		WindSpeed     []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
	Daily struct {
		Time             []string  `json:"time"`
		WeatherCode      []int     `json:"weather_code"`
		TempMin          []float64 `json:"temperature_2m_min"`
		TempMax          []float64 `json:"temperature_2m_max"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}
