package traffic

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleetpulse/internal/geo"
)

// maxFlowPoints caps the flow requests issued per route.
const maxFlowPoints = 10

// ServiceConfig holds configuration for the traffic service.
type ServiceConfig struct {
	// Provider is the traffic data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// IncidentPaddingKm inflates the incident bounding box (default: 5).
	IncidentPaddingKm float64
}

// Service aggregates per-point flow data into route-level summaries.
type Service struct {
	provider          Provider
	logger            zerolog.Logger
	incidentPaddingKm float64
}

// NewService creates a new traffic service.
func NewService(cfg ServiceConfig) *Service {
	padding := cfg.IncidentPaddingKm
	if padding == 0 {
		padding = 5
	}

	return &Service{
		provider:          cfg.Provider,
		logger:            cfg.Logger,
		incidentPaddingKm: padding,
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Summary fetches traffic conditions along a route's coordinates. It samples
// up to ten points, issues one concurrent flow request per sampled point, and
// averages over the survivors; the incident fetch runs alongside. Individual
// flow failures degrade the summary rather than failing it; the call errors
// only when every flow request and the incident request all fail.
func (s *Service) Summary(ctx context.Context, points []geo.Point) (*Summary, error) {
	sampled := geo.SamplePoints(points, maxFlowPoints)

	type flowResult struct {
		flow *Flow
		err  error
	}

	flowResults := make([]flowResult, len(sampled))

	var wg sync.WaitGroup
	for i, p := range sampled {
		wg.Add(1)
		go func(i int, p geo.Point) {
			defer wg.Done()
			flow, err := s.provider.GetFlow(ctx, p.Lat, p.Lon)
			flowResults[i] = flowResult{flow: flow, err: err}
		}(i, p)
	}

	var (
		incidents   []Incident
		incidentErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		box := geo.BoundingBoxOf(points, s.incidentPaddingKm)
		incidents, incidentErr = s.provider.GetIncidents(ctx, box)
	}()

	wg.Wait()

	summary := &Summary{
		SampledPoints: len(sampled),
		Incidents:     incidents,
		CapturedAt:    time.Now(),
	}

	var sumCurrent, sumFree float64
	survivors := 0
	for i, res := range flowResults {
		if res.err != nil {
			summary.FailedPoints++
			s.logger.Warn().Err(res.err).
				Float64("lat", sampled[i].Lat).
				Float64("lon", sampled[i].Lon).
				Msg("flow request failed, discarding point")
			continue
		}
		sumCurrent += res.flow.CurrentSpeed
		sumFree += res.flow.FreeFlowSpeed
		survivors++
	}

	if incidentErr != nil {
		s.logger.Warn().Err(incidentErr).Msg("incident request failed")
		summary.Incidents = nil
	}

	if survivors == 0 {
		// Zero survivors is degradation, not failure. Only a total batch
		// failure (no flow data and no incidents) surfaces an error.
		if incidentErr != nil {
			return nil, &Error{
				Provider: s.provider.Name(),
				Message:  "all flow and incident requests failed",
				Err:      incidentErr,
			}
		}
		summary.Congestion = CongestionUnknown
		return summary, nil
	}

	summary.AvgCurrentSpeed = sumCurrent / float64(survivors)
	summary.AvgFreeFlowSpeed = sumFree / float64(survivors)
	summary.Congestion = CongestionFromSpeeds(summary.AvgCurrentSpeed, summary.AvgFreeFlowSpeed)

	s.logger.Debug().
		Int("sampled", summary.SampledPoints).
		Int("failed", summary.FailedPoints).
		Int("incidents", len(summary.Incidents)).
		Str("congestion", string(summary.Congestion)).
		Msg("traffic summary computed")

	return summary, nil
}
