package optimizer

import (
	"context"

	"github.com/rs/zerolog"
)

// Confidence scoring for primary-strategy results.
const (
	confidenceBase  = 0.7
	confidenceBonus = 0.1
	minRationaleLen = 20
	confidenceMax   = 1.0
)

// ServiceConfig holds configuration for the optimizer service.
type ServiceConfig struct {
	// Primary is the AI planner. Optional; when nil every request uses the
	// fallback heuristic.
	Primary Planner

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service tries the primary planner and degrades to the deterministic
// fallback on any failure. The fallback is cheap and always available, so
// callers never see a primary-strategy error.
type Service struct {
	primary  Planner
	fallback *FallbackPlanner
	logger   zerolog.Logger
}

// NewService creates an optimizer service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		primary:  cfg.Primary,
		fallback: NewFallbackPlanner(),
		logger:   cfg.Logger,
	}
}

// Optimize sequences the request's stops. Primary-strategy failures of any
// kind (timeout, malformed response, provider error) transparently fall back
// to the deterministic heuristic; the degradation shows up only as a warning
// in the result.
func (s *Service) Optimize(ctx context.Context, req Request) (*Result, error) {
	if len(req.Stops) == 0 {
		return nil, ErrNoStops
	}

	if s.primary != nil {
		result, err := s.primary.Plan(ctx, req)
		if err == nil {
			result.Confidence = scoreConfidence(result, req)
			s.logger.Debug().
				Str("method", result.Method).
				Int("stops", len(req.Stops)).
				Float64("confidence", result.Confidence).
				Msg("primary planner produced sequence")
			return result, nil
		}

		s.logger.Warn().Err(err).
			Str("planner", s.primary.Name()).
			Msg("primary planner failed, using fallback")
	}

	return s.fallback.Plan(ctx, req)
}

// scoreConfidence grades a primary-strategy result: base 0.7, plus 0.1 when
// every stop carries both time-window bounds, 0.1 when the rationale exceeds
// 20 characters, and 0.1 when a total distance is present; clamped to 1.0.
func scoreConfidence(result *Result, req Request) float64 {
	score := confidenceBase

	allWindowed := true
	for _, s := range req.Stops {
		if !s.Window.Valid() {
			allWindowed = false
			break
		}
	}
	if allWindowed {
		score += confidenceBonus
	}

	if len(result.Reasoning) > minRationaleLen {
		score += confidenceBonus
	}

	if result.Metrics.TotalDistanceKm > 0 {
		score += confidenceBonus
	}

	if score > confidenceMax {
		score = confidenceMax
	}
	return score
}
