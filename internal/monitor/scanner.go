package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fleetpulse/fleetpulse/internal/eta"
	"github.com/fleetpulse/fleetpulse/internal/geo"
	"github.com/fleetpulse/fleetpulse/internal/notify"
	"github.com/fleetpulse/fleetpulse/internal/route"
	"github.com/fleetpulse/fleetpulse/internal/snapshot"
	"github.com/fleetpulse/fleetpulse/internal/telemetry"
	"github.com/fleetpulse/fleetpulse/internal/traffic"
	"github.com/fleetpulse/fleetpulse/internal/weather"
)

// ErrScanInProgress is returned when a scan is requested while another is
// still running.
var ErrScanInProgress = errors.New("scan already in progress")

// TrafficSource provides route-level traffic summaries.
type TrafficSource interface {
	Summary(ctx context.Context, points []geo.Point) (*traffic.Summary, error)
}

// WeatherSource provides weather reports for a location.
type WeatherSource interface {
	GetForecast(ctx context.Context, lat, lon float64) (*weather.Report, error)
}

// Scanner walks all active routes and evaluates their live conditions.
type Scanner struct {
	config    ScanConfig
	routes    route.Repository
	snapshots snapshot.Repository
	traffic   TrafficSource
	weather   WeatherSource
	notifier  notify.Notifier
	logger    zerolog.Logger

	// running guards against overlapping scans.
	running atomic.Bool

	metrics *ScanMetrics

	tracer         trace.Tracer
	scannedCounter metric.Int64Counter
	failedCounter  metric.Int64Counter
}

// ScannerConfig holds dependencies for creating a Scanner.
type ScannerConfig struct {
	Config    ScanConfig
	Routes    route.Repository
	Snapshots snapshot.Repository
	Traffic   TrafficSource
	Weather   WeatherSource
	Notifier  notify.Notifier
	Logger    zerolog.Logger
}

const instrumentationName = "github.com/fleetpulse/fleetpulse/internal/monitor"

// NewScanner creates a fleet scanner.
func NewScanner(cfg ScannerConfig) *Scanner {
	meter := telemetry.Meter(instrumentationName)
	scanned, _ := meter.Int64Counter("fleetpulse.scan.routes_scanned",
		metric.WithDescription("Routes evaluated per scan"))
	failed, _ := meter.Int64Counter("fleetpulse.scan.routes_failed",
		metric.WithDescription("Route scan units that failed"))

	return &Scanner{
		config:    cfg.Config.withDefaults(),
		routes:    cfg.Routes,
		snapshots: cfg.Snapshots,
		traffic:   cfg.Traffic,
		weather:   cfg.Weather,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		metrics:   &ScanMetrics{},

		tracer:         telemetry.Tracer(instrumentationName),
		scannedCounter: scanned,
		failedCounter:  failed,
	}
}

// ScanResult aggregates the outcome of one fleet scan.
type ScanResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalRoutes int
	Scanned     int
	Delayed     int
	Notified    int
	Completed   int
	Skipped     int
	Failed      int
	Purged      int64
}

// Start runs scans on the configured interval until the context is
// cancelled. One scan runs immediately on startup.
func (s *Scanner) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Int("concurrency", s.config.Concurrency).
		Msg("starting fleet scanner")

	if _, err := s.Scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error().Err(err).Msg("initial scan failed")
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("fleet scanner stopped")
			return
		case <-ticker.C:
			if _, err := s.Scan(ctx); err != nil {
				if errors.Is(err, ErrScanInProgress) {
					s.logger.Warn().Msg("previous scan still running, skipping tick")
					continue
				}
				s.logger.Error().Err(err).Msg("scan failed")
			}
		}
	}
}

// Scan evaluates every active route once. Only one scan runs at a time;
// concurrent invocations return ErrScanInProgress.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	ctx, span := s.tracer.Start(ctx, "monitor.Scan")
	defer span.End()

	result := &ScanResult{StartTime: time.Now()}

	routes, err := s.routes.ListActiveOn(ctx, result.StartTime)
	if err != nil {
		return nil, err
	}
	result.TotalRoutes = len(routes)

	s.logger.Info().
		Int("routes", len(routes)).
		Msg("starting fleet scan")

	routesChan := make(chan *route.Route, len(routes))
	outcomes := make(chan routeOutcome, len(routes))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rt := range routesChan {
				select {
				case <-ctx.Done():
					return
				default:
					outcomes <- s.scanRoute(ctx, rt)
				}
			}
		}()
	}

	for _, rt := range routes {
		routesChan <- rt
	}
	close(routesChan)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		switch {
		case o.failed:
			result.Failed++
		case o.skipped:
			result.Skipped++
		case o.completed:
			result.Completed++
		default:
			result.Scanned++
		}
		if o.delayed {
			result.Delayed++
		}
		if o.notified {
			result.Notified++
		}
	}

	purged, err := s.snapshots.PurgeOlderThan(ctx, result.StartTime.Add(-s.config.Retention))
	if err != nil {
		s.logger.Warn().Err(err).Msg("snapshot retention sweep failed")
	}
	result.Purged = purged

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	s.metrics.record(result)
	s.scannedCounter.Add(ctx, int64(result.Scanned))
	s.failedCounter.Add(ctx, int64(result.Failed))
	span.SetAttributes(
		attribute.Int("routes.total", result.TotalRoutes),
		attribute.Int("routes.scanned", result.Scanned),
		attribute.Int("routes.delayed", result.Delayed),
		attribute.Int("routes.failed", result.Failed),
	)

	s.logger.Info().
		Dur("duration", result.Duration).
		Int("scanned", result.Scanned).
		Int("delayed", result.Delayed).
		Int("notified", result.Notified).
		Int("completed", result.Completed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int64("purged", result.Purged).
		Msg("fleet scan completed")

	return result, nil
}

type routeOutcome struct {
	routeID   string
	delayed   bool
	notified  bool
	completed bool
	skipped   bool
	failed    bool
}

// scanRoute evaluates one route. Provider failures degrade to partial
// condition data; only a snapshot persistence failure marks the unit failed.
func (s *Scanner) scanRoute(ctx context.Context, rt *route.Route) routeOutcome {
	outcome := routeOutcome{routeID: rt.ID}
	logger := s.logger.With().Str("route_id", rt.ID).Logger()

	// Routes with no stops left to visit no longer need monitoring.
	if rt.Finished() {
		if rt.Status.CanTransitionTo(route.StatusCompleted) {
			if err := s.finishRoute(ctx, rt); err != nil {
				logger.Error().Err(err).Msg("failed to complete finished route")
				outcome.failed = true
				return outcome
			}
			logger.Info().Msg("no stops left to visit, route completed")
		}
		outcome.completed = true
		return outcome
	}

	coords := rt.Coordinates()
	if len(coords) == 0 {
		logger.Warn().Msg("route has no coordinates, skipping")
		outcome.skipped = true
		return outcome
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RouteTimeout)
	defer cancel()

	summary, report := s.fetchConditions(ctx, logger, coords)

	est := eta.Revise(rt, summary)
	verdict := eta.Decide(summary, report, est)

	snap := &snapshot.ConditionSnapshot{
		RouteID:    rt.ID,
		CapturedAt: time.Now().UTC(),
		Traffic:    summary,
		Weather:    report,
		Estimate:   est,
		Verdict:    verdict,
	}

	if verdict.Suggested || est.DelayMinutes > notifyThresholdMinutes {
		event := notify.Event{
			RouteID:      rt.ID,
			DelayMinutes: est.DelayMinutes,
			Suggested:    verdict.Suggested,
			Reasons:      verdict.Reasons,
			OccurredAt:   snap.CapturedAt,
		}
		if err := s.notifier.Notify(ctx, event); err != nil {
			logger.Warn().Err(err).Msg("alert delivery failed")
		} else {
			snap.Notified = true
			outcome.notified = true
		}
	}

	if err := s.snapshots.Append(ctx, snap); err != nil {
		logger.Error().Err(err).Msg("failed to persist condition snapshot")
		outcome.failed = true
		return outcome
	}

	// Delayed is sticky: once marked, only delivery progress moves the
	// route forward, never a quieter scan.
	if est.DelayMinutes > delayedThresholdMinutes && rt.Status != route.StatusDelayed {
		if rt.Status.CanTransitionTo(route.StatusDelayed) {
			if err := s.routes.UpdateStatus(ctx, rt.ID, route.StatusDelayed); err != nil {
				logger.Error().Err(err).Msg("failed to mark route delayed")
			} else {
				outcome.delayed = true
				logger.Info().
					Int("delay_minutes", est.DelayMinutes).
					Msg("route marked delayed")
			}
		}
	}

	return outcome
}

// finishRoute closes out a finished route. Stops that were rescheduled off
// the route are cancelled on it first, so a completed route carries only
// terminal stop statuses.
func (s *Scanner) finishRoute(ctx context.Context, rt *route.Route) error {
	for _, stop := range rt.Stops {
		if stop.Status != route.StopRescheduled {
			continue
		}
		if err := s.routes.UpdateStopStatus(ctx, stop.ID, route.StopCancelled); err != nil {
			return fmt.Errorf("cancelling rescheduled stop %s: %w", stop.ID, err)
		}
	}
	return s.routes.UpdateStatus(ctx, rt.ID, route.StatusCompleted)
}

// fetchConditions runs the traffic and weather fetches concurrently. Either
// may fail independently; a failed fetch yields nil for that input.
func (s *Scanner) fetchConditions(ctx context.Context, logger zerolog.Logger, coords []geo.Point) (*traffic.Summary, *weather.Report) {
	var (
		wg      sync.WaitGroup
		summary *traffic.Summary
		report  *weather.Report
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		summary, err = s.traffic.Summary(ctx, coords)
		if err != nil {
			logger.Warn().Err(err).Msg("traffic fetch failed, scanning without traffic")
			summary = nil
		}
	}()
	go func() {
		defer wg.Done()
		center := geo.BoundingBoxOf(coords, 0).Center()
		var err error
		report, err = s.weather.GetForecast(ctx, center.Lat, center.Lon)
		if err != nil {
			logger.Warn().Err(err).Msg("weather fetch failed, scanning without weather")
			report = nil
		}
	}()
	wg.Wait()

	return summary, report
}

// ScanMetrics tracks cumulative scanner statistics.
type ScanMetrics struct {
	mu sync.RWMutex

	TotalScans    int64
	RoutesScanned int64
	RoutesDelayed int64
	AlertsSent    int64
	RoutesFailed  int64
	PurgedSnaps   int64

	LastScanAt       time.Time
	LastScanDuration time.Duration
}

func (m *ScanMetrics) record(result *ScanResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalScans++
	m.RoutesScanned += int64(result.Scanned)
	m.RoutesDelayed += int64(result.Delayed)
	m.AlertsSent += int64(result.Notified)
	m.RoutesFailed += int64(result.Failed)
	m.PurgedSnaps += result.Purged
	m.LastScanAt = result.EndTime
	m.LastScanDuration = result.Duration
}

// MetricsSnapshot returns the current metrics as a map for the ops surface.
func (s *Scanner) MetricsSnapshot() map[string]interface{} {
	s.metrics.mu.RLock()
	defer s.metrics.mu.RUnlock()

	return map[string]interface{}{
		"total_scans":        s.metrics.TotalScans,
		"routes_scanned":     s.metrics.RoutesScanned,
		"routes_delayed":     s.metrics.RoutesDelayed,
		"alerts_sent":        s.metrics.AlertsSent,
		"routes_failed":      s.metrics.RoutesFailed,
		"snapshots_purged":   s.metrics.PurgedSnaps,
		"last_scan_at":       s.metrics.LastScanAt,
		"last_scan_duration": s.metrics.LastScanDuration.String(),
	}
}
