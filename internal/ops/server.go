// Package ops provides the operational HTTP surface: health, manual scan and
// re-optimization triggers, and scanner metrics.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleetpulse/internal/monitor"
	"github.com/fleetpulse/fleetpulse/internal/route"
)

// opsRateLimit bounds manual triggers (30 req/min per IP). Scans and
// re-optimizations are expensive; the limit keeps a misbehaving client from
// hammering providers.
var opsRateLimit = struct {
	requests int
	window   time.Duration
}{30, time.Minute}

// Scanner is the scan surface used by the router.
type Scanner interface {
	Scan(ctx context.Context) (*monitor.ScanResult, error)
	MetricsSnapshot() map[string]interface{}
}

// Reoptimizer is the re-optimization surface used by the router.
type Reoptimizer interface {
	Reoptimize(ctx context.Context, routeID string) (*monitor.ReoptimizeResult, error)
}

// RouterConfig holds configuration for the ops router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Scanner     Scanner
	Reoptimizer Reoptimizer
	Logger      zerolog.Logger
}

// NewRouter creates the ops chi router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware, order matters.
	r.Use(RequestID)
	r.Use(Logger(cfg.Logger))
	r.Use(Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	h := &handler{
		version:     cfg.Version,
		buildTime:   cfg.BuildTime,
		scanner:     cfg.Scanner,
		reoptimizer: cfg.Reoptimizer,
	}

	r.Get("/health", h.health)

	r.Route("/ops", func(r chi.Router) {
		r.Use(httprate.Limit(
			opsRateLimit.requests,
			opsRateLimit.window,
			httprate.WithKeyFuncs(httprate.KeyByRealIP),
		))

		r.Post("/scan", h.triggerScan)
		r.Post("/routes/{id}/reoptimize", h.reoptimizeRoute)
		r.Get("/metrics", h.metrics)
	})

	return r
}

type handler struct {
	version     string
	buildTime   string
	scanner     Scanner
	reoptimizer Reoptimizer
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"service":    "fleetpulse-monitor",
		"version":    h.version,
		"build_time": h.buildTime,
	})
}

func (h *handler) triggerScan(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.Scan(r.Context())
	if err != nil {
		if errors.Is(err, monitor.ErrScanInProgress) {
			writeError(w, http.StatusConflict, "a scan is already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalRoutes": result.TotalRoutes,
		"scanned":     result.Scanned,
		"delayed":     result.Delayed,
		"notified":    result.Notified,
		"completed":   result.Completed,
		"skipped":     result.Skipped,
		"failed":      result.Failed,
		"durationMs":  result.Duration.Milliseconds(),
	})
}

func (h *handler) reoptimizeRoute(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "id")

	result, err := h.reoptimizer.Reoptimize(r.Context(), routeID)
	if err != nil {
		switch {
		case errors.Is(err, route.ErrRouteNotFound):
			writeError(w, http.StatusNotFound, "route not found")
		case errors.Is(err, monitor.ErrRouteInactive):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *handler) metrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.scanner.MetricsSnapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
