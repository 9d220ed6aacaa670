package ops_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetpulse/fleetpulse/internal/monitor"
	"github.com/fleetpulse/fleetpulse/internal/ops"
	"github.com/fleetpulse/fleetpulse/internal/route"
)

type stubScanner struct {
	result *monitor.ScanResult
	err    error
}

func (s *stubScanner) Scan(_ context.Context) (*monitor.ScanResult, error) {
	return s.result, s.err
}

func (s *stubScanner) MetricsSnapshot() map[string]interface{} {
	return map[string]interface{}{"total_scans": int64(3)}
}

type stubReoptimizer struct {
	result *monitor.ReoptimizeResult
	err    error
	lastID string
}

func (s *stubReoptimizer) Reoptimize(_ context.Context, routeID string) (*monitor.ReoptimizeResult, error) {
	s.lastID = routeID
	return s.result, s.err
}

func newTestRouter(scanner *stubScanner, reopt *stubReoptimizer) http.Handler {
	return ops.NewRouter(ops.RouterConfig{
		Version:     "test",
		BuildTime:   "now",
		Scanner:     scanner,
		Reoptimizer: reopt,
		Logger:      zerolog.Nop(),
	})
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubScanner{}, &stubReoptimizer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "fleetpulse-monitor", body["service"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestTriggerScan(t *testing.T) {
	scanner := &stubScanner{result: &monitor.ScanResult{TotalRoutes: 5, Scanned: 4, Delayed: 1, Skipped: 1}}
	router := newTestRouter(scanner, &stubReoptimizer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ops/scan", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 5, body["totalRoutes"])
	assert.EqualValues(t, 1, body["delayed"])
}

func TestTriggerScan_Conflict(t *testing.T) {
	scanner := &stubScanner{err: monitor.ErrScanInProgress}
	router := newTestRouter(scanner, &stubReoptimizer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ops/scan", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReoptimizeRoute(t *testing.T) {
	reopt := &stubReoptimizer{result: &monitor.ReoptimizeResult{
		RouteID:   "r1",
		Performed: true,
		Reason:    "estimated delay of 40 minutes",
	}}
	router := newTestRouter(&stubScanner{}, reopt)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ops/routes/r1/reoptimize", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r1", reopt.lastID)

	var body monitor.ReoptimizeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Performed)
}

func TestReoptimizeRoute_NotFound(t *testing.T) {
	reopt := &stubReoptimizer{err: route.ErrRouteNotFound}
	router := newTestRouter(&stubScanner{}, reopt)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ops/routes/missing/reoptimize", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReoptimizeRoute_Inactive(t *testing.T) {
	reopt := &stubReoptimizer{err: monitor.ErrRouteInactive}
	router := newTestRouter(&stubScanner{}, reopt)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ops/routes/r1/reoptimize", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(&stubScanner{}, &stubReoptimizer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["total_scans"])
}
