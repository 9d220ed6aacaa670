package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetpulse/fleetpulse/internal/geo"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Geometry is stored as interleaved lon/lat pairs in a float8 array.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL route repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const routeColumns = `
	id, name, geometry, scheduled_date, scheduled_end, status,
	distance_km, duration_minutes, stop_count,
	vehicle_id, driver_id, created_at, updated_at
`

// Get retrieves a route with its stops.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1`

	rt, err := r.scanRoute(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadStops(ctx, rt); err != nil {
		return nil, err
	}

	return rt, nil
}

// ListActiveOn returns planned, in_progress, or delayed routes scheduled on
// the day.
func (r *PostgresRepository) ListActiveOn(ctx context.Context, day time.Time) ([]*Route, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		SELECT ` + routeColumns + `
		FROM routes
		WHERE status IN ('planned', 'in_progress', 'delayed')
		  AND scheduled_date >= $1 AND scheduled_date < $2
		ORDER BY scheduled_date
	`

	rows, err := r.pool.Query(ctx, query, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []*Route
	for rows.Next() {
		rt, err := r.scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rt := range routes {
		if err := r.loadStops(ctx, rt); err != nil {
			return nil, err
		}
	}

	return routes, nil
}

// UpdateStatus persists a status change.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE routes SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// UpdatePlan overwrites a route's stop order, geometry, and metrics.
func (r *PostgresRepository) UpdatePlan(ctx context.Context, id string, stops []Stop, geometry []geo.Point, metrics Metrics) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	tag, err := tx.Exec(ctx, `
		UPDATE routes
		SET geometry = $1, distance_km = $2, duration_minutes = $3,
		    stop_count = $4, updated_at = now()
		WHERE id = $5`,
		flattenGeometry(geometry), metrics.DistanceKm, metrics.DurationMinutes,
		metrics.StopCount, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRouteNotFound
	}

	for i, s := range stops {
		if _, err := tx.Exec(ctx,
			`UPDATE stops SET sequence = $1, updated_at = now() WHERE id = $2 AND route_id = $3`,
			i+1, s.ID, id,
		); err != nil {
			return fmt.Errorf("updating stop %s sequence: %w", s.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// UpdateStopStatus persists a stop status change.
func (r *PostgresRepository) UpdateStopStatus(ctx context.Context, stopID string, status StopStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE stops SET status = $1, updated_at = now() WHERE id = $2`,
		status, stopID,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanRoute(row rowScanner) (*Route, error) {
	var (
		rt        Route
		rawCoords []float64
	)

	err := row.Scan(
		&rt.ID,
		&rt.Name,
		&rawCoords,
		&rt.ScheduledDate,
		&rt.ScheduledEnd,
		&rt.Status,
		&rt.Metrics.DistanceKm,
		&rt.Metrics.DurationMinutes,
		&rt.Metrics.StopCount,
		&rt.VehicleID,
		&rt.DriverID,
		&rt.CreatedAt,
		&rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}

	rt.Geometry = unflattenGeometry(rawCoords)
	return &rt, nil
}

func (r *PostgresRepository) loadStops(ctx context.Context, rt *Route) error {
	rows, err := r.pool.Query(ctx, `
		SELECT
			id, route_id, lat, lon, window_earliest, window_latest,
			priority, service_minutes, package_type, status, sequence,
			created_at, updated_at
		FROM stops
		WHERE route_id = $1
		ORDER BY sequence`,
		rt.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s Stop
		if err := rows.Scan(
			&s.ID,
			&s.RouteID,
			&s.Location.Lat,
			&s.Location.Lon,
			&s.Window.Earliest,
			&s.Window.Latest,
			&s.Priority,
			&s.ServiceMinutes,
			&s.PackageType,
			&s.Status,
			&s.Sequence,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return err
		}
		rt.Stops = append(rt.Stops, s)
	}

	return rows.Err()
}

// flattenGeometry interleaves points as lon,lat pairs for storage.
func flattenGeometry(points []geo.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Lon, p.Lat)
	}
	return flat
}

func unflattenGeometry(flat []float64) []geo.Point {
	points := make([]geo.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		points = append(points, geo.Point{Lon: flat[i], Lat: flat[i+1]})
	}
	return points
}
