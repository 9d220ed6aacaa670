package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository. The
// snapshot body is stored as a JSONB document; route_id, captured_at, and
// notified are promoted to columns for querying and retention sweeps.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL snapshot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append stores a new snapshot.
func (r *PostgresRepository) Append(ctx context.Context, snap *ConditionSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}

	doc, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO condition_snapshots (id, route_id, captured_at, notified, doc)
		VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.RouteID, snap.CapturedAt, snap.Notified, doc,
	)
	return err
}

// Latest returns the most recent snapshot for a route.
func (r *PostgresRepository) Latest(ctx context.Context, routeID string) (*ConditionSnapshot, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT doc
		FROM condition_snapshots
		WHERE route_id = $1
		ORDER BY captured_at DESC
		LIMIT 1`,
		routeID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	return decodeSnapshot(doc)
}

// Range returns a route's snapshots captured in [from, to), oldest first.
func (r *PostgresRepository) Range(ctx context.Context, routeID string, from, to time.Time) ([]*ConditionSnapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc
		FROM condition_snapshots
		WHERE route_id = $1 AND captured_at >= $2 AND captured_at < $3
		ORDER BY captured_at`,
		routeID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*ConditionSnapshot
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		snap, err := decodeSnapshot(doc)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// PurgeOlderThan deletes snapshots captured before the cutoff.
func (r *PostgresRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM condition_snapshots WHERE captured_at < $1`, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func decodeSnapshot(doc []byte) (*ConditionSnapshot, error) {
	var snap ConditionSnapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
