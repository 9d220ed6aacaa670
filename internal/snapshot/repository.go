package snapshot

import (
	"context"
	"time"
)

// Repository persists condition snapshots.
type Repository interface {
	// Append stores a new snapshot. An empty ID is filled in.
	Append(ctx context.Context, snap *ConditionSnapshot) error

	// Latest returns the most recent snapshot for a route, or
	// ErrSnapshotNotFound when none exists.
	Latest(ctx context.Context, routeID string) (*ConditionSnapshot, error)

	// Range returns a route's snapshots captured in [from, to), oldest first.
	Range(ctx context.Context, routeID string, from, to time.Time) ([]*ConditionSnapshot, error)

	// PurgeOlderThan deletes snapshots captured before the cutoff and
	// reports how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
