package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is an in-memory implementation of Repository for tests
// and local development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	snaps map[string][]*ConditionSnapshot
}

// NewInMemoryRepository creates a new in-memory snapshot repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{snaps: make(map[string][]*ConditionSnapshot)}
}

// Append stores a new snapshot.
func (r *InMemoryRepository) Append(_ context.Context, snap *ConditionSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}

	clone := *snap

	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.snaps[snap.RouteID], &clone)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CapturedAt.Before(list[j].CapturedAt)
	})
	r.snaps[snap.RouteID] = list
	return nil
}

// Latest returns the most recent snapshot for a route.
func (r *InMemoryRepository) Latest(_ context.Context, routeID string) (*ConditionSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.snaps[routeID]
	if len(list) == 0 {
		return nil, ErrSnapshotNotFound
	}
	clone := *list[len(list)-1]
	return &clone, nil
}

// Range returns a route's snapshots captured in [from, to), oldest first.
func (r *InMemoryRepository) Range(_ context.Context, routeID string, from, to time.Time) ([]*ConditionSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*ConditionSnapshot
	for _, snap := range r.snaps[routeID] {
		if snap.CapturedAt.Before(from) || !snap.CapturedAt.Before(to) {
			continue
		}
		clone := *snap
		out = append(out, &clone)
	}
	return out, nil
}

// PurgeOlderThan deletes snapshots captured before the cutoff.
func (r *InMemoryRepository) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for routeID, list := range r.snaps {
		kept := list[:0]
		for _, snap := range list {
			if snap.CapturedAt.Before(cutoff) {
				purged++
				continue
			}
			kept = append(kept, snap)
		}
		if len(kept) == 0 {
			delete(r.snaps, routeID)
		} else {
			r.snaps[routeID] = kept
		}
	}
	return purged, nil
}
