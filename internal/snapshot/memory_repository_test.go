package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/eta"
)

func appendAt(t *testing.T, repo *InMemoryRepository, routeID string, at time.Time, delay int) *ConditionSnapshot {
	t.Helper()
	snap := &ConditionSnapshot{
		RouteID:    routeID,
		CapturedAt: at,
		Estimate:   eta.Estimate{DelayMinutes: delay},
	}
	if err := repo.Append(context.Background(), snap); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	return snap
}

func TestInMemoryRepository_AppendAssignsID(t *testing.T) {
	repo := NewInMemoryRepository()
	snap := appendAt(t, repo, "r1", time.Now(), 5)
	if snap.ID == "" {
		t.Error("Append must assign an ID")
	}
}

func TestInMemoryRepository_Latest(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	appendAt(t, repo, "r1", base, 5)
	appendAt(t, repo, "r1", base.Add(10*time.Minute), 12)
	appendAt(t, repo, "r1", base.Add(5*time.Minute), 8)

	latest, err := repo.Latest(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Estimate.DelayMinutes != 12 {
		t.Errorf("latest delay = %d, want 12", latest.Estimate.DelayMinutes)
	}

	if _, err := repo.Latest(context.Background(), "missing"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestInMemoryRepository_RangeIsHalfOpen(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		appendAt(t, repo, "r1", base.Add(time.Duration(i)*time.Hour), i)
	}
	appendAt(t, repo, "other", base, 99)

	snaps, err := repo.Range(context.Background(), "r1", base.Add(time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("range = %d snapshots, want 2", len(snaps))
	}
	if snaps[0].Estimate.DelayMinutes != 1 || snaps[1].Estimate.DelayMinutes != 2 {
		t.Errorf("range not ordered oldest first: %d, %d",
			snaps[0].Estimate.DelayMinutes, snaps[1].Estimate.DelayMinutes)
	}
}

func TestInMemoryRepository_PurgeOlderThan(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	appendAt(t, repo, "r1", base.Add(-25*time.Hour), 1)
	appendAt(t, repo, "r1", base.Add(-23*time.Hour), 2)
	appendAt(t, repo, "r2", base.Add(-30*time.Hour), 3)

	purged, err := repo.PurgeOlderThan(context.Background(), base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}

	if _, err := repo.Latest(context.Background(), "r2"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("r2 should be fully purged, got %v", err)
	}
	if latest, err := repo.Latest(context.Background(), "r1"); err != nil || latest.Estimate.DelayMinutes != 2 {
		t.Errorf("r1 survivor wrong: %+v, %v", latest, err)
	}
}
