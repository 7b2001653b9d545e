package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"exampro-service/internal/domain"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSnapshotStoreHonorsTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	store := NewSnapshotStoreWithClock(clock.Now)

	written, err := store.Put(ctx, "CS", sampleEntries(), time.Minute)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := written.ExpiresAt.Sub(written.ComputedAt); got != time.Minute {
		t.Fatalf("expected expiry one ttl after computation, got %v", got)
	}
	if written.TotalStudents != 2 {
		t.Fatalf("expected 2 students, got %d", written.TotalStudents)
	}

	clock.Advance(time.Minute - time.Nanosecond)
	if _, err := store.Get(ctx, "CS"); err != nil {
		t.Fatalf("expected snapshot just before expiry, got %v", err)
	}

	clock.Advance(time.Nanosecond)
	if _, err := store.Get(ctx, "CS"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected miss at expiry, got %v", err)
	}
	state, _ := store.Inspect(ctx, "CS")
	if state.Status != domain.CacheMissing {
		t.Fatalf("expected expired snapshot purged on read, got %s", state.Status)
	}
}

func TestSnapshotStoreInspectReportsExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	store := NewSnapshotStoreWithClock(clock.Now)

	if state, _ := store.Inspect(ctx, "CS"); state.Status != domain.CacheMissing {
		t.Fatalf("expected missing, got %s", state.Status)
	}
	_, _ = store.Put(ctx, "CS", sampleEntries(), time.Minute)
	if state, _ := store.Inspect(ctx, "CS"); state.Status != domain.CacheValid || state.TotalStudents != 2 {
		t.Fatalf("expected valid snapshot with 2 students, got %+v", state)
	}
	clock.Advance(2 * time.Minute)
	if state, _ := store.Inspect(ctx, "CS"); state.Status != domain.CacheExpired {
		t.Fatalf("expected expired, got %s", state.Status)
	}
}

func TestSnapshotStoreInvalidateIsPartitioned(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	_, _ = store.Put(ctx, "CS", sampleEntries(), time.Minute)
	_, _ = store.Put(ctx, "EE", sampleEntries(), time.Minute)

	if err := store.Invalidate(ctx, "CS"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := store.Get(ctx, "CS"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected CS gone, got %v", err)
	}
	if _, err := store.Get(ctx, "EE"); err != nil {
		t.Fatalf("expected EE untouched, got %v", err)
	}
}

func TestSnapshotStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	_, _ = store.Put(ctx, "CS", sampleEntries(), time.Minute)
	_, _ = store.Put(ctx, "CS", sampleEntries()[:1], time.Minute)

	got, err := store.Get(ctx, "CS")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalStudents != 1 || len(got.Entries) != 1 {
		t.Fatalf("expected last write to win, got %+v", got)
	}

	// Mutating a returned snapshot must not leak into the store.
	got.Entries[0].StudentID = "mutated"
	again, _ := store.Get(ctx, "CS")
	if again.Entries[0].StudentID != "alice" {
		t.Fatalf("expected stored snapshot isolated from callers, got %q", again.Entries[0].StudentID)
	}
}

func sampleEntries() []domain.LeaderboardEntry {
	return []domain.LeaderboardEntry{
		{StudentSummary: domain.StudentSummary{StudentID: "alice", DisplayName: "Alice", DepartmentID: "CS", TotalPoints: 170, AverageScorePercent: 85, ExamCount: 2}, RankPosition: 1},
		{StudentSummary: domain.StudentSummary{StudentID: "bob", DisplayName: "Bob", DepartmentID: "CS", TotalPoints: 70, AverageScorePercent: 70, ExamCount: 1}, RankPosition: 2},
	}
}
