package memory

import (
	"context"
	"sync"
	"time"

	"exampro-service/internal/domain"
)

// SnapshotStore keeps department snapshots in process with TTL-based expiry.
// Expired entries stay in the map until the next Get or Put purges them.
type SnapshotStore struct {
	clock func() time.Time

	mu        sync.RWMutex
	snapshots map[string]domain.LeaderboardSnapshot
}

func NewSnapshotStore() *SnapshotStore {
	return NewSnapshotStoreWithClock(time.Now)
}

// NewSnapshotStoreWithClock allows deterministic expiry in tests.
func NewSnapshotStoreWithClock(clock func() time.Time) *SnapshotStore {
	return &SnapshotStore{
		clock:     clock,
		snapshots: make(map[string]domain.LeaderboardSnapshot),
	}
}

func (s *SnapshotStore) Get(_ context.Context, departmentID string) (domain.LeaderboardSnapshot, error) {
	now := s.clock()

	s.mu.RLock()
	snapshot, ok := s.snapshots[departmentID]
	s.mu.RUnlock()
	if !ok {
		return domain.LeaderboardSnapshot{}, domain.ErrSnapshotNotFound
	}
	if !snapshot.Valid(now) {
		s.purge(departmentID, snapshot.ExpiresAt)
		return domain.LeaderboardSnapshot{}, domain.ErrSnapshotNotFound
	}
	return cloneSnapshot(snapshot), nil
}

func (s *SnapshotStore) Put(_ context.Context, departmentID string, entries []domain.LeaderboardEntry, ttl time.Duration) (domain.LeaderboardSnapshot, error) {
	computedAt := s.clock()
	snapshot := domain.LeaderboardSnapshot{
		DepartmentID:  departmentID,
		Entries:       append([]domain.LeaderboardEntry{}, entries...),
		TotalStudents: len(entries),
		ComputedAt:    computedAt,
		ExpiresAt:     computedAt.Add(ttl),
	}

	s.mu.Lock()
	s.snapshots[departmentID] = snapshot
	s.mu.Unlock()
	return cloneSnapshot(snapshot), nil
}

func (s *SnapshotStore) Invalidate(_ context.Context, departmentID string) error {
	s.mu.Lock()
	delete(s.snapshots, departmentID)
	s.mu.Unlock()
	return nil
}

func (s *SnapshotStore) Inspect(_ context.Context, departmentID string) (domain.CacheState, error) {
	s.mu.RLock()
	snapshot, ok := s.snapshots[departmentID]
	s.mu.RUnlock()
	if !ok {
		return domain.CacheState{Status: domain.CacheMissing}, nil
	}
	state := domain.CacheState{
		Status:        domain.CacheValid,
		TotalStudents: snapshot.TotalStudents,
		ComputedAt:    snapshot.ComputedAt,
		ExpiresAt:     snapshot.ExpiresAt,
	}
	if !snapshot.Valid(s.clock()) {
		state.Status = domain.CacheExpired
	}
	return state, nil
}

// purge drops an expired snapshot unless a newer one replaced it meanwhile.
func (s *SnapshotStore) purge(departmentID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.snapshots[departmentID]; ok && current.ExpiresAt.Equal(expiresAt) {
		delete(s.snapshots, departmentID)
	}
}

func cloneSnapshot(s domain.LeaderboardSnapshot) domain.LeaderboardSnapshot {
	s.Entries = append([]domain.LeaderboardEntry{}, s.Entries...)
	return s
}
