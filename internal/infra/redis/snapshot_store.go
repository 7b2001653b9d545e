package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"exampro-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// deleteIfUnchanged removes a key only while it still holds the value that was
// read, so a snapshot written after the read survives the cleanup.
var deleteIfUnchanged = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// retentionFactor keeps expired snapshots around long enough for status
// inspection; Get treats them as absent and deletes them.
const retentionFactor = 2

// SnapshotStore stores one JSON snapshot per department:
//
//	SET leaderboard:snapshot:{departmentID} {json} EX ttl*retentionFactor
//
// Validity is decided by the expiresAt field inside the document, not by the key TTL.
type SnapshotStore struct {
	client *redis.Client
	clock  func() time.Time
	logger *slog.Logger
}

func NewSnapshotStore(client *redis.Client, logger *slog.Logger) *SnapshotStore {
	return NewSnapshotStoreWithClock(client, logger, time.Now)
}

// NewSnapshotStoreWithClock allows deterministic expiry in tests.
func NewSnapshotStoreWithClock(client *redis.Client, logger *slog.Logger, clock func() time.Time) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{client: client, clock: clock, logger: logger}
}

func (s *SnapshotStore) Get(ctx context.Context, departmentID string) (domain.LeaderboardSnapshot, error) {
	snapshot, data, err := s.load(ctx, departmentID)
	if err != nil {
		return domain.LeaderboardSnapshot{}, err
	}
	if !snapshot.Valid(s.clock()) {
		_ = s.purge(ctx, s.key(departmentID), data)
		return domain.LeaderboardSnapshot{}, domain.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (s *SnapshotStore) Put(ctx context.Context, departmentID string, entries []domain.LeaderboardEntry, ttl time.Duration) (domain.LeaderboardSnapshot, error) {
	computedAt := s.clock().UTC()
	snapshot := domain.LeaderboardSnapshot{
		DepartmentID:  departmentID,
		Entries:       append([]domain.LeaderboardEntry{}, entries...),
		TotalStudents: len(entries),
		ComputedAt:    computedAt,
		ExpiresAt:     computedAt.Add(ttl),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return domain.LeaderboardSnapshot{}, fmt.Errorf("%w: encode snapshot: %v", domain.ErrCacheError, err)
	}
	if err := s.client.Set(ctx, s.key(departmentID), data, ttl*retentionFactor).Err(); err != nil {
		return domain.LeaderboardSnapshot{}, fmt.Errorf("%w: set snapshot: %v", domain.ErrCacheError, err)
	}
	return snapshot, nil
}

func (s *SnapshotStore) Invalidate(ctx context.Context, departmentID string) error {
	if err := s.client.Del(ctx, s.key(departmentID)).Err(); err != nil {
		return fmt.Errorf("%w: delete snapshot: %v", domain.ErrCacheError, err)
	}
	return nil
}

func (s *SnapshotStore) Inspect(ctx context.Context, departmentID string) (domain.CacheState, error) {
	snapshot, _, err := s.load(ctx, departmentID)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return domain.CacheState{Status: domain.CacheMissing}, nil
	}
	if err != nil {
		return domain.CacheState{}, err
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

// load reads and validates a stored snapshot. Malformed documents are deleted
// and reported as a miss so they are rebuilt instead of served.
func (s *SnapshotStore) load(ctx context.Context, departmentID string) (domain.LeaderboardSnapshot, []byte, error) {
	key := s.key(departmentID)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.LeaderboardSnapshot{}, nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.LeaderboardSnapshot{}, nil, fmt.Errorf("%w: get snapshot: %v", domain.ErrCacheError, err)
	}

	var snapshot domain.LeaderboardSnapshot
	err = json.Unmarshal(data, &snapshot)
	if err == nil {
		err = domain.ValidateSnapshot(snapshot)
	}
	if err == nil && snapshot.DepartmentID != departmentID {
		err = fmt.Errorf("%w: stored under %q but names %q", domain.ErrMalformedSnapshot, departmentID, snapshot.DepartmentID)
	}
	if err != nil {
		s.discard(ctx, key, departmentID, data, err)
		return domain.LeaderboardSnapshot{}, nil, fmt.Errorf("%w: %w", domain.ErrSnapshotNotFound, domain.ErrMalformedSnapshot)
	}
	return snapshot, data, nil
}

func (s *SnapshotStore) discard(ctx context.Context, key, departmentID string, data []byte, cause error) {
	s.logger.WarnContext(ctx, "discarding malformed leaderboard snapshot",
		"department_id", departmentID, "error", cause)
	_ = s.purge(ctx, key, data)
}

// purge deletes key if it still holds data. A concurrent Put wins.
func (s *SnapshotStore) purge(ctx context.Context, key string, data []byte) error {
	return deleteIfUnchanged.Run(ctx, s.client, []string{key}, data).Err()
}

func (s *SnapshotStore) key(departmentID string) string {
	return "leaderboard:snapshot:" + departmentID
}
