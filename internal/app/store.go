package app

import (
	"context"
	"time"

	"exampro-service/internal/domain"
)

// SnapshotStore abstracts where department snapshots live (in-memory, Redis).
// Get reports domain.ErrSnapshotNotFound for absent, expired or malformed
// snapshots; Put always overwrites.
type SnapshotStore interface {
	Get(ctx context.Context, departmentID string) (domain.LeaderboardSnapshot, error)
	Put(ctx context.Context, departmentID string, entries []domain.LeaderboardEntry, ttl time.Duration) (domain.LeaderboardSnapshot, error)
	Invalidate(ctx context.Context, departmentID string) error
	Inspect(ctx context.Context, departmentID string) (domain.CacheState, error)
}

// ComputeRequest is the payload of the remote recomputation callable.
type ComputeRequest struct {
	DepartmentID string `json:"departmentId"`
	ForceRefresh bool   `json:"forceRefresh"`
	PageSize     int    `json:"pageSize"`
	PageOffset   int    `json:"pageOffset"`
}

// RemoteComputer runs aggregation and ranking out of process. Implementations
// are expected to persist the snapshot themselves.
type RemoteComputer interface {
	Compute(ctx context.Context, req ComputeRequest) (domain.LeaderboardPage, error)
}
