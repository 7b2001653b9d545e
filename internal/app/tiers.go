package app

import (
	"context"
	"errors"
	"fmt"

	"exampro-service/internal/domain"
	"exampro-service/internal/metrics"
)

const (
	tierCache  = "cache"
	tierRemote = "remote"
	tierLocal  = "local"
)

// pageQuery is a validated leaderboard read.
type pageQuery struct {
	departmentID string
	offset       int
	limit        int
	forceRefresh bool
}

// tierResult tags a tier outcome. A soft failure hands over to the next tier.
type tierResult struct {
	page domain.LeaderboardPage
	err  error
	soft bool
}

func served(page domain.LeaderboardPage) tierResult { return tierResult{page: page} }

func softFailure(err error) tierResult { return tierResult{err: err, soft: true} }

func hardFailure(err error) tierResult { return tierResult{err: err} }

// tier is one step of the read fallback chain.
type tier interface {
	name() string
	serve(ctx context.Context, q pageQuery) tierResult
}

// cacheTier serves a page from a valid snapshot.
type cacheTier struct {
	svc *Service
}

func (t cacheTier) name() string { return tierCache }

func (t cacheTier) serve(ctx context.Context, q pageQuery) tierResult {
	if q.forceRefresh {
		return softFailure(fmt.Errorf("refresh forced: %w", domain.ErrSnapshotNotFound))
	}
	snapshot, err := t.svc.store.Get(ctx, q.departmentID)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			t.svc.recordCacheError("get", q.departmentID, err)
		}
		metrics.RecordCacheMiss()
		return softFailure(err)
	}
	metrics.RecordCacheHit()
	return served(pageOf(snapshot, q.offset, q.limit))
}

// remoteTier delegates aggregation to the remote recomputation service.
type remoteTier struct {
	svc *Service
}

func (t remoteTier) name() string { return tierRemote }

func (t remoteTier) serve(ctx context.Context, q pageQuery) tierResult {
	if t.svc.remote == nil {
		return softFailure(fmt.Errorf("%w: not configured", domain.ErrRemoteUnavailable))
	}
	callCtx := ctx
	if t.svc.remoteTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, t.svc.remoteTimeout)
		defer cancel()
	}
	page, err := t.svc.remote.Compute(callCtx, ComputeRequest{
		DepartmentID: q.departmentID,
		ForceRefresh: q.forceRefresh,
		PageSize:     q.limit,
		PageOffset:   q.offset,
	})
	if err != nil {
		return softFailure(err)
	}
	if page.DepartmentID == "" {
		page.DepartmentID = q.departmentID
	}
	return served(withPaging(page, q.offset, q.limit))
}

// localTier aggregates and ranks in-process and writes the snapshot back.
type localTier struct {
	svc *Service
}

func (t localTier) name() string { return tierLocal }

func (t localTier) serve(ctx context.Context, q pageQuery) tierResult {
	snapshot, err := t.svc.recomputeShared(ctx, q.departmentID)
	if err != nil {
		return hardFailure(err)
	}
	return served(pageOf(snapshot, q.offset, q.limit))
}

// pageOf slices one page out of a full snapshot.
func pageOf(snapshot domain.LeaderboardSnapshot, offset, limit int) domain.LeaderboardPage {
	total := len(snapshot.Entries)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	entries := make([]domain.LeaderboardEntry, end-start)
	copy(entries, snapshot.Entries[start:end])
	return withPaging(domain.LeaderboardPage{
		DepartmentID:  snapshot.DepartmentID,
		Entries:       entries,
		TotalStudents: total,
		LastUpdated:   snapshot.ComputedAt,
	}, offset, limit)
}

func withPaging(page domain.LeaderboardPage, offset, limit int) domain.LeaderboardPage {
	if page.Entries == nil {
		page.Entries = []domain.LeaderboardEntry{}
	}
	page.HasMore = offset+limit < page.TotalStudents
	page.NextCursor = nil
	if page.HasMore {
		next := offset + limit
		page.NextCursor = &next
	}
	return page
}
