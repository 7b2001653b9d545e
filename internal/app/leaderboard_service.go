package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"exampro-service/internal/domain"
	"exampro-service/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPageSize is used by callers that omit a page size.
	DefaultPageSize = 50
	// MaxPageSize bounds a single page.
	MaxPageSize = 100
	// DefaultCacheTTL is how long a computed snapshot stays servable.
	DefaultCacheTTL = 10 * time.Minute

	// recomputeTimeout bounds one shared recomputation.
	recomputeTimeout = time.Minute
)

// Service is the leaderboard orchestrator: reads go cache -> remote -> local,
// admin operations recompute or reset department snapshots.
type Service struct {
	source        DataSource
	aggregator    *Aggregator
	store         SnapshotStore
	remote        RemoteComputer
	ttl           time.Duration
	remoteTimeout time.Duration
	now           func() time.Time
	logger        *slog.Logger
	sf            singleflight.Group
	hub           *hub

	readTiers    []tier
	computeTiers []tier
}

// Option configures a Service.
type Option func(*Service)

// WithRemote enables the remote recomputation tier.
func WithRemote(remote RemoteComputer, timeout time.Duration) Option {
	return func(s *Service) {
		s.remote = remote
		s.remoteTimeout = timeout
	}
}

// WithCacheTTL sets the snapshot time-to-live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for fallback snapshots and updates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(source DataSource, store SnapshotStore, opts ...Option) *Service {
	s := &Service{
		source: source,
		store:  store,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
		logger: slog.Default(),
		hub:    newHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.aggregator = NewAggregator(source, s.logger)
	s.readTiers = []tier{cacheTier{s}, localTier{s}}
	if s.remote != nil {
		s.readTiers = []tier{cacheTier{s}, remoteTier{s}, localTier{s}}
	}
	s.computeTiers = []tier{cacheTier{s}, localTier{s}}
	return s
}

// GetLeaderboard returns one page of a department's ranking.
func (s *Service) GetLeaderboard(ctx context.Context, departmentID string, offset, limit int) (domain.LeaderboardPage, error) {
	q, err := newPageQuery(departmentID, offset, limit)
	if err != nil {
		return domain.LeaderboardPage{}, err
	}
	return s.runTiers(ctx, s.readTiers, q)
}

// Compute backs the remote recomputation callable. It never calls out to
// another remote so two instances pointed at each other cannot loop.
func (s *Service) Compute(ctx context.Context, req ComputeRequest) (domain.LeaderboardPage, error) {
	q, err := newPageQuery(req.DepartmentID, req.PageOffset, req.PageSize)
	if err != nil {
		return domain.LeaderboardPage{}, err
	}
	q.forceRefresh = req.ForceRefresh
	return s.runTiers(ctx, s.computeTiers, q)
}

func (s *Service) runTiers(ctx context.Context, tiers []tier, q pageQuery) (domain.LeaderboardPage, error) {
	var lastErr error
	for i, t := range tiers {
		res := t.serve(ctx, q)
		if res.err == nil {
			metrics.RecordTierServed(t.name())
			res.page.Source = t.name()
			return res.page, nil
		}
		lastErr = res.err
		if !res.soft || i == len(tiers)-1 {
			break
		}
		metrics.RecordTierSoftFailure(t.name())
		if t.name() != tierCache {
			s.logger.WarnContext(ctx, "leaderboard tier failed, falling back",
				"tier", t.name(), "department_id", q.departmentID, "error", res.err)
		}
	}
	return domain.LeaderboardPage{}, lastErr
}

// HandleSubmission reacts to a newly submitted attempt by invalidating only
// the student's department snapshot. The next read recomputes it.
func (s *Service) HandleSubmission(ctx context.Context, evt domain.SubmissionEvent) error {
	if strings.TrimSpace(evt.StudentID) == "" {
		return fmt.Errorf("%w: student id is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(evt.DepartmentID) == "" {
		return fmt.Errorf("%w: department id is required", domain.ErrInvalidArgument)
	}
	if err := s.store.Invalidate(ctx, evt.DepartmentID); err != nil {
		s.recordCacheError("invalidate", evt.DepartmentID, err)
		return fmt.Errorf("invalidate %s: %w", evt.DepartmentID, err)
	}
	metrics.RecordInvalidation(string(domain.ReasonInvalidated))
	s.logger.InfoContext(ctx, "department leaderboard invalidated",
		"department_id", evt.DepartmentID, "student_id", evt.StudentID, "attempt_id", evt.AttemptID)
	s.hub.publish(domain.LeaderboardUpdate{DepartmentID: evt.DepartmentID, Reason: domain.ReasonInvalidated, At: s.now()})
	return nil
}

// Subscribe returns a channel of updates for one department. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *Service) Subscribe(_ context.Context, departmentID string) (<-chan domain.LeaderboardUpdate, func(), error) {
	if strings.TrimSpace(departmentID) == "" {
		return nil, nil, fmt.Errorf("%w: department id is required", domain.ErrInvalidArgument)
	}
	ch, cancel := s.hub.subscribe(departmentID)
	return ch, cancel, nil
}

// recomputeShared collapses concurrent in-process recomputations of the same
// department. Separate instances still race; the last Put wins.
// The shared work is detached from the first caller's cancellation; each
// caller still stops waiting when its own ctx is done.
func (s *Service) recomputeShared(ctx context.Context, departmentID string) (domain.LeaderboardSnapshot, error) {
	results := s.sf.DoChan(departmentID, func() (interface{}, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recomputeTimeout)
		defer cancel()
		return s.recompute(workCtx, departmentID)
	})
	select {
	case <-ctx.Done():
		return domain.LeaderboardSnapshot{}, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return domain.LeaderboardSnapshot{}, res.Err
		}
		return res.Val.(domain.LeaderboardSnapshot), nil
	}
}

func (s *Service) recompute(ctx context.Context, departmentID string) (domain.LeaderboardSnapshot, error) {
	start := time.Now()
	summaries, err := s.aggregator.Aggregate(ctx, departmentID)
	if err != nil {
		metrics.RecordRecomputeFailure()
		return domain.LeaderboardSnapshot{}, err
	}
	entries := Rank(summaries)

	snapshot, err := s.store.Put(ctx, departmentID, entries, s.ttl)
	if err != nil {
		// The page is still served; only persistence failed.
		s.recordCacheError("put", departmentID, err)
		computedAt := s.now()
		snapshot = domain.LeaderboardSnapshot{
			DepartmentID:  departmentID,
			Entries:       entries,
			TotalStudents: len(entries),
			ComputedAt:    computedAt,
			ExpiresAt:     computedAt.Add(s.ttl),
		}
	}

	metrics.RecordRecompute(departmentID, len(entries), float64(time.Since(start).Milliseconds()))
	s.logger.DebugContext(ctx, "department leaderboard recomputed",
		"department_id", departmentID, "students", len(entries))
	s.hub.publish(domain.LeaderboardUpdate{DepartmentID: departmentID, Reason: domain.ReasonRecomputed, At: snapshot.ComputedAt})
	return snapshot, nil
}

func (s *Service) recordCacheError(op, departmentID string, err error) {
	metrics.RecordCacheError(op)
	s.logger.Warn("leaderboard cache operation failed",
		"op", op, "department_id", departmentID, "error", err)
}

func newPageQuery(departmentID string, offset, limit int) (pageQuery, error) {
	switch {
	case strings.TrimSpace(departmentID) == "":
		return pageQuery{}, fmt.Errorf("%w: department id is required", domain.ErrInvalidArgument)
	case offset < 0:
		return pageQuery{}, fmt.Errorf("%w: page offset must be >= 0, got %d", domain.ErrInvalidArgument, offset)
	case limit < 1 || limit > MaxPageSize:
		return pageQuery{}, fmt.Errorf("%w: page size must be in [1,%d], got %d", domain.ErrInvalidArgument, MaxPageSize, limit)
	}
	return pageQuery{departmentID: departmentID, offset: offset, limit: limit}, nil
}

// IsInvalidArgument reports whether err should be surfaced as a caller error.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, domain.ErrInvalidArgument)
}
