package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"exampro-service/internal/app"
	"exampro-service/internal/domain"
	"exampro-service/internal/infra/memory"
)

func score(v float64) *float64 { return &v }

func submitted(id, studentID string, total, max float64) domain.ExamAttemptRecord {
	return domain.ExamAttemptRecord{
		AttemptID:   id,
		ExamID:      "exam-" + id,
		StudentID:   studentID,
		IsSubmitted: true,
		TotalScore:  score(total),
		MaxScore:    score(max),
	}
}

// csDepartment seeds Alice (90/100, 80/100) and Bob (70/100 plus an unsubmitted attempt).
func csDepartment() *memory.DataSource {
	source := memory.NewDataSource()
	source.AddStudent(domain.StudentProfile{ID: "alice", DisplayName: "Alice", DepartmentID: "CS"})
	source.AddStudent(domain.StudentProfile{ID: "bob", DisplayName: "Bob", DepartmentID: "CS"})
	source.AddAttempt(submitted("a1", "alice", 90, 100))
	source.AddAttempt(submitted("a2", "alice", 80, 100))
	source.AddAttempt(submitted("b1", "bob", 70, 100))
	source.AddAttempt(domain.ExamAttemptRecord{AttemptID: "b2", ExamID: "exam-b2", StudentID: "bob"})
	return source
}

// crowdedDepartment seeds n students with distinct single-exam scores.
func crowdedDepartment(dept string, n int) *memory.DataSource {
	source := memory.NewDataSource()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("s%03d", i)
		source.AddStudent(domain.StudentProfile{ID: id, DepartmentID: dept})
		source.AddAttempt(submitted("att-"+id, id, float64(1000-i), 1000))
	}
	return source
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// failingRemote always reports the remote tier as unavailable.
type failingRemote struct {
	mu    sync.Mutex
	calls int
}

func (r *failingRemote) Compute(context.Context, app.ComputeRequest) (domain.LeaderboardPage, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return domain.LeaderboardPage{}, fmt.Errorf("%w: connection refused", domain.ErrRemoteUnavailable)
}

func (r *failingRemote) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// brokenStore accepts reads as misses and fails every write.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Get(context.Context, string) (domain.LeaderboardSnapshot, error) {
	return domain.LeaderboardSnapshot{}, fmt.Errorf("%w: %v", domain.ErrCacheError, errStoreDown)
}

func (brokenStore) Put(context.Context, string, []domain.LeaderboardEntry, time.Duration) (domain.LeaderboardSnapshot, error) {
	return domain.LeaderboardSnapshot{}, fmt.Errorf("%w: %v", domain.ErrCacheError, errStoreDown)
}

func (brokenStore) Invalidate(context.Context, string) error {
	return fmt.Errorf("%w: %v", domain.ErrCacheError, errStoreDown)
}

func (brokenStore) Inspect(context.Context, string) (domain.CacheState, error) {
	return domain.CacheState{}, fmt.Errorf("%w: %v", domain.ErrCacheError, errStoreDown)
}

// flakySource wraps a DataSource and fails selected reads.
type flakySource struct {
	app.DataSource
	downDepartments map[string]bool
	unreadable      map[string]error
	totalsDown      bool
}

func (f *flakySource) StudentsByDepartment(ctx context.Context, dept string) ([]domain.StudentProfile, error) {
	if f.downDepartments[dept] {
		return nil, errors.New("connection reset by peer")
	}
	return f.DataSource.StudentsByDepartment(ctx, dept)
}

func (f *flakySource) SubmittedAttempts(ctx context.Context, studentID string) ([]domain.ExamAttemptRecord, error) {
	if err, ok := f.unreadable[studentID]; ok {
		return nil, err
	}
	return f.DataSource.SubmittedAttempts(ctx, studentID)
}

func (f *flakySource) Totals(ctx context.Context) (domain.Totals, error) {
	if f.totalsDown {
		return domain.Totals{}, errors.New("connection reset by peer")
	}
	return f.DataSource.Totals(ctx)
}
