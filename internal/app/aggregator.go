package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"exampro-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

// DataSource is the read-only view of student profiles and exam attempts.
type DataSource interface {
	Departments(ctx context.Context) ([]string, error)
	StudentsByDepartment(ctx context.Context, departmentID string) ([]domain.StudentProfile, error)
	SubmittedAttempts(ctx context.Context, studentID string) ([]domain.ExamAttemptRecord, error)
	Totals(ctx context.Context) (domain.Totals, error)
}

// maxAttemptReaders bounds concurrent per-student attempt reads.
const maxAttemptReaders = 8

// Aggregator reduces raw attempts to one summary per student.
type Aggregator struct {
	source DataSource
	logger *slog.Logger
}

func NewAggregator(source DataSource, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{source: source, logger: logger}
}

// Aggregate builds summaries for every student of the department with at least one
// eligible attempt. Students whose attempts cannot be read are skipped with a
// warning; only an unreachable store fails the whole aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, departmentID string) ([]domain.StudentSummary, error) {
	if strings.TrimSpace(departmentID) == "" {
		return nil, fmt.Errorf("%w: department id is required", domain.ErrInvalidArgument)
	}

	students, err := a.source.StudentsByDepartment(ctx, departmentID)
	if err != nil {
		return nil, unavailable("list students", err)
	}

	summaries := make([]*domain.StudentSummary, len(students))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxAttemptReaders)
	for i := range students {
		i, student := i, students[i]
		g.Go(func() error {
			attempts, err := a.source.SubmittedAttempts(gctx, student.ID)
			if err != nil {
				if errors.Is(err, domain.ErrDataSourceUnavailable) {
					return err
				}
				a.logger.WarnContext(gctx, "skipping unreadable attempts",
					"department_id", departmentID, "student_id", student.ID, "error", err)
				return nil
			}
			summaries[i] = summarize(student, departmentID, attempts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable("read attempts", err)
	}

	out := make([]domain.StudentSummary, 0, len(summaries))
	for _, s := range summaries {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

// summarize returns nil when the student has no eligible attempt.
func summarize(student domain.StudentProfile, departmentID string, attempts []domain.ExamAttemptRecord) *domain.StudentSummary {
	var count int
	var sum float64
	for _, attempt := range attempts {
		if !attempt.Eligible() {
			continue
		}
		sum += PercentScore(*attempt.TotalScore, *attempt.MaxScore)
		count++
	}
	if count == 0 {
		return nil
	}
	name := student.DisplayName
	if name == "" {
		name = student.ID
	}
	return &domain.StudentSummary{
		StudentID:           student.ID,
		DisplayName:         name,
		DepartmentID:        departmentID,
		TotalPoints:         sum,
		AverageScorePercent: sum / float64(count),
		ExamCount:           count,
	}
}

// PercentScore converts a raw score to a whole percentage.
func PercentScore(total, max float64) float64 {
	return math.Round(total / max * 100)
}

func unavailable(op string, err error) error {
	if errors.Is(err, domain.ErrDataSourceUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrDataSourceUnavailable, err)
}
