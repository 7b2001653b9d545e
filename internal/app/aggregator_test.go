package app_test

import (
	"context"
	"errors"
	"testing"

	"exampro-service/internal/app"
	"exampro-service/internal/domain"
)

func TestAggregateCountsOnlyEligibleAttempts(t *testing.T) {
	source := csDepartment()
	source.AddAttempt(domain.ExamAttemptRecord{
		AttemptID: "a3", StudentID: "alice", IsSubmitted: true, TotalScore: score(10), MaxScore: score(0),
	})
	source.AddAttempt(domain.ExamAttemptRecord{AttemptID: "a4", StudentID: "alice", IsSubmitted: true})
	source.AddStudent(domain.StudentProfile{ID: "carol", DepartmentID: "CS"})
	source.AddAttempt(domain.ExamAttemptRecord{AttemptID: "c1", StudentID: "carol", TotalScore: score(100), MaxScore: score(100)})

	summaries, err := app.NewAggregator(source, nil).Aggregate(context.Background(), "CS")
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected alice and bob only, got %+v", summaries)
	}
	byID := map[string]domain.StudentSummary{}
	for _, s := range summaries {
		byID[s.StudentID] = s
	}
	alice := byID["alice"]
	if alice.ExamCount != 2 || alice.AverageScorePercent != 85 || alice.TotalPoints != 170 {
		t.Fatalf("unexpected alice summary %+v", alice)
	}
	bob := byID["bob"]
	if bob.ExamCount != 1 || bob.AverageScorePercent != 70 || bob.TotalPoints != 70 {
		t.Fatalf("unexpected bob summary %+v", bob)
	}
	if alice.DisplayName != "Alice" || alice.DepartmentID != "CS" {
		t.Fatalf("profile fields not carried: %+v", alice)
	}
}

func TestPercentScoreRoundsPerExam(t *testing.T) {
	if got := app.PercentScore(2, 3); got != 67 {
		t.Fatalf("expected 67, got %v", got)
	}
	if got := app.PercentScore(17, 20); got != 85 {
		t.Fatalf("expected 85, got %v", got)
	}
}

func TestAggregateRequiresDepartment(t *testing.T) {
	_, err := app.NewAggregator(csDepartment(), nil).Aggregate(context.Background(), " ")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestAggregateSkipsUnreadableStudent(t *testing.T) {
	source := &flakySource{
		DataSource: csDepartment(),
		unreadable: map[string]error{"bob": errors.New("undecodable attempt")},
	}
	summaries, err := app.NewAggregator(source, nil).Aggregate(context.Background(), "CS")
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].StudentID != "alice" {
		t.Fatalf("expected only alice, got %+v", summaries)
	}
}

func TestAggregateFailsWhenSourceUnavailable(t *testing.T) {
	down := &flakySource{DataSource: csDepartment(), downDepartments: map[string]bool{"CS": true}}
	if _, err := app.NewAggregator(down, nil).Aggregate(context.Background(), "CS"); !errors.Is(err, domain.ErrDataSourceUnavailable) {
		t.Fatalf("expected data source unavailable, got %v", err)
	}

	attemptsDown := &flakySource{
		DataSource: csDepartment(),
		unreadable: map[string]error{"alice": domain.ErrDataSourceUnavailable},
	}
	if _, err := app.NewAggregator(attemptsDown, nil).Aggregate(context.Background(), "CS"); !errors.Is(err, domain.ErrDataSourceUnavailable) {
		t.Fatalf("expected data source unavailable, got %v", err)
	}
}

func TestAggregateUnknownDepartmentIsEmpty(t *testing.T) {
	summaries, err := app.NewAggregator(csDepartment(), nil).Aggregate(context.Background(), "MATH")
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected no summaries, got %+v", summaries)
	}
}
