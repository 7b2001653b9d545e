package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidateSnapshot(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	good := LeaderboardSnapshot{
		DepartmentID: "CS",
		Entries: []LeaderboardEntry{
			{StudentSummary: StudentSummary{StudentID: "a", ExamCount: 2, TotalPoints: 170, AverageScorePercent: 85}, RankPosition: 1},
			{StudentSummary: StudentSummary{StudentID: "b", ExamCount: 1, TotalPoints: 70, AverageScorePercent: 70}, RankPosition: 2},
		},
		TotalStudents: 2,
		ComputedAt:    now,
		ExpiresAt:     now.Add(time.Minute),
	}
	if err := ValidateSnapshot(good); err != nil {
		t.Fatalf("expected valid snapshot, got %v", err)
	}

	empty := LeaderboardSnapshot{DepartmentID: "EE", ComputedAt: now, ExpiresAt: now.Add(time.Minute)}
	if err := ValidateSnapshot(empty); err != nil {
		t.Fatalf("empty department should be valid, got %v", err)
	}

	cases := map[string]func(s *LeaderboardSnapshot){
		"missing department": func(s *LeaderboardSnapshot) { s.DepartmentID = "" },
		"count mismatch":     func(s *LeaderboardSnapshot) { s.TotalStudents = 3 },
		"rank gap":           func(s *LeaderboardSnapshot) { s.Entries[1].RankPosition = 3 },
		"zero exam count":    func(s *LeaderboardSnapshot) { s.Entries[0].ExamCount = 0 },
		"expiry before":      func(s *LeaderboardSnapshot) { s.ExpiresAt = now.Add(-time.Second) },
		"duplicate student":  func(s *LeaderboardSnapshot) { s.Entries[1].StudentID = "a" },
	}
	for name, mutate := range cases {
		s := good
		s.Entries = append([]LeaderboardEntry(nil), good.Entries...)
		mutate(&s)
		if err := ValidateSnapshot(s); !errors.Is(err, ErrMalformedSnapshot) {
			t.Fatalf("%s: expected malformed error, got %v", name, err)
		}
	}
}

func TestAttemptEligibility(t *testing.T) {
	score, max, zero := 8.0, 10.0, 0.0
	cases := []struct {
		name    string
		attempt ExamAttemptRecord
		want    bool
	}{
		{"submitted", ExamAttemptRecord{IsSubmitted: true, TotalScore: &score, MaxScore: &max}, true},
		{"not submitted", ExamAttemptRecord{IsSubmitted: false, TotalScore: &score, MaxScore: &max}, false},
		{"zero max", ExamAttemptRecord{IsSubmitted: true, TotalScore: &score, MaxScore: &zero}, false},
		{"missing total", ExamAttemptRecord{IsSubmitted: true, MaxScore: &max}, false},
		{"missing max", ExamAttemptRecord{IsSubmitted: true, TotalScore: &score}, false},
	}
	for _, tc := range cases {
		if got := tc.attempt.Eligible(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
