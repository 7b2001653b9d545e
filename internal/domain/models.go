package domain

import "time"

// StudentProfile is the subset of a user profile the ranking reads.
type StudentProfile struct {
	ID           string `json:"id" yaml:"id"`
	DisplayName  string `json:"displayName" yaml:"displayName"`
	DepartmentID string `json:"departmentId" yaml:"departmentId"`
}

// ExamAttemptRecord is one (student, exam) attempt. Scores are only set once submitted.
type ExamAttemptRecord struct {
	AttemptID   string     `json:"attemptId" yaml:"attemptId"`
	ExamID      string     `json:"examId" yaml:"examId"`
	StudentID   string     `json:"studentId" yaml:"studentId"`
	IsSubmitted bool       `json:"isSubmitted" yaml:"isSubmitted"`
	TotalScore  *float64   `json:"totalScore" yaml:"totalScore"`
	MaxScore    *float64   `json:"maxScore" yaml:"maxScore"`
	SubmittedAt *time.Time `json:"submittedAt" yaml:"submittedAt"`
}

// Eligible reports whether the attempt counts towards a student's standing.
func (a ExamAttemptRecord) Eligible() bool {
	return a.IsSubmitted && a.TotalScore != nil && a.MaxScore != nil && *a.MaxScore > 0
}

// StudentSummary aggregates a student's eligible attempts.
type StudentSummary struct {
	StudentID           string  `json:"studentId" validate:"required"`
	DisplayName         string  `json:"displayName"`
	DepartmentID        string  `json:"departmentId"`
	TotalPoints         float64 `json:"totalPoints"`
	AverageScorePercent float64 `json:"averageScorePercent" validate:"gte=0"`
	ExamCount           int     `json:"examCount" validate:"gte=1"`
}

// LeaderboardEntry is a StudentSummary with its position in the department.
type LeaderboardEntry struct {
	StudentSummary
	RankPosition int `json:"rankPosition" validate:"gte=1"`
}

// LeaderboardSnapshot is the cached ranking of one department.
type LeaderboardSnapshot struct {
	DepartmentID  string             `json:"departmentId" validate:"required"`
	Entries       []LeaderboardEntry `json:"entries" validate:"dive"`
	TotalStudents int                `json:"totalStudents" validate:"gte=0"`
	ComputedAt    time.Time          `json:"computedAt" validate:"required"`
	ExpiresAt     time.Time          `json:"expiresAt" validate:"required,gtfield=ComputedAt"`
}

// Valid reports whether the snapshot may still be served at now.
func (s LeaderboardSnapshot) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// LeaderboardPage is what readers receive.
type LeaderboardPage struct {
	DepartmentID  string             `json:"departmentId"`
	Entries       []LeaderboardEntry `json:"entries"`
	TotalStudents int                `json:"totalStudents"`
	LastUpdated   time.Time          `json:"lastUpdated"`
	HasMore       bool               `json:"hasMore"`
	NextCursor    *int               `json:"nextCursor,omitempty"`
	Source        string             `json:"source,omitempty"`
}

// SubmissionEvent signals that an attempt transitioned to submitted.
type SubmissionEvent struct {
	StudentID    string    `json:"studentId"`
	DepartmentID string    `json:"departmentId"`
	AttemptID    string    `json:"attemptId,omitempty"`
	ExamID       string    `json:"examId,omitempty"`
	SubmittedAt  time.Time `json:"submittedAt,omitempty"`
}

// UpdateReason explains why a department's standings changed.
type UpdateReason string

const (
	ReasonInvalidated UpdateReason = "invalidated"
	ReasonRecomputed  UpdateReason = "recomputed"
	ReasonReset       UpdateReason = "reset"
)

// LeaderboardUpdate is pushed to subscribers of a department.
type LeaderboardUpdate struct {
	DepartmentID string       `json:"departmentId"`
	Reason       UpdateReason `json:"reason"`
	At           time.Time    `json:"at"`
}

// CacheStatus describes a department's cache slot.
type CacheStatus string

const (
	CacheMissing CacheStatus = "missing"
	CacheValid   CacheStatus = "valid"
	CacheExpired CacheStatus = "expired"
)

// CacheState is returned by cache inspection; timestamps are zero when missing.
type CacheState struct {
	Status        CacheStatus `json:"status"`
	TotalStudents int         `json:"totalStudents"`
	ComputedAt    time.Time   `json:"computedAt,omitempty"`
	ExpiresAt     time.Time   `json:"expiresAt,omitempty"`
}

// Totals counts what the data source holds.
type Totals struct {
	Departments       int `json:"departments"`
	Students          int `json:"students"`
	Attempts          int `json:"attempts"`
	SubmittedAttempts int `json:"submittedAttempts"`
}
