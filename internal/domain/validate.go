package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var snapshotValidator = validator.New()

// ValidateSnapshot checks a snapshot read back from a store before it is served.
// Besides the struct tags it enforces the ranking invariants: one entry per
// student, totalStudents == len(entries) and positions 1..n in order.
func ValidateSnapshot(s LeaderboardSnapshot) error {
	if err := snapshotValidator.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if s.TotalStudents != len(s.Entries) {
		return fmt.Errorf("%w: totalStudents %d does not match %d entries", ErrMalformedSnapshot, s.TotalStudents, len(s.Entries))
	}
	seen := make(map[string]struct{}, len(s.Entries))
	for i, e := range s.Entries {
		if e.RankPosition != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrMalformedSnapshot, i, e.RankPosition)
		}
		if _, dup := seen[e.StudentID]; dup {
			return fmt.Errorf("%w: duplicate student %q", ErrMalformedSnapshot, e.StudentID)
		}
		seen[e.StudentID] = struct{}{}
	}
	return nil
}
