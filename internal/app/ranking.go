package app

import (
	"sort"

	"exampro-service/internal/domain"
)

// Rank orders summaries by total points, then average, then student id, and
// assigns positional ranks starting at 1. Ties never share a rank.
func Rank(summaries []domain.StudentSummary) []domain.LeaderboardEntry {
	sorted := append([]domain.StudentSummary(nil), summaries...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.AverageScorePercent != b.AverageScorePercent {
			return a.AverageScorePercent > b.AverageScorePercent
		}
		return a.StudentID < b.StudentID
	})

	entries := make([]domain.LeaderboardEntry, len(sorted))
	for i, s := range sorted {
		entries[i] = domain.LeaderboardEntry{StudentSummary: s, RankPosition: i + 1}
	}
	return entries
}
