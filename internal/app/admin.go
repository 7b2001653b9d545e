package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"exampro-service/internal/domain"
	"exampro-service/internal/metrics"
)

// DepartmentResult is the outcome of recomputing one department.
type DepartmentResult struct {
	DepartmentID  string `json:"departmentId"`
	Success       bool   `json:"success"`
	TotalStudents int    `json:"totalStudents"`
	Error         string `json:"error,omitempty"`
}

// RefreshReport summarizes a (possibly fan-out) recomputation. Results are
// always complete; Success is true only when every department succeeded.
type RefreshReport struct {
	Success       bool               `json:"success"`
	Message       string             `json:"message"`
	Succeeded     int                `json:"succeeded"`
	Failed        int                `json:"failed"`
	TotalStudents int                `json:"totalStudents"`
	Results       []DepartmentResult `json:"results"`
}

// Err returns ErrPartialFailure when any department failed.
func (r RefreshReport) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d departments failed", domain.ErrPartialFailure, r.Failed, len(r.Results))
}

// AdminResult is the envelope of single-target admin operations.
type AdminResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DepartmentID string `json:"departmentId,omitempty"`
}

// DepartmentStatus describes one department's cache slot.
type DepartmentStatus struct {
	DepartmentID  string             `json:"departmentId"`
	Cache         domain.CacheStatus `json:"cache"`
	TotalStudents int                `json:"totalStudents"`
	ComputedAt    *time.Time         `json:"computedAt,omitempty"`
	ExpiresAt     *time.Time         `json:"expiresAt,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// StatusReport is read-only operational visibility.
type StatusReport struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	Totals      domain.Totals      `json:"totals"`
	CacheTTL    string             `json:"cacheTtl"`
	Departments []DepartmentStatus `json:"departments"`
	CheckedAt   time.Time          `json:"checkedAt"`
}

// RefreshCache recomputes one department, or every known department when
// departmentID is empty, bypassing cache validity. One department's failure
// never stops the others. An error is returned only when the department list
// itself cannot be read.
func (s *Service) RefreshCache(ctx context.Context, departmentID string) (RefreshReport, error) {
	departments := []string{strings.TrimSpace(departmentID)}
	if departments[0] == "" {
		var err error
		departments, err = s.source.Departments(ctx)
		if err != nil {
			err = unavailable("list departments", err)
			return RefreshReport{Message: err.Error(), Results: []DepartmentResult{}}, err
		}
	}

	report := RefreshReport{Results: make([]DepartmentResult, 0, len(departments))}
	for _, dept := range departments {
		result := DepartmentResult{DepartmentID: dept}
		snapshot, err := s.recomputeShared(ctx, dept)
		if err != nil {
			result.Error = err.Error()
			report.Failed++
			s.logger.WarnContext(ctx, "department refresh failed", "department_id", dept, "error", err)
		} else {
			result.Success = true
			result.TotalStudents = snapshot.TotalStudents
			report.Succeeded++
			report.TotalStudents += snapshot.TotalStudents
		}
		report.Results = append(report.Results, result)
	}
	report.Success = report.Failed == 0
	report.Message = fmt.Sprintf("refreshed %d of %d departments (%d students)",
		report.Succeeded, len(departments), report.TotalStudents)
	return report, nil
}

// RecalculateAll recomputes and overwrites every department's snapshot.
func (s *Service) RecalculateAll(ctx context.Context) (RefreshReport, error) {
	report, err := s.RefreshCache(ctx, "")
	if err != nil {
		return report, err
	}
	report.Message = fmt.Sprintf("recalculated %d departments, %d failed, %d students ranked",
		report.Succeeded, report.Failed, report.TotalStudents)
	return report, nil
}

// ResetDepartment drops a department's snapshot regardless of its TTL.
func (s *Service) ResetDepartment(ctx context.Context, departmentID string) (AdminResult, error) {
	if strings.TrimSpace(departmentID) == "" {
		return AdminResult{Message: "department id is required"},
			fmt.Errorf("%w: department id is required", domain.ErrInvalidArgument)
	}
	if err := s.store.Invalidate(ctx, departmentID); err != nil {
		s.recordCacheError("invalidate", departmentID, err)
		return AdminResult{DepartmentID: departmentID, Message: err.Error()}, fmt.Errorf("reset %s: %w", departmentID, err)
	}
	metrics.RecordInvalidation(string(domain.ReasonReset))
	s.hub.publish(domain.LeaderboardUpdate{DepartmentID: departmentID, Reason: domain.ReasonReset, At: s.now()})
	return AdminResult{
		Success:      true,
		Message:      fmt.Sprintf("leaderboard cache for %s reset", departmentID),
		DepartmentID: departmentID,
	}, nil
}

// GetStatus reports data source totals and each department's cache state.
func (s *Service) GetStatus(ctx context.Context) (StatusReport, error) {
	totals, err := s.source.Totals(ctx)
	if err != nil {
		err = unavailable("totals", err)
		return StatusReport{Message: err.Error(), Departments: []DepartmentStatus{}}, err
	}
	departments, err := s.source.Departments(ctx)
	if err != nil {
		err = unavailable("list departments", err)
		return StatusReport{Message: err.Error(), Departments: []DepartmentStatus{}}, err
	}

	report := StatusReport{
		Success:     true,
		Totals:      totals,
		CacheTTL:    s.ttl.String(),
		Departments: make([]DepartmentStatus, 0, len(departments)),
		CheckedAt:   s.now(),
	}
	var valid int
	for _, dept := range departments {
		status := DepartmentStatus{DepartmentID: dept, Cache: domain.CacheMissing}
		state, err := s.store.Inspect(ctx, dept)
		if err != nil {
			s.recordCacheError("inspect", dept, err)
			status.Error = err.Error()
		} else {
			status.Cache = state.Status
			status.TotalStudents = state.TotalStudents
			if state.Status != domain.CacheMissing {
				computedAt, expiresAt := state.ComputedAt, state.ExpiresAt
				status.ComputedAt = &computedAt
				status.ExpiresAt = &expiresAt
			}
			if state.Status == domain.CacheValid {
				valid++
			}
		}
		report.Departments = append(report.Departments, status)
	}
	report.Message = fmt.Sprintf("%d departments, %d with a valid cached leaderboard", len(departments), valid)
	return report, nil
}
