package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"exampro-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// DataSource is an in-memory profile/attempt store (useful for tests/demos).
type DataSource struct {
	mu       sync.RWMutex
	students map[string]domain.StudentProfile
	attempts map[string][]domain.ExamAttemptRecord
}

func NewDataSource() *DataSource {
	return &DataSource{
		students: make(map[string]domain.StudentProfile),
		attempts: make(map[string][]domain.ExamAttemptRecord),
	}
}

// Fixture is the YAML seed format for the in-memory data source.
type Fixture struct {
	Students []domain.StudentProfile    `yaml:"students"`
	Attempts []domain.ExamAttemptRecord `yaml:"attempts"`
}

// LoadFixture reads a YAML seed file into a new DataSource.
func LoadFixture(path string) (*DataSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	ds := NewDataSource()
	for _, student := range fixture.Students {
		ds.AddStudent(student)
	}
	for _, attempt := range fixture.Attempts {
		ds.AddAttempt(attempt)
	}
	return ds, nil
}

// AddStudent registers or replaces a profile.
func (d *DataSource) AddStudent(student domain.StudentProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.students[student.ID] = student
}

// AddAttempt appends an attempt record for its student.
func (d *DataSource) AddAttempt(attempt domain.ExamAttemptRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts[attempt.StudentID] = append(d.attempts[attempt.StudentID], attempt)
}

// Student looks up a single profile.
func (d *DataSource) Student(_ context.Context, studentID string) (domain.StudentProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	student, ok := d.students[studentID]
	if !ok {
		return domain.StudentProfile{}, domain.ErrStudentNotFound
	}
	return student, nil
}

func (d *DataSource) Departments(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, student := range d.students {
		if student.DepartmentID != "" {
			seen[student.DepartmentID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for dept := range seen {
		out = append(out, dept)
	}
	sort.Strings(out)
	return out, nil
}

func (d *DataSource) StudentsByDepartment(_ context.Context, departmentID string) ([]domain.StudentProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.StudentProfile, 0)
	for _, student := range d.students {
		if student.DepartmentID == departmentID {
			out = append(out, student)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *DataSource) SubmittedAttempts(_ context.Context, studentID string) ([]domain.ExamAttemptRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.ExamAttemptRecord, 0, len(d.attempts[studentID]))
	for _, attempt := range d.attempts[studentID] {
		if attempt.IsSubmitted {
			out = append(out, attempt)
		}
	}
	return out, nil
}

func (d *DataSource) Totals(ctx context.Context) (domain.Totals, error) {
	departments, _ := d.Departments(ctx)

	d.mu.RLock()
	defer d.mu.RUnlock()
	totals := domain.Totals{Departments: len(departments), Students: len(d.students)}
	for _, attempts := range d.attempts {
		totals.Attempts += len(attempts)
		for _, attempt := range attempts {
			if attempt.IsSubmitted {
				totals.SubmittedAttempts++
			}
		}
	}
	return totals, nil
}
