package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"exampro-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DataSource reads student profiles and exam attempts stored as JSONB documents.
// Query failures mean the store is unreachable; single undecodable documents
// are skipped with a warning.
type DataSource struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDataSource(pool *pgxpool.Pool, logger *slog.Logger) *DataSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataSource{pool: pool, logger: logger}
}

func (d *DataSource) Departments(ctx context.Context) ([]string, error) {
	rows, err := d.pool.Query(ctx, `SELECT DISTINCT department_id FROM students WHERE department_id <> '' ORDER BY department_id`)
	if err != nil {
		return nil, unavailable("list departments", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var dept string
		if err := rows.Scan(&dept); err != nil {
			return nil, unavailable("scan department", err)
		}
		out = append(out, dept)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list departments", err)
	}
	return out, nil
}

func (d *DataSource) StudentsByDepartment(ctx context.Context, departmentID string) ([]domain.StudentProfile, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, data FROM students WHERE department_id=$1 ORDER BY id`, departmentID)
	if err != nil {
		return nil, unavailable("list students", err)
	}
	defer rows.Close()

	out := make([]domain.StudentProfile, 0)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, unavailable("scan student", err)
		}
		var profile domain.StudentProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			d.logger.WarnContext(ctx, "skipping undecodable student document", "student_id", id, "error", err)
			continue
		}
		profile.ID = id
		profile.DepartmentID = departmentID
		out = append(out, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list students", err)
	}
	return out, nil
}

func (d *DataSource) SubmittedAttempts(ctx context.Context, studentID string) ([]domain.ExamAttemptRecord, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, data FROM exam_attempts WHERE student_id=$1 AND is_submitted`, studentID)
	if err != nil {
		return nil, unavailable("list attempts", err)
	}
	defer rows.Close()

	out := make([]domain.ExamAttemptRecord, 0)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, unavailable("scan attempt", err)
		}
		var attempt domain.ExamAttemptRecord
		if err := json.Unmarshal(raw, &attempt); err != nil {
			d.logger.WarnContext(ctx, "skipping undecodable attempt document",
				"attempt_id", id, "student_id", studentID, "error", err)
			continue
		}
		attempt.AttemptID = id
		attempt.StudentID = studentID
		attempt.IsSubmitted = true
		out = append(out, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list attempts", err)
	}
	return out, nil
}

func (d *DataSource) Totals(ctx context.Context) (domain.Totals, error) {
	var totals domain.Totals
	err := d.pool.QueryRow(ctx, `
SELECT
    (SELECT COUNT(DISTINCT department_id) FROM students WHERE department_id <> ''),
    (SELECT COUNT(*) FROM students),
    (SELECT COUNT(*) FROM exam_attempts),
    (SELECT COUNT(*) FROM exam_attempts WHERE is_submitted)`).
		Scan(&totals.Departments, &totals.Students, &totals.Attempts, &totals.SubmittedAttempts)
	if err != nil {
		return domain.Totals{}, unavailable("totals", err)
	}
	return totals, nil
}

// SaveStudent upserts a profile document.
func (d *DataSource) SaveStudent(ctx context.Context, student domain.StudentProfile) error {
	data, err := json.Marshal(student)
	if err != nil {
		return fmt.Errorf("marshal student: %w", err)
	}
	_, err = d.pool.Exec(ctx, `INSERT INTO students (id, department_id, data) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (id) DO UPDATE SET department_id=EXCLUDED.department_id, data=EXCLUDED.data`,
		student.ID, student.DepartmentID, string(data))
	if err != nil {
		return unavailable("save student", err)
	}
	return nil
}

// SaveAttempt upserts an attempt document.
func (d *DataSource) SaveAttempt(ctx context.Context, attempt domain.ExamAttemptRecord) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = d.pool.Exec(ctx, `INSERT INTO exam_attempts (id, student_id, is_submitted, data) VALUES ($1, $2, $3, $4::jsonb)
ON CONFLICT (id) DO UPDATE SET student_id=EXCLUDED.student_id, is_submitted=EXCLUDED.is_submitted, data=EXCLUDED.data`,
		attempt.AttemptID, attempt.StudentID, attempt.IsSubmitted, string(data))
	if err != nil {
		return unavailable("save attempt", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrDataSourceUnavailable, err)
}
