package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/lms-backend/internal/model"
)

const examColumns = `id, title, course, description,
	COALESCE(to_char(start_date, 'YYYY-MM-DD'), ''),
	COALESCE(to_char(start_time, 'HH24:MI'), ''),
	duration_minutes, sections, batches, max_students, questions,
	status, eligible_students, published_at, schema_version,
	created_at, updated_at`

// PostgresExamRepository keeps the full exam list in the exams table.
type PostgresExamRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresExamRepository creates a new PostgresExamRepository.
func NewPostgresExamRepository(pool *pgxpool.Pool) *PostgresExamRepository {
	return &PostgresExamRepository{pool: pool}
}

// Create inserts a new exam.
func (r *PostgresExamRepository) Create(ctx context.Context, e *model.Exam) error {
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO exams (id, title, course, description, start_date, start_time,
		                    duration_minutes, sections, batches, max_students, questions,
		                    status, eligible_students, published_at, schema_version)
		 VALUES ($1, $2, $3, $4, NULLIF($5, '')::date, NULLIF($6, '')::time,
		         $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING created_at, updated_at`,
		e.ID, e.Title, e.Course, e.Description, e.StartDate, e.StartTime,
		e.DurationMinutes, e.Sections, e.Batches, e.MaxStudents, questions,
		e.Status, e.EligibleStudents, e.PublishedAt, ExamSchemaVersion,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert exam: %w", err)
	}
	return nil
}

// GetByID retrieves an exam by its UUID.
func (r *PostgresExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id)
	e, err := scanExam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

// List returns every exam in creation order.
func (r *PostgresExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+examColumns+` FROM exams ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// Update overwrites every mutable column of an existing exam.
func (r *PostgresExamRepository) Update(ctx context.Context, e *model.Exam) error {
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`UPDATE exams
		 SET title = $2, course = $3, description = $4,
		     start_date = NULLIF($5, '')::date, start_time = NULLIF($6, '')::time,
		     duration_minutes = $7, sections = $8, batches = $9, max_students = $10,
		     questions = $11, status = $12, eligible_students = $13, published_at = $14,
		     schema_version = $15, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		e.ID, e.Title, e.Course, e.Description, e.StartDate, e.StartTime,
		e.DurationMinutes, e.Sections, e.Batches, e.MaxStudents, questions,
		e.Status, e.EligibleStudents, e.PublishedAt, ExamSchemaVersion,
	).Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update exam: %w", err)
	}
	return nil
}

// Delete removes an exam by id.
func (r *PostgresExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanExam(row pgx.Row) (*model.Exam, error) {
	var (
		e         model.Exam
		questions []byte
		version   int
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Course, &e.Description, &e.StartDate, &e.StartTime,
		&e.DurationMinutes, &e.Sections, &e.Batches, &e.MaxStudents, &questions,
		&e.Status, &e.EligibleStudents, &e.PublishedAt, &version,
		&e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if version != ExamSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, version)
	}
	if err := json.Unmarshal(questions, &e.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if e.Sections == nil {
		e.Sections = []string{}
	}
	if e.Batches == nil {
		e.Batches = []string{}
	}
	return &e, nil
}
