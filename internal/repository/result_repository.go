package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/lms-backend/internal/model"
)

// ResultStore persists graded attempts. Writing an attempt twice keeps the
// first row.
type ResultStore interface {
	InsertBatch(ctx context.Context, results []*model.AttemptResult) error
	Insert(ctx context.Context, result *model.AttemptResult) error
}

// ResultReader lists persisted results of an exam in submission order.
type ResultReader interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.AttemptResult, error)
}

// PostgresResultRepository writes to the exam_results table.
type PostgresResultRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresResultRepository creates a new PostgresResultRepository.
func NewPostgresResultRepository(pool *pgxpool.Pool) *PostgresResultRepository {
	return &PostgresResultRepository{pool: pool}
}

// InsertBatch writes all results in one statement using UNNEST.
func (r *PostgresResultRepository) InsertBatch(ctx context.Context, results []*model.AttemptResult) error {
	n := len(results)
	if n == 0 {
		return nil
	}

	attemptIDs := make([]uuid.UUID, n)
	examIDs := make([]uuid.UUID, n)
	studentIDs := make([]uuid.UUID, n)
	answers := make([]string, n)
	scores := make([]int32, n)
	maxScores := make([]int32, n)
	pending := make([]int32, n)
	reasons := make([]string, n)
	submittedAts := make([]time.Time, n)

	for i, res := range results {
		raw, err := json.Marshal(res.Answers)
		if err != nil {
			return fmt.Errorf("marshal answers: %w", err)
		}
		attemptIDs[i] = res.AttemptID
		examIDs[i] = res.ExamID
		studentIDs[i] = res.StudentID
		answers[i] = string(raw)
		scores[i] = int32(res.Score)
		maxScores[i] = int32(res.MaxScore)
		pending[i] = int32(res.PendingReview)
		reasons[i] = string(res.Reason)
		submittedAts[i] = res.SubmittedAt
	}

	query := `
		INSERT INTO exam_results
			(attempt_id, exam_id, student_id, answers, score, max_score, pending_review, reason, submitted_at)
		SELECT u.attempt_id, u.exam_id, u.student_id, u.answers::jsonb,
		       u.score, u.max_score, u.pending_review, u.reason, u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::uuid[],
			$4::text[],
			$5::int[],
			$6::int[],
			$7::int[],
			$8::text[],
			$9::timestamptz[]
		) AS u (attempt_id, exam_id, student_id, answers, score, max_score, pending_review, reason, submitted_at)
		ON CONFLICT (attempt_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		attemptIDs, examIDs, studentIDs, answers, scores, maxScores, pending, reasons, submittedAts)
	if err != nil {
		return fmt.Errorf("insert results: %w", err)
	}
	return nil
}

func (r *PostgresResultRepository) Insert(ctx context.Context, res *model.AttemptResult) error {
	raw, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_results
			(attempt_id, exam_id, student_id, answers, score, max_score, pending_review, reason, submitted_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)
		 ON CONFLICT (attempt_id) DO NOTHING`,
		res.AttemptID, res.ExamID, res.StudentID, string(raw),
		res.Score, res.MaxScore, res.PendingReview, string(res.Reason), res.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *PostgresResultRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.AttemptResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, exam_id, student_id, answers, score, max_score, pending_review, reason, submitted_at
		 FROM exam_results
		 WHERE exam_id = $1
		 ORDER BY submitted_at, attempt_id`,
		examID,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []model.AttemptResult
	for rows.Next() {
		var (
			res    model.AttemptResult
			raw    []byte
			reason string
		)
		if err := rows.Scan(&res.AttemptID, &res.ExamID, &res.StudentID, &raw,
			&res.Score, &res.MaxScore, &res.PendingReview, &reason, &res.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(raw, &res.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		res.Reason = model.SubmitReason(reason)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
