package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
)

// AttemptService starts exam attempts and forwards their results to the
// persistence queue.
type AttemptService struct {
	exams   *ExamService
	queue   repository.ResultQueue
	metrics *MetricsService
	log     zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(exams *ExamService, queue repository.ResultQueue, metrics *MetricsService, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		exams:   exams,
		queue:   queue,
		metrics: metrics,
		log:     log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start opens an attempt on a published exam visible to the student.
// Exams the student cannot see are reported as not found.
func (s *AttemptService) Start(ctx context.Context, examID uuid.UUID, profile *model.StudentProfile) (*Attempt, error) {
	if profile == nil {
		return nil, ErrProfileUnavailable
	}

	exam, err := s.exams.GetPublished(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !IsVisible(exam, profile) {
		return nil, ErrExamNotFound
	}

	attempt := newAttempt(exam, profile.StudentID, s.submit)
	s.log.Debug().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", exam.ID.String()).
		Str("student_id", profile.StudentID.String()).
		Int("remaining", attempt.Remaining()).
		Msg("Attempt started")
	return attempt, nil
}

func (s *AttemptService) submit(ctx context.Context, result *model.AttemptResult) error {
	s.metrics.AttemptSubmitted(result.Reason)

	if err := s.queue.Enqueue(ctx, result); err != nil {
		s.log.Error().Err(err).Str("attempt_id", result.AttemptID.String()).Msg("Failed to enqueue result")
		return fmt.Errorf("enqueue result: %w: %w", ErrStorageUnavailable, err)
	}

	s.log.Info().
		Str("attempt_id", result.AttemptID.String()).
		Str("exam_id", result.ExamID.String()).
		Str("reason", string(result.Reason)).
		Int("score", result.Score).
		Int("max_score", result.MaxScore).
		Msg("Attempt submitted")
	return nil
}
