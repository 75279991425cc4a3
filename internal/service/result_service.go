package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
)

// ResultService reports persisted attempt results to instructors.
type ResultService struct {
	exams   *ExamService
	results repository.ResultReader
	log     zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(exams *ExamService, results repository.ResultReader, log zerolog.Logger) *ResultService {
	return &ResultService{
		exams:   exams,
		results: results,
		log:     log.With().Str("component", "result_service").Logger(),
	}
}

// Summary loads the exam and its results concurrently and aggregates them.
// Results still waiting in the persistence queue are not included.
func (s *ResultService) Summary(ctx context.Context, examID uuid.UUID) (*model.ResultSummary, error) {
	var (
		exam       *model.Exam
		results    []model.AttemptResult
		examErr    error
		resultsErr error
		wg         sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		exam, examErr = s.exams.Get(ctx, examID)
	}()
	go func() {
		defer wg.Done()
		results, resultsErr = s.results.ListByExam(ctx, examID)
	}()
	wg.Wait()

	if examErr != nil {
		return nil, examErr
	}
	if resultsErr != nil {
		return nil, fmt.Errorf("list results: %w: %w", ErrStorageUnavailable, resultsErr)
	}

	summary := &model.ResultSummary{
		ExamID:   examID,
		MaxScore: exam.MaxScore(),
		Results:  results,
	}
	if summary.Results == nil {
		summary.Results = []model.AttemptResult{}
	}

	total := 0
	for _, res := range results {
		summary.Submissions++
		total += res.Score
		summary.PendingReview += res.PendingReview
		if res.Reason == model.SubmitReasonTimeout {
			summary.Timeouts++
		}
	}
	if summary.Submissions > 0 {
		summary.AverageScore = float64(total) / float64(summary.Submissions)
	}

	return summary, nil
}
