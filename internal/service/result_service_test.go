package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSummary(t *testing.T) {
	env := newTestEnv(t)
	results := repository.NewMemoryResultRepository()
	svc := NewResultService(env.svc, results, zerolog.Nop())
	ctx := context.Background()

	exam, err := env.svc.Create(ctx, readyDraft("A"))
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Submissions)
	assert.NotNil(t, summary.Results)
	assert.Equal(t, 5, summary.MaxScore)

	now := time.Now().UTC()
	require.NoError(t, results.InsertBatch(ctx, []*model.AttemptResult{
		{AttemptID: uuid.New(), ExamID: exam.ID, Score: 2, PendingReview: 1, Reason: model.SubmitReasonManual, SubmittedAt: now},
		{AttemptID: uuid.New(), ExamID: exam.ID, Score: 1, Reason: model.SubmitReasonTimeout, SubmittedAt: now.Add(time.Second)},
		{AttemptID: uuid.New(), ExamID: uuid.New(), Score: 5, SubmittedAt: now},
	}))

	summary, err = svc.Summary(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Submissions)
	assert.Equal(t, 1, summary.Timeouts)
	assert.Equal(t, 1, summary.PendingReview)
	assert.InDelta(t, 1.5, summary.AverageScore, 0.001)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, model.SubmitReasonManual, summary.Results[0].Reason)

	_, err = svc.Summary(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrExamNotFound)
}
