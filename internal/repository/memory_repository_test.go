package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExamRepositoryIsolatesCopies(t *testing.T) {
	repo := NewMemoryExamRepository()
	ctx := context.Background()

	exam := &model.Exam{ID: uuid.New(), Title: "One", Sections: []string{"A"}}
	require.NoError(t, repo.Create(ctx, exam))
	assert.ErrorIs(t, repo.Create(ctx, exam), ErrConflict)

	exam.Sections[0] = "mutated"
	got, err := repo.GetByID(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got.Sections)

	got.Title = "Two"
	require.NoError(t, repo.Update(ctx, got))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Two", list[0].Title)

	require.NoError(t, repo.Delete(ctx, exam.ID))
	assert.ErrorIs(t, repo.Delete(ctx, exam.ID), ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, got), ErrNotFound)
	_, err = repo.GetByID(ctx, exam.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPublishedRepositoryOrder(t *testing.T) {
	repo := NewMemoryPublishedRepository()
	ctx := context.Background()

	a := &model.Exam{ID: uuid.New(), Title: "a"}
	b := &model.Exam{ID: uuid.New(), Title: "b"}
	require.NoError(t, repo.Upsert(ctx, a))
	require.NoError(t, repo.Upsert(ctx, b))

	a.Title = "a2"
	require.NoError(t, repo.Upsert(ctx, a))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a2", list[0].Title)
	assert.Equal(t, b.ID, list[1].ID)

	require.NoError(t, repo.Remove(ctx, a.ID))
	require.NoError(t, repo.Remove(ctx, a.ID))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Replace(ctx, []model.Exam{*a, *a, *b}))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestMemoryAccountRepository(t *testing.T) {
	repo := NewMemoryAccountRepository(
		model.Account{Email: "A@example.com", Role: model.RoleStudent, Section: "A", Batch: "2026"},
		model.Account{Email: "b@example.com", Role: model.RoleStudent, Section: "B", Batch: "2026"},
		model.Account{Email: "t@example.com", Role: model.RoleInstructor},
	)
	ctx := context.Background()

	got, err := repo.GetByEmail(ctx, "a@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Section)

	err = repo.Create(ctx, &model.Account{Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	n, err := repo.CountStudents(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.CountStudents(ctx, []string{"A"}, []string{"2026"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.CountStudents(ctx, nil, []string{"2025"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryResultQueue(t *testing.T) {
	q := NewMemoryResultQueue(2)
	ctx := context.Background()

	res, err := q.Pop(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, res)

	first := &model.AttemptResult{AttemptID: uuid.New()}
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Requeue(ctx, &model.AttemptResult{AttemptID: uuid.New()}))
	assert.Equal(t, 2, q.Len())

	res, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.AttemptID, res.AttemptID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.NoError(t, q.Enqueue(ctx, first))
	assert.ErrorIs(t, q.Enqueue(cancelled, first), context.Canceled)
}

func TestMemoryResultRepositoryKeepsFirstWrite(t *testing.T) {
	repo := NewMemoryResultRepository()
	ctx := context.Background()
	examID := uuid.New()
	attempt := uuid.New()

	now := time.Now()
	require.NoError(t, repo.Insert(ctx, &model.AttemptResult{AttemptID: attempt, ExamID: examID, Score: 1, SubmittedAt: now}))
	require.NoError(t, repo.Insert(ctx, &model.AttemptResult{AttemptID: attempt, ExamID: examID, Score: 9, SubmittedAt: now}))
	require.NoError(t, repo.Insert(ctx, &model.AttemptResult{AttemptID: uuid.New(), ExamID: examID, Score: 2, SubmittedAt: now.Add(-time.Minute)}))

	list, err := repo.ListByExam(ctx, examID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Score)
	assert.Equal(t, 1, list[1].Score)
}
