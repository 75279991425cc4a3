package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/model"
)

// MemoryResultRepository is an in-process ResultStore and ResultReader.
type MemoryResultRepository struct {
	mu      sync.RWMutex
	results map[uuid.UUID]model.AttemptResult
}

func NewMemoryResultRepository() *MemoryResultRepository {
	return &MemoryResultRepository{results: make(map[uuid.UUID]model.AttemptResult)}
}

func (r *MemoryResultRepository) InsertBatch(ctx context.Context, results []*model.AttemptResult) error {
	for _, res := range results {
		if err := r.Insert(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryResultRepository) Insert(_ context.Context, res *model.AttemptResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.results[res.AttemptID]; ok {
		return nil
	}
	r.results[res.AttemptID] = *res
	return nil
}

func (r *MemoryResultRepository) ListByExam(_ context.Context, examID uuid.UUID) ([]model.AttemptResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.AttemptResult
	for _, res := range r.results {
		if res.ExamID == examID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].AttemptID.String() < out[j].AttemptID.String()
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

// Len reports how many results are stored.
func (r *MemoryResultRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}
