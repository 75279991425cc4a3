package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/model"
)

// MemoryExamRepository is an in-process ExamRepository used by tests and
// single-node dev runs. Stored exams are cloned on the way in and out.
type MemoryExamRepository struct {
	mu    sync.RWMutex
	order []uuid.UUID
	exams map[uuid.UUID]*model.Exam
}

// NewMemoryExamRepository creates an empty MemoryExamRepository.
func NewMemoryExamRepository() *MemoryExamRepository {
	return &MemoryExamRepository{exams: make(map[uuid.UUID]*model.Exam)}
}

func (r *MemoryExamRepository) Create(_ context.Context, e *model.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.exams[e.ID]; exists {
		return ErrConflict
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	r.exams[e.ID] = e.Clone()
	r.order = append(r.order, e.ID)
	return nil
}

func (r *MemoryExamRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.exams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

func (r *MemoryExamRepository) List(_ context.Context) ([]model.Exam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Exam, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.exams[id].Clone())
	}
	return out, nil
}

func (r *MemoryExamRepository) Update(_ context.Context, e *model.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.exams[e.ID]; !ok {
		return ErrNotFound
	}
	e.UpdatedAt = time.Now().UTC()
	r.exams[e.ID] = e.Clone()
	return nil
}

func (r *MemoryExamRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.exams[id]; !ok {
		return ErrNotFound
	}
	delete(r.exams, id)
	r.order = removeID(r.order, id)
	return nil
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
