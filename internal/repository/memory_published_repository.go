package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/model"
)

// MemoryPublishedRepository is an in-process PublishedRepository.
type MemoryPublishedRepository struct {
	mu    sync.RWMutex
	order []uuid.UUID
	exams map[uuid.UUID]*model.Exam
}

// NewMemoryPublishedRepository creates an empty MemoryPublishedRepository.
func NewMemoryPublishedRepository() *MemoryPublishedRepository {
	return &MemoryPublishedRepository{exams: make(map[uuid.UUID]*model.Exam)}
}

func (r *MemoryPublishedRepository) Upsert(_ context.Context, e *model.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.exams[e.ID]; !ok {
		r.order = append(r.order, e.ID)
	}
	r.exams[e.ID] = e.Clone()
	return nil
}

func (r *MemoryPublishedRepository) Remove(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.exams[id]; ok {
		delete(r.exams, id)
		r.order = removeID(r.order, id)
	}
	return nil
}

func (r *MemoryPublishedRepository) List(_ context.Context) ([]model.Exam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Exam, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.exams[id].Clone())
	}
	return out, nil
}

func (r *MemoryPublishedRepository) Replace(_ context.Context, exams []model.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = make([]uuid.UUID, 0, len(exams))
	r.exams = make(map[uuid.UUID]*model.Exam, len(exams))
	for i := range exams {
		if _, dup := r.exams[exams[i].ID]; dup {
			continue
		}
		r.order = append(r.order, exams[i].ID)
		r.exams[exams[i].ID] = exams[i].Clone()
	}
	return nil
}
