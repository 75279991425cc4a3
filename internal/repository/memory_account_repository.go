package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/model"
)

// MemoryAccountRepository is an in-process AccountRepository and
// RosterCounter.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]model.Account
}

// NewMemoryAccountRepository creates a MemoryAccountRepository seeded with
// the given accounts.
func NewMemoryAccountRepository(seed ...model.Account) *MemoryAccountRepository {
	r := &MemoryAccountRepository{accounts: make(map[uuid.UUID]model.Account)}
	for i := range seed {
		_ = r.Create(context.Background(), &seed[i])
	}
	return r
}

func (r *MemoryAccountRepository) Create(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.Email = strings.ToLower(a.Email)
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return ErrConflict
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	r.accounts[a.ID] = *a
	return nil
}

func (r *MemoryAccountRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *MemoryAccountRepository) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(email)
	for _, a := range r.accounts {
		if a.Email == email {
			found := a
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAccountRepository) CountStudents(_ context.Context, sections, batches []string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.accounts {
		if a.Role != model.RoleStudent {
			continue
		}
		if len(sections) > 0 && !slices.Contains(sections, a.Section) {
			continue
		}
		if len(batches) > 0 && !slices.Contains(batches, a.Batch) {
			continue
		}
		n++
	}
	return n, nil
}
