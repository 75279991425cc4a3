package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// ExamRepository is the instructor's full exam list.
type ExamRepository interface {
	Create(ctx context.Context, exam *model.Exam) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	// List returns every exam in creation order.
	List(ctx context.Context) ([]model.Exam, error)
	Update(ctx context.Context, exam *model.Exam) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PublishedRepository is the published subset read by student views.
type PublishedRepository interface {
	// Upsert appends a new exam or replaces an existing one in place.
	Upsert(ctx context.Context, exam *model.Exam) error
	// Remove is a no-op for ids that are not present.
	Remove(ctx context.Context, id uuid.UUID) error
	// List returns the published exams in publish order.
	List(ctx context.Context) ([]model.Exam, error)
	// Replace swaps the whole subset, keeping the given order.
	Replace(ctx context.Context, exams []model.Exam) error
}

// RosterCounter counts student accounts matching a targeting rule. Empty
// sections or batches leave that dimension unrestricted.
type RosterCounter interface {
	CountStudents(ctx context.Context, sections, batches []string) (int, error)
}

// AccountRepository stores login accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}
