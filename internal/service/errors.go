package service

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/stemsi/lms-backend/internal/repository"
)

// Domain Errors
var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrExamNotDraft       = errors.New("exam status is not draft")
	ErrExamCompleted      = errors.New("exam is completed")
	ErrExamNotPublished   = errors.New("exam status is not published")
	ErrProfileUnavailable = errors.New("student profile unavailable")
	ErrAttemptFinished    = errors.New("attempt already submitted")
	ErrQuestionOutOfRange = errors.New("question index out of range")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrViewStale          = errors.New("student view lost events")
)

// ValidationError lists every invalid field of a request at once.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	return "validation failed: " + strings.Join(keys, ", ")
}

func newValidationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// storageErr maps a repository failure onto the service error vocabulary.
func storageErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrExamNotFound
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
