package model

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes instructor and student accounts.
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Account is a user who can log in.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Section      string    `json:"section,omitempty"`
	Batch        string    `json:"batch,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile returns the visibility profile of a student account, nil for
// anyone else.
func (a *Account) Profile() *StudentProfile {
	if a == nil || a.Role != RoleStudent {
		return nil
	}
	return &StudentProfile{StudentID: a.ID, Section: a.Section, Batch: a.Batch}
}

// StudentProfile is the cohort membership used to evaluate exam visibility.
type StudentProfile struct {
	StudentID uuid.UUID `json:"student_id"`
	Section   string    `json:"section"`
	Batch     string    `json:"batch"`
}

// LoginRequest is the payload for account authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token   string  `json:"token"`
	Account Account `json:"account"`
}
