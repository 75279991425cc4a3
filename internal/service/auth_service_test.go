package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*AuthService, *repository.MemoryAccountRepository) {
	t.Helper()
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: bcrypt.MinCost}
	accounts := repository.NewMemoryAccountRepository()
	return NewAuthService(cfg, accounts, zerolog.Nop()), accounts
}

func TestRegisterAndLogin(t *testing.T) {
	auth, _ := newAuthService(t)
	ctx := context.Background()

	account, err := auth.Register(ctx, RegisterInput{
		Email:    " Student@Example.com ",
		Name:     "Ayu Lestari",
		Password: "secret123",
		Role:     model.RoleStudent,
		Section:  "A",
		Batch:    "2026",
	})
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", account.Email)
	assert.NotEqual(t, "secret123", account.PasswordHash)

	resp, err := auth.Login(ctx, "student@example.com", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	claims, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, claims.Role)
	assert.Equal(t, account.ID, claims.AccountID)

	profile := claims.Profile()
	require.NotNil(t, profile)
	assert.Equal(t, "A", profile.Section)
	assert.Equal(t, "2026", profile.Batch)
}

func TestRegisterInstructorDropsCohort(t *testing.T) {
	auth, _ := newAuthService(t)

	account, err := auth.Register(context.Background(), RegisterInput{
		Email: "instructor@example.com", Name: "Instructor", Password: "secret123",
		Role: model.RoleInstructor, Section: "A",
	})
	require.NoError(t, err)
	assert.Empty(t, account.Section)

	token, err := auth.GenerateToken(account)
	require.NoError(t, err)
	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Nil(t, claims.Profile())
}

func TestRegisterRejects(t *testing.T) {
	auth, _ := newAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, RegisterInput{Email: "nope", Name: "", Password: "123", Role: "admin"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"email", "name", "password", "role"} {
		assert.Contains(t, verr.Fields, field)
	}

	in := RegisterInput{Email: "dup@example.com", Name: "Dup", Password: "secret123", Role: model.RoleStudent}
	_, err = auth.Register(ctx, in)
	require.NoError(t, err)
	_, err = auth.Register(ctx, in)
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth, _ := newAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, RegisterInput{Email: "a@example.com", Name: "A", Password: "secret123", Role: model.RoleStudent})
	require.NoError(t, err)

	_, err = auth.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "missing@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejects(t *testing.T) {
	auth, _ := newAuthService(t)
	account := &model.Account{Role: model.RoleStudent}

	other := &AuthService{cfg: &config.Config{JWTSecret: "other", JWTExpiry: time.Hour}, log: zerolog.Nop()}
	foreign, err := other.GenerateToken(account)
	require.NoError(t, err)
	_, err = auth.ValidateToken(foreign)
	assert.Error(t, err)

	expired := &AuthService{cfg: &config.Config{JWTSecret: "test-secret", JWTExpiry: -time.Minute}, log: zerolog.Nop()}
	token, err := expired.GenerateToken(account)
	require.NoError(t, err)
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
