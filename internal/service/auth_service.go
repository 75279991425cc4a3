package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
	"github.com/stemsi/lms-backend/internal/validator"
	"golang.org/x/crypto/bcrypt"
)

// Claims extends JWT standard claims with the account role and, for
// students, the cohort used for exam visibility.
type Claims struct {
	jwt.RegisteredClaims
	Role      model.Role `json:"role"`
	AccountID uuid.UUID  `json:"account_id"`
	Section   string     `json:"section,omitempty"` // Student only
	Batch     string     `json:"batch,omitempty"`   // Student only
}

// Profile returns the visibility profile carried by a student token, nil
// for any other role.
func (c *Claims) Profile() *model.StudentProfile {
	if c == nil || c.Role != model.RoleStudent {
		return nil
	}
	return &model.StudentProfile{StudentID: c.AccountID, Section: c.Section, Batch: c.Batch}
}

// AuthService handles password checks and JWT issue and validation.
type AuthService struct {
	cfg      *config.Config
	accounts repository.AccountRepository
	log      zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, accounts repository.AccountRepository, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		accounts: accounts,
		log:      log.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// RegisterInput describes a new account. Section and Batch are only kept
// for students.
type RegisterInput struct {
	Email    string     `json:"email" binding:"required,email,max=255"`
	Name     string     `json:"name" binding:"required,max=255"`
	Password string     `json:"password" binding:"required,min=6,max=128"`
	Role     model.Role `json:"role" binding:"required,oneof=instructor student"`
	Section  string     `json:"section" binding:"label"`
	Batch    string     `json:"batch" binding:"label"`
}

// Register validates and stores a new account with a hashed password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := newValidationError(validator.Struct(in)); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if in.Role == model.RoleStudent {
		account.Section = strings.TrimSpace(in.Section)
		account.Batch = strings.TrimSpace(in.Batch)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account: %w: %w", ErrStorageUnavailable, err)
	}

	s.log.Info().Str("account_id", account.ID.String()).Str("role", string(account.Role)).Msg("Account registered")
	return account, nil
}

// Login authenticates an account by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w: %w", ErrStorageUnavailable, err)
	}

	if err := s.CheckPassword(account.PasswordHash, password); err != nil {
		return nil, err
	}

	token, err := s.GenerateToken(account)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", account.ID.String()).Str("role", string(account.Role)).Msg("Login successful")
	return &model.LoginResponse{Token: token, Account: *account}, nil
}

// GenerateToken creates a JWT for the account.
func (s *AuthService) GenerateToken(account *model.Account) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		Role:      account.Role,
		AccountID: account.ID,
	}
	if account.Role == model.RoleStudent {
		claims.Section = account.Section
		claims.Batch = account.Batch
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
