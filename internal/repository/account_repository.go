package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/lms-backend/internal/model"
)

// PostgresAccountRepository handles account data access and roster counts.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountRepository creates a new PostgresAccountRepository.
func NewPostgresAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

// Create inserts a new account. A duplicate email returns ErrConflict.
func (r *PostgresAccountRepository) Create(ctx context.Context, a *model.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (id, email, name, password_hash, role, section, batch)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		a.ID, strings.ToLower(a.Email), a.Name, a.PasswordHash, a.Role, a.Section, a.Batch,
	).Scan(&a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getOne(ctx, `WHERE email = $1`, strings.ToLower(email))
}

func (r *PostgresAccountRepository) getOne(ctx context.Context, where string, arg interface{}) (*model.Account, error) {
	a := &model.Account{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, section, batch, created_at
		 FROM accounts `+where, arg,
	).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Role, &a.Section, &a.Batch, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// CountStudents counts student accounts matching the targeting rule.
func (r *PostgresAccountRepository) CountStudents(ctx context.Context, sections, batches []string) (int, error) {
	if sections == nil {
		sections = []string{}
	}
	if batches == nil {
		batches = []string{}
	}

	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts
		 WHERE role = 'student'
		   AND (cardinality($1::text[]) = 0 OR section = ANY($1::text[]))
		   AND (cardinality($2::text[]) = 0 OR batch = ANY($2::text[]))`,
		sections, batches,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}
