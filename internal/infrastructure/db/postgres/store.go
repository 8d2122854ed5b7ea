package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shopline/commerce-api/internal/core/domain"
)

const uniqueViolation = "23505"

const (
	findUserByEmailQuery = `
SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role_id,
       u.created_at, u.updated_at, r.name
FROM users u
JOIN roles r ON r.id = u.role_id
WHERE u.email = $1`

	insertUserQuery = `
INSERT INTO users (id, email, password_hash, first_name, last_name, role_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	findRoleByNameQuery = `SELECT id, name FROM roles WHERE name = $1`

	upsertRoleQuery = `
INSERT INTO roles (id, name) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name`
)

// dbtx is the subset of *pgxpool.Pool the store needs.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store implements ports.IdentityStore on PostgreSQL.
type Store struct {
	db dbtx
}

func New(db dbtx) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var (
		u        domain.User
		roleName string
	)
	err := s.db.QueryRow(ctx, findUserByEmailQuery, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.RoleID,
		&u.CreatedAt, &u.UpdatedAt, &roleName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.Role = &domain.Role{ID: u.RoleID, Name: roleName}
	return &u, nil
}

func (s *Store) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	created := *user
	created.ID = uuid.NewString()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}

	_, err := s.db.Exec(ctx, insertUserQuery,
		created.ID, created.Email, created.PasswordHash, created.FirstName, created.LastName,
		created.RoleID, created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &created, nil
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	var r domain.Role
	if err := s.db.QueryRow(ctx, findRoleByNameQuery, name).Scan(&r.ID, &r.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &r, nil
}

func (s *Store) UpsertRole(ctx context.Context, name string) (*domain.Role, error) {
	var r domain.Role
	if err := s.db.QueryRow(ctx, upsertRoleQuery, uuid.NewString(), name).Scan(&r.ID, &r.Name); err != nil {
		return nil, fmt.Errorf("upsert role: %w", err)
	}
	return &r, nil
}
