package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/shopline/commerce-api/internal/core/domain"
	"github.com/shopline/commerce-api/internal/infrastructure/db/sqlite/migrations"
)

const (
	findUserByEmailQuery = `
SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role_id,
       u.created_at, u.updated_at, r.name
FROM users u
JOIN roles r ON r.id = u.role_id
WHERE u.email = ?`

	insertUserQuery = `
INSERT INTO users (id, email, password_hash, first_name, last_name, role_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	findRoleByNameQuery = `SELECT id, name FROM roles WHERE name = ?`

	insertRoleQuery = `
INSERT INTO roles (id, name, created_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO NOTHING`
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements ports.IdentityStore over a single SQLite file.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY under load.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var (
		u         domain.User
		roleName  string
		createdAt int64
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, findUserByEmailQuery, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.RoleID,
		&createdAt, &updatedAt, &roleName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
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
	// Stored precision.
	created.CreatedAt = fromMillis(toMillis(created.CreatedAt))
	created.UpdatedAt = fromMillis(toMillis(created.UpdatedAt))

	_, err := s.sqlDB.ExecContext(ctx, insertUserQuery,
		created.ID, created.Email, created.PasswordHash, created.FirstName, created.LastName,
		created.RoleID, toMillis(created.CreatedAt), toMillis(created.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &created, nil
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	var r domain.Role
	if err := s.sqlDB.QueryRowContext(ctx, findRoleByNameQuery, name).Scan(&r.ID, &r.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &r, nil
}

func (s *Store) UpsertRole(ctx context.Context, name string) (*domain.Role, error) {
	if _, err := s.sqlDB.ExecContext(ctx, insertRoleQuery, uuid.NewString(), name, toMillis(time.Now())); err != nil {
		return nil, fmt.Errorf("upsert role: %w", err)
	}
	return s.FindRoleByName(ctx, name)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
}
