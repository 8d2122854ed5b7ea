package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopline/commerce-api/internal/core/domain"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return New(mock), mock
}

func TestStore_FindByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT u.id, u.email").
		WithArgs("alice@example.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "password_hash", "first_name", "last_name", "role_id", "created_at", "updated_at", "name",
		}).AddRow("u1", "alice@example.com", "$2a$10$hash", "Alice", "Smith", "r1", now, now, domain.RoleCustomer))

	user, err := store.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "$2a$10$hash", user.PasswordHash)
	assert.Equal(t, "r1", user.RoleID)
	assert.Equal(t, domain.RoleCustomer, user.RoleName())
	assert.True(t, user.CreatedAt.Equal(now))
}

func TestStore_FindByEmail_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT u.id, u.email").
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestStore_FindByEmail_DriverError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT u.id, u.email").
		WithArgs("alice@example.com").
		WillReturnError(errors.New("connection reset"))

	_, err := store.FindByEmail(context.Background(), "alice@example.com")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUserNotFound))
}

func TestStore_Create(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "alice@example.com", "$2a$10$hash", "Alice", "Smith", "r1", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := store.Create(context.Background(), &domain.User{
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		FirstName:    "Alice",
		LastName:     "Smith",
		RoleID:       "r1",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice@example.com", created.Email)
}

func TestStore_Create_UniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := store.Create(context.Background(), &domain.User{Email: "alice@example.com", RoleID: "r1"})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestStore_Create_OtherConstraint(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := store.Create(context.Background(), &domain.User{Email: "alice@example.com", RoleID: "missing"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUserExists))
}

func TestStore_Roles(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, name FROM roles").
		WithArgs(domain.RoleAdmin).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO roles").
		WithArgs(pgxmock.AnyArg(), domain.RoleAdmin).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow("r2", domain.RoleAdmin))
	mock.ExpectQuery("SELECT id, name FROM roles").
		WithArgs(domain.RoleAdmin).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow("r2", domain.RoleAdmin))

	_, err := store.FindRoleByName(ctx, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrRoleNotFound)

	role, err := store.UpsertRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, &domain.Role{ID: "r2", Name: domain.RoleAdmin}, role)

	found, err := store.FindRoleByName(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, role, found)
}

func TestStore_Ping(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectPing()
	assert.NoError(t, store.Ping(context.Background()))
}

func TestRunMigrations_RejectsBadScheme(t *testing.T) {
	err := RunMigrations("mysql://localhost/commerce", zerolog.Nop())
	require.Error(t, err)
}
