package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopline/commerce-api/internal/core/domain"
	"github.com/shopline/commerce-api/internal/core/ports"
	"github.com/shopline/commerce-api/internal/core/service"
	"github.com/shopline/commerce-api/internal/infrastructure/password"
	"github.com/shopline/commerce-api/internal/infrastructure/token"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedUser(t *testing.T, store *Store, email string) *domain.User {
	t.Helper()
	ctx := context.Background()
	role, err := store.UpsertRole(ctx, domain.RoleCustomer)
	require.NoError(t, err)

	user, err := store.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: "$2a$04$hash",
		FirstName:    "Alice",
		LastName:     "Smith",
		RoleID:       role.ID,
	})
	require.NoError(t, err)
	return user
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	require.Error(t, err)
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.db")

	first, err := Open(context.Background(), path)
	require.NoError(t, err)
	seedUser(t, first, "alice@example.com")
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestStore_CreateAndFind(t *testing.T) {
	store := openTempStore(t)
	created := seedUser(t, store, "alice@example.com")

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "$2a$04$hash", got.PasswordHash)
	assert.Equal(t, domain.RoleCustomer, got.RoleName())
	assert.Equal(t, created.RoleID, got.Role.ID)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestStore_FindByEmail_NotFound(t *testing.T) {
	store := openTempStore(t)
	seedUser(t, store, "alice@example.com")

	_, err := store.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	// Emails are matched exactly.
	_, err = store.FindByEmail(context.Background(), "Alice@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestStore_Create_UniqueViolation(t *testing.T) {
	store := openTempStore(t)
	first := seedUser(t, store, "alice@example.com")

	_, err := store.Create(context.Background(), &domain.User{
		Email:        "alice@example.com",
		PasswordHash: "$2a$04$other",
		FirstName:    "Eve",
		LastName:     "Mallory",
		RoleID:       first.RoleID,
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestStore_Create_UnknownRole(t *testing.T) {
	store := openTempStore(t)

	_, err := store.Create(context.Background(), &domain.User{
		Email:        "alice@example.com",
		PasswordHash: "$2a$04$hash",
		FirstName:    "Alice",
		LastName:     "Smith",
		RoleID:       "missing",
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUserExists))
}

func TestStore_Roles(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	_, err := store.FindRoleByName(ctx, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrRoleNotFound)

	first, err := store.UpsertRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	second, err := store.UpsertRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	found, err := store.FindRoleByName(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, first, found)
}

func TestStore_Ping(t *testing.T) {
	store := openTempStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestStore_ConcurrentRegistration(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	require.NoError(t, service.EnsureRoles(ctx, store, zerolog.Nop(), domain.RoleCustomer))

	hasher, err := password.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := token.NewManager(token.Config{Secret: []byte("secret"), TTL: time.Hour})
	require.NoError(t, err)
	svc := service.NewAuthService(store, hasher, tokens, service.AuthConfig{}, zerolog.Nop())

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, ports.RegisterInput{
				Email:     "race@example.com",
				Password:  "Secr3t!pass",
				FirstName: "Race",
				LastName:  "Condition",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrEmailInUse):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}
