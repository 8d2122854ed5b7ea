package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopline/commerce-api/internal/core/domain"
	"github.com/shopline/commerce-api/internal/core/ports"
	"github.com/shopline/commerce-api/internal/pkg/metrics"
)

const tracerName = "github.com/shopline/commerce-api/internal/core/service"

// dummyPassword feeds the timing-equalising comparison on unknown emails.
const dummyPassword = "commerce-api/unknown-account"

// AuthConfig carries the policy knobs of the auth flows.
type AuthConfig struct {
	// DefaultRole is assigned to every self-registered user.
	DefaultRole string
	// TokenTTL is the single lifetime policy for tokens issued by Register and Login.
	TokenTTL time.Duration
}

// AuthService implements registration, login and identity lookups.
type AuthService struct {
	store       ports.IdentityStore
	hasher      ports.PasswordHasher
	tokens      ports.TokenService
	defaultRole string
	tokenTTL    time.Duration
	dummyHash   string
	log         zerolog.Logger
	tracer      trace.Tracer
}

func NewAuthService(
	store ports.IdentityStore,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.RoleCustomer
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 48 * time.Hour
	}
	// An empty dummy hash only makes the unknown-email path faster; it never matches.
	dummyHash, _ := hasher.Hash(dummyPassword)

	return &AuthService{
		store:       store,
		hasher:      hasher,
		tokens:      tokens,
		defaultRole: cfg.DefaultRole,
		tokenTTL:    cfg.TokenTTL,
		dummyHash:   dummyHash,
		log:         log,
		tracer:      otel.Tracer(tracerName),
	}
}

// Register creates a user with the default role and returns it with a fresh token.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (_ *ports.AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer func() { endSpan(span, err) }()

	result, err := s.register(ctx, in)
	metrics.RegistrationsTotal.WithLabelValues(registerResult(err)).Inc()
	return result, err
}

func (s *AuthService) register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	// 1. Uniqueness pre-check. The store's unique constraint backs it up in step 4.
	existing, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrEmailInUse
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	// 2. Default role.
	role, err := s.store.FindRoleByName(ctx, s.defaultRole)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			s.log.Error().Str("role", s.defaultRole).Msg("default role is not provisioned")
			return nil, fmt.Errorf("register: %w: %s", domain.ErrDefaultRoleMissing, s.defaultRole)
		}
		return nil, fmt.Errorf("register: lookup role: %w", err)
	}

	// 3. Hash.
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	// 4. Create. A concurrent registration may win between steps 1 and 4.
	now := time.Now().UTC()
	created, err := s.store.Create(ctx, &domain.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		RoleID:       role.ID,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			s.log.Debug().Msg("registration lost uniqueness race")
			return nil, domain.ErrEmailInUse
		}
		return nil, fmt.Errorf("register: create user: %w", err)
	}
	if created.Role == nil {
		created.Role = role
	}

	// 5. Token.
	token, err := s.tokens.Issue(created.ID, created.Email, role.Name, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("role", role.Name).Msg("user registered")

	return &ports.AuthResult{User: created.Sanitized(), AccessToken: token}, nil
}

// Login verifies credentials. Unknown email and wrong password both yield
// domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ *ports.AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	result, err := s.login(ctx, email, password)
	metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
	return result, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: lookup email: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.log.Debug().Str("user_id", user.ID).Msg("password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.RoleName(), s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", user.RoleName()).Msg("user logged in")

	return &ports.AuthResult{User: user.Sanitized(), AccessToken: token}, nil
}

// CurrentUser returns the identity behind claims. A vanished identity, or one
// whose id no longer matches the token subject, is unauthorized.
func (s *AuthService) CurrentUser(ctx context.Context, claims domain.Claims) (*domain.User, error) {
	user, err := s.store.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("current user: %w", err)
	}
	if user.ID != claims.Subject {
		return nil, domain.ErrUnauthorized
	}
	return user.Sanitized(), nil
}

func (s *AuthService) LookupUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user.Sanitized(), nil
}

func registerResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, domain.ErrEmailInUse):
		return "conflict"
	case errors.Is(err, domain.ErrDefaultRoleMissing):
		return "config_error"
	default:
		return "error"
	}
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "error"
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("auth.outcome", err.Error()))
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
