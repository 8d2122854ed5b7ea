package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shopline/commerce-api/internal/api/response"
	"github.com/shopline/commerce-api/internal/core/domain"
	"github.com/shopline/commerce-api/internal/core/ports"
	"github.com/shopline/commerce-api/internal/pkg/authctx"
)

type stubAuthService struct {
	registerFn    func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn       func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	currentUserFn func(ctx context.Context, claims domain.Claims) (*domain.User, error)
	lookupFn      func(ctx context.Context, email string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) CurrentUser(ctx context.Context, claims domain.Claims) (*domain.User, error) {
	return s.currentUserFn(ctx, claims)
}

func (s *stubAuthService) LookupUser(ctx context.Context, email string) (*domain.User, error) {
	return s.lookupFn(ctx, email)
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	StatusCode int             `json:"statusCode"`
}

// serve runs fn the way the router mounts it and renders errors through the
// production error handler.
func serve(t *testing.T, fn response.Func, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator(PasswordPolicy{MinLength: 8, RequireMixed: true})
	e.HTTPErrorHandler = response.NewHTTPErrorHandler(zerolog.Nop())

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := response.Handle(fn)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	if env.StatusCode != rec.Code {
		t.Fatalf("statusCode %d does not match HTTP status %d", env.StatusCode, rec.Code)
	}
	return rec, env
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

const validRegisterBody = `{"email":"alice@example.com","password":"Secr3t!pass","first_name":"Alice","last_name":"Smith"}`

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if in.Email != "alice@example.com" || in.FirstName != "Alice" || in.LastName != "Smith" || in.Password != "Secr3t!pass" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.AuthResult{
				User:        &domain.User{ID: "u1", Email: in.Email, PasswordHash: "$2a$secret", Role: &domain.Role{Name: domain.RoleCustomer}},
				AccessToken: "token123",
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	rec, env := serve(t, h.Register, jsonRequest(http.MethodPost, "/auth/register", validRegisterBody))

	if rec.Code != http.StatusCreated || !env.Success {
		t.Fatalf("expected 201 success, got %d %+v", rec.Code, env)
	}
	var data struct {
		User        map[string]any `json:"user"`
		AccessToken string         `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("invalid data: %v", err)
	}
	if data.AccessToken != "token123" || data.User["email"] != "alice@example.com" {
		t.Fatalf("unexpected payload: %+v", data)
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"weak password", `{"email":"a@x.com","password":"password","first_name":"A","last_name":"B"}`, "password must be"},
		{"bad email", `{"email":"nope","password":"Secr3t!pass","first_name":"A","last_name":"B"}`, "email must be a valid email"},
		{"missing names", `{"email":"a@x.com","password":"Secr3t!pass"}`, "first_name is required; last_name is required"},
		{"malformed json", `{"email":`, "Invalid request body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAuthService{
				registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
					t.Fatalf("service should not be called")
					return nil, nil
				},
			}
			rec, env := serve(t, NewAuthHandler(stub).Register, jsonRequest(http.MethodPost, "/auth/register", tc.body))

			if rec.Code != http.StatusBadRequest || env.Success {
				t.Fatalf("expected 400 failure, got %d %+v", rec.Code, env)
			}
			if !strings.Contains(env.Message, tc.want) {
				t.Fatalf("message %q does not contain %q", env.Message, tc.want)
			}
		})
	}
}

func TestAuthHandler_Register_EmailInUse(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			return nil, domain.ErrEmailInUse
		},
	}

	rec, env := serve(t, NewAuthHandler(stub).Register, jsonRequest(http.MethodPost, "/auth/register", validRegisterBody))

	if rec.Code != http.StatusBadRequest || env.Message != "Email already in use" {
		t.Fatalf("expected 400 Email already in use, got %d %q", rec.Code, env.Message)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.AuthResult{User: &domain.User{ID: "u1", Email: email}, AccessToken: "token123"}, nil
		},
	}

	rec, env := serve(t, NewAuthHandler(stub).Login, jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret"}`))

	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var data authResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("invalid data: %v", err)
	}
	if data.AccessToken != "token123" || data.User.ID != "u1" {
		t.Fatalf("unexpected payload: %+v", data)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}

	rec, env := serve(t, NewAuthHandler(stub).Login, jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"bad"}`))

	if rec.Code != http.StatusUnauthorized || env.Message != "Invalid credentials" {
		t.Fatalf("expected 401 Invalid credentials, got %d %q", rec.Code, env.Message)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}

	rec, env := serve(t, NewAuthHandler(stub).Login, jsonRequest(http.MethodPost, "/auth/login", `{"password":"x"}`))

	if rec.Code != http.StatusBadRequest || env.Message != "email is required" {
		t.Fatalf("expected 400 email is required, got %d %q", rec.Code, env.Message)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	claims := domain.Claims{Subject: "u1", Email: "alice@example.com", Role: domain.RoleCustomer}
	stub := &stubAuthService{
		currentUserFn: func(ctx context.Context, got domain.Claims) (*domain.User, error) {
			if got.Subject != claims.Subject {
				t.Fatalf("unexpected claims: %+v", got)
			}
			return &domain.User{ID: "u1", Email: got.Email}, nil
		},
	}
	h := NewAuthHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(authctx.WithClaims(req.Context(), claims))
	rec, env := serve(t, h.Me, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var data meResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("invalid data: %v", err)
	}
	if data.User.ID != "u1" || data.Claims.Role != domain.RoleCustomer {
		t.Fatalf("unexpected payload: %+v", data)
	}

	rec, env = serve(t, h.Me, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusUnauthorized || env.Message != "Unauthorized" {
		t.Fatalf("expected 401 without claims, got %d %q", rec.Code, env.Message)
	}
}

func TestAuthHandler_LookupUser(t *testing.T) {
	stub := &stubAuthService{
		lookupFn: func(ctx context.Context, email string) (*domain.User, error) {
			if email == "ghost@example.com" {
				return nil, domain.ErrUserNotFound
			}
			return &domain.User{ID: "u1", Email: email}, nil
		},
	}
	h := NewAuthHandler(stub)

	rec, env := serve(t, h.LookupUser, httptest.NewRequest(http.MethodGet, "/admin/users?email=alice@example.com", nil))
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"id":"u1"`) {
		t.Fatalf("expected 200 with user, got %d %s", rec.Code, env.Data)
	}

	rec, env = serve(t, h.LookupUser, httptest.NewRequest(http.MethodGet, "/admin/users?email=ghost@example.com", nil))
	if rec.Code != http.StatusNotFound || env.Message != "User not found" {
		t.Fatalf("expected 404, got %d %q", rec.Code, env.Message)
	}

	rec, env = serve(t, h.LookupUser, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	if rec.Code != http.StatusBadRequest || env.Message != "email is required" {
		t.Fatalf("expected 400, got %d %q", rec.Code, env.Message)
	}
}
