package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopline/commerce-api/internal/core/domain"
	"github.com/shopline/commerce-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,password"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userLookupQuery struct {
	Email string `query:"email" validate:"required,email"`
}

type authResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

type meResponse struct {
	User   *domain.User  `json:"user"`
	Claims domain.Claims `json:"claims"`
}

// Register creates a customer account and signs the caller in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  response.Envelope{data=authResponse}
// @Failure      400   {object}  response.Envelope
// @Failure      500   {object}  response.Envelope
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) (int, any, error) {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return 0, nil, err
	}

	result, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return 0, nil, err
	}

	return http.StatusCreated, authResponse{User: result.User, AccessToken: result.AccessToken}, nil
}

// Login authenticates a user and returns a signed access token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  response.Envelope{data=authResponse}
// @Failure      400   {object}  response.Envelope
// @Failure      401   {object}  response.Envelope
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) (int, any, error) {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return 0, nil, err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, authResponse{User: result.User, AccessToken: result.AccessToken}, nil
}

// Me returns the caller's stored identity together with the verified claims.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Envelope{data=meResponse}
// @Failure      401  {object}  response.Envelope
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) (int, any, error) {
	claims, err := ctxClaims(c)
	if err != nil {
		return 0, nil, err
	}

	user, err := h.authService.CurrentUser(c.Request().Context(), claims)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, meResponse{User: user, Claims: claims}, nil
}

// LookupUser finds a user by email. Mounted behind RBAC(ADMIN).
//
// @Summary      Look up a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        email  query     string  true  "User email"
// @Success      200    {object}  response.Envelope{data=domain.User}
// @Failure      400    {object}  response.Envelope
// @Failure      401    {object}  response.Envelope
// @Failure      403    {object}  response.Envelope
// @Failure      404    {object}  response.Envelope
// @Router       /admin/users [get]
func (h *AuthHandler) LookupUser(c echo.Context) (int, any, error) {
	var q userLookupQuery
	if err := bindAndValidate(c, &q); err != nil {
		return 0, nil, err
	}

	user, err := h.authService.LookupUser(c.Request().Context(), q.Email)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, user, nil
}
