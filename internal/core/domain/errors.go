package domain

import "errors"

// Store-level signals.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrRoleNotFound = errors.New("role not found")
)

// Faults surfaced by the auth flows and the authorization gate. The HTTP error
// handler is the only place that maps them to status codes.
var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrDefaultRoleMissing = errors.New("default role missing")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("missing bearer token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access forbidden")
)
