package domain

import "errors"

// Error kinds returned by the authenticator and the access guard. Transports map each
// kind to a fixed status; messages are safe to show to callers.
var (
	// ErrMissingFields is returned when a login or registration request lacks username or password.
	ErrMissingFields = errors.New("username and password are required")
	// ErrDuplicateUsername is returned when registration collides with an existing username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated covers a missing or malformed header and an expired, forged,
	// malformed or revoked token.
	ErrUnauthenticated = errors.New("missing or invalid authorization")
	// ErrInternal is returned when a collaborator fails; the cause is logged, never returned.
	ErrInternal = errors.New("internal error")
)
