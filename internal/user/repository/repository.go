package repository

import (
	"context"
	"errors"

	"authledger/internal/user/domain"
)

// ErrDuplicateUsername is returned by Create when the username is already taken.
var ErrDuplicateUsername = errors.New("duplicate username")

// Repository is the user directory. Lookups return (nil, nil) when the user does not exist;
// errors are reserved for storage failures.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Create persists u; returns ErrDuplicateUsername if the username exists.
	Create(ctx context.Context, u *domain.User) error
}
