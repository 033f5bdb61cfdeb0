// internal/membership/service.go
package membership

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("a user with that username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrVersionConflict    = errors.New("user was modified concurrently")
)

// Service defines the interface for the membership service.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	// EnsureAdmin creates an administrator with the given username unless one exists.
	EnsureAdmin(ctx context.Context, username, email, password string) error
}
