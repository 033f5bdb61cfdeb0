// internal/membership/domain.go
package membership

import (
	"time"

	"github.com/google/uuid"

	"librarydesk/internal/auth"
)

const (
	RoleAdmin  = auth.RoleAdmin
	RoleMember = auth.RoleMember
)

// User represents a library user.
type User struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Username   string    `json:"username" db:"username"`
	Email      string    `json:"email" db:"email"`
	Role       string    `json:"role" db:"role"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	DateJoined time.Time `json:"date_joined" db:"date_joined"`
	Version    int       `json:"version" db:"version"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Credential represents a user's login credentials.
type Credential struct {
	UserID       uuid.UUID `db:"user_id"`
	PasswordHash string    `db:"password_hash"`
	Salt         string    `db:"salt"`
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// CreateUserInput is the administrator payload for creating any kind of user.
type CreateUserInput struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=admin member"`
}

// UpdateUserInput changes the provided fields of a user at the given version.
type UpdateUserInput struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin member"`
	IsActive *bool   `json:"is_active"`
	Version  int     `json:"version" validate:"required,min=1"`
}

const aggregateType = "user"

const (
	EventUserRegistered = "UserRegistered"
	EventUserUpdated    = "UserUpdated"
	EventUserDeleted    = "UserDeleted"
)

// UserRegisteredEvent is recorded when a user account is created.
type UserRegisteredEvent struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// UserUpdatedEvent carries the state of a user after an update.
type UserUpdatedEvent struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
}

// UserDeletedEvent is recorded when a user account is removed.
type UserDeletedEvent struct {
	ID uuid.UUID `json:"id"`
}
