// internal/membership/implementation.go
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"librarydesk/internal/database"
	"librarydesk/pkg/eventstore"
)

const userColumns = `id, username, email, role, is_active, date_joined, version, updated_at`

// Option configures the membership service.
type Option func(*service)

// WithRateLimit replaces the limiter guarding registration and login.
func WithRateLimit(every time.Duration, burst int) Option {
	return func(s *service) {
		s.rateLimiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// service implements the Service interface.
type service struct {
	db          *sqlx.DB
	eventStore  *eventstore.EventStore
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewService creates a new membership service instance.
func NewService(db *sqlx.DB, es *eventstore.EventStore, logger *zap.Logger, opts ...Option) Service {
	s := &service{
		db:          db,
		eventStore:  es,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/5), 5),
		logger:      logger.Named("membership"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a member account.
func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}
	return s.create(ctx, in.Username, in.Email, in.Password, RoleMember)
}

// CreateUser creates an account with the requested role, defaulting to member.
func (s *service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	role := in.Role
	if role == "" {
		role = RoleMember
	}
	return s.create(ctx, in.Username, in.Email, in.Password, role)
}

func (s *service) EnsureAdmin(ctx context.Context, username, email, password string) error {
	_, err := s.create(ctx, username, email, password, RoleAdmin)
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	return err
}

func (s *service) create(ctx context.Context, username, email, password, role string) (*User, error) {
	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &User{
		ID:         uuid.New(),
		Username:   username,
		Email:      strings.ToLower(email),
		Role:       role,
		IsActive:   true,
		DateJoined: now,
		Version:    1,
		UpdatedAt:  now,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :username, :email, :role, :is_active, :date_joined, :version, :updated_at)
	`, user)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, salt)
		VALUES (:user_id, :password_hash, :salt)
	`, Credential{UserID: user.ID, PasswordHash: passwordHash, Salt: salt})
	if err != nil {
		return nil, fmt.Errorf("insert credentials: %w", err)
	}

	event, err := eventstore.NewEvent(EventUserRegistered, UserRegisteredEvent{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	})
	if err != nil {
		return nil, err
	}
	if err := s.eventStore.AppendTx(ctx, tx, user.ID, aggregateType, 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("user registered", zap.Stringer("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

// Authenticate verifies a user's credentials and returns the user if successful.
// Unknown users, wrong passwords and inactive accounts are indistinguishable to the caller.
func (s *service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	var row struct {
		User
		PasswordHash string `db:"password_hash"`
		Salt         string `db:"salt"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT u.id, u.username, u.email, u.role, u.is_active, u.date_joined, u.version, u.updated_at,
		       c.password_hash, c.salt
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE u.username = $1
	`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	ok, err := verifyPassword(password, row.Salt, row.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !ok || !row.IsActive {
		return nil, ErrInvalidCredentials
	}

	user := row.User
	return &user, nil
}

// GetUser retrieves a user by their ID.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user := &User{}
	err := s.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *service) ListUsers(ctx context.Context) ([]*User, error) {
	users := []*User{}
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY date_joined, username`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUser applies in to the user if in.Version is still current.
func (s *service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var email *string
	if in.Email != nil {
		lowered := strings.ToLower(*in.Email)
		email = &lowered
	}

	user := &User{}
	err = tx.GetContext(ctx, user, `
		UPDATE users
		SET email = COALESCE($3, email),
		    role = COALESCE($4, role),
		    is_active = COALESCE($5, is_active),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING `+userColumns, id, in.Version, email, in.Role, in.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.missingOrConflict(ctx, tx, id)
	}
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	event, err := eventstore.NewEvent(EventUserUpdated, UserUpdatedEvent{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
	})
	if err != nil {
		return nil, err
	}
	if err := s.eventStore.AppendTx(ctx, tx, id, aggregateType, in.Version, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return user, nil
}

// DeleteUser removes the user together with their credentials and transactions.
func (s *service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var version int
	err = tx.GetContext(ctx, &version, `DELETE FROM users WHERE id = $1 RETURNING version`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	event, err := eventstore.NewEvent(EventUserDeleted, UserDeletedEvent{ID: id})
	if err != nil {
		return err
	}
	if err := s.eventStore.AppendTx(ctx, tx, id, aggregateType, version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.logger.Info("user deleted", zap.Stringer("user_id", id))
	return nil
}

func (s *service) missingOrConflict(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return ErrVersionConflict
}
