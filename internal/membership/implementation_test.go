package membership

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"librarydesk/internal/database/dbtest"
	"librarydesk/pkg/eventstore"
)

func newDBService(t *testing.T) (Service, *eventstore.EventStore) {
	db := dbtest.Open(t)
	es := eventstore.NewEventStore(db)
	return NewService(db, es, zaptest.NewLogger(t), WithRateLimit(time.Millisecond, 100)), es
}

func uniqueName() string {
	return "user" + uuid.NewString()[:8]
}

func TestServiceRegisterAndAuthenticate(t *testing.T) {
	svc, es := newDBService(t)
	ctx := context.Background()
	name := uniqueName()

	user, err := svc.Register(ctx, RegisterInput{Username: name, Email: name + "@Example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, RoleMember, user.Role)
	assert.Equal(t, name+"@example.com", user.Email)

	_, err = svc.Register(ctx, RegisterInput{Username: name, Email: "x" + name + "@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := svc.Authenticate(ctx, name, "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, name, "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, uniqueName(), "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	events, err := es.Load(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserRegistered, events[0].EventType)
}

func TestServiceUpdateAndDelete(t *testing.T) {
	svc, es := newDBService(t)
	ctx := context.Background()
	name := uniqueName()

	user, err := svc.CreateUser(ctx, CreateUserInput{Username: name, Email: name + "@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.UpdateUser(ctx, user.ID, UpdateUserInput{IsActive: &inactive, Version: 1})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, user.Email, updated.Email)

	_, err = svc.UpdateUser(ctx, user.ID, UpdateUserInput{IsActive: &inactive, Version: 1})
	assert.ErrorIs(t, err, ErrVersionConflict)
	_, err = svc.UpdateUser(ctx, uuid.New(), UpdateUserInput{Version: 1})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Authenticate(ctx, name, "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "inactive users cannot log in")

	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	_, err = svc.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), ErrUserNotFound)

	events, err := es.Load(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{EventUserRegistered, EventUserUpdated, EventUserDeleted},
		[]string{events[0].EventType, events[1].EventType, events[2].EventType})
}

func TestServiceEnsureAdminIsIdempotent(t *testing.T) {
	svc, _ := newDBService(t)
	ctx := context.Background()
	name := uniqueName()

	require.NoError(t, svc.EnsureAdmin(ctx, name, name+"@example.com", "s3cret-pass"))
	require.NoError(t, svc.EnsureAdmin(ctx, name, name+"@example.com", "s3cret-pass"))

	user, err := svc.Authenticate(ctx, name, "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, user.Role)
}

func TestServiceRateLimitsRegistration(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db, eventstore.NewEventStore(db), zaptest.NewLogger(t), WithRateLimit(time.Hour, 1))
	ctx := context.Background()

	name := uniqueName()
	_, err := svc.Register(ctx, RegisterInput{Username: name, Email: name + "@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	name = uniqueName()
	_, err = svc.Register(ctx, RegisterInput{Username: name, Email: name + "@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrRateLimited)
}
