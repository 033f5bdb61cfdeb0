package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingNotifier struct {
	calls int
}

func (f *failingNotifier) Notify(context.Context, string, string, string) error {
	f.calls++
	return errors.New("relay down")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &failingNotifier{}
	b := NewBreaker("test", next, time.Minute, zap.NewNop())

	for i := 0; i < 5; i++ {
		assert.EqualError(t, b.Notify(context.Background(), "a@b.c", "s", "b"), "relay down")
	}

	err := b.Notify(context.Background(), "a@b.c", "s", "b")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, next.calls)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	err := n.Notify(context.Background(), "reader@example.com", "Library Notification", "hello")
	assert.NoError(t, err)

	entries := logs.FilterMessage("notification").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "reader@example.com", fields["to"])
		assert.Equal(t, "Library Notification", fields["subject"])
		assert.Equal(t, "hello", fields["body"])
	}
}
