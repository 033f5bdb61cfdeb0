package notify

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Breaker stops calling a failing notifier until it has had time to recover.
type Breaker struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker opens after 5 consecutive failures and probes again after cooldown.
func NewBreaker(name string, next Notifier, cooldown time.Duration, logger *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("notifier circuit changed state",
				zap.String("notifier", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Notify(ctx context.Context, email, subject, body string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Notify(ctx, email, subject, body)
	})
	return err
}
