// Package notify delivers library notifications to users.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notifier sends a message to a single recipient.
type Notifier interface {
	Notify(ctx context.Context, email, subject, body string) error
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, email, subject, body string) error {
	n.logger.Info("notification",
		zap.String("to", email),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
