package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPConfig describes the outgoing mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier delivers notifications as plain-text email.
type SMTPNotifier struct {
	client *mail.Client
	from   string
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPNotifier{client: client, from: cfg.From}, nil
}

func (n *SMTPNotifier) Notify(ctx context.Context, email, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(email); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", email, err)
	}
	return nil
}
