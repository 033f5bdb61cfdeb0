// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"librarydesk/pkg/eventstore"
)

// Option configures the circulation service.
type Option func(*service)

// WithClock replaces the wall clock used for checkout and return instants.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxOpenLoans caps how many open transactions a user may hold. Zero means no cap.
func WithMaxOpenLoans(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.maxOpenLoans = n
		}
	}
}

type instruments struct {
	checkouts            metric.Int64Counter
	returns              metric.Int64Counter
	overdueReturns       metric.Int64Counter
	penalties            metric.Float64Counter
	notificationFailures metric.Int64Counter
}

func newInstruments(meter metric.Meter) instruments {
	int64Counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			return noop.Int64Counter{}
		}
		return c
	}
	penalties, err := meter.Float64Counter("circulation.penalty.total",
		metric.WithDescription("Sum of penalties assessed on returns"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		penalties = noop.Float64Counter{}
	}
	return instruments{
		checkouts:            int64Counter("circulation.checkouts", "Books checked out"),
		returns:              int64Counter("circulation.returns", "Books returned"),
		overdueReturns:       int64Counter("circulation.returns.overdue", "Books returned after their due date"),
		penalties:            penalties,
		notificationFailures: int64Counter("circulation.notifications.failed", "Return notifications that could not be delivered"),
	}
}

// service implements the Service interface.
type service struct {
	store        Store
	members      MemberDirectory
	notifier     Notifier
	logger       *zap.Logger
	tracer       trace.Tracer
	metrics      instruments
	now          func() time.Time
	maxOpenLoans int
}

// NewService creates a new circulation service instance.
func NewService(store Store, members MemberDirectory, notifier Notifier, logger *zap.Logger, opts ...Option) Service {
	s := &service{
		store:    store,
		members:  members,
		notifier: notifier,
		logger:   logger.Named("circulation"),
		tracer:   otel.Tracer("librarydesk/circulation"),
		metrics:  newInstruments(otel.Meter("librarydesk/circulation")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// instant returns the current time at the precision the database keeps.
func (s *service) instant() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Checkout lends one copy of a book to the user.
func (s *service) Checkout(ctx context.Context, userID, bookID uuid.UUID) (*Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.checkout", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("book.id", bookID.String()),
	))
	defer span.End()

	txn := &Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		BookID:       bookID,
		CheckoutDate: s.instant(),
	}
	if err := s.store.Open(ctx, txn, s.maxOpenLoans); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		return nil, err
	}

	s.metrics.checkouts.Add(ctx, 1)
	s.logger.Info("book checked out",
		zap.Stringer("transaction_id", txn.ID),
		zap.Stringer("user_id", userID),
		zap.Stringer("book_id", bookID),
		zap.Time("due_date", txn.DueDate()),
	)
	return txn, nil
}

// Return closes an open transaction of the user, then notifies the user of the outcome.
// Delivery failures are logged and never undo the return.
func (s *service) Return(ctx context.Context, userID, transactionID uuid.UUID) (*Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("transaction.id", transactionID.String()),
	))
	defer span.End()

	returnedAt := s.instant()
	txn, err := s.store.Close(ctx, userID, transactionID, returnedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "return failed")
		return nil, err
	}

	receipt := &Receipt{
		Transaction: txn,
		Assessment:  Assess(txn.CheckoutDate, returnedAt),
	}
	span.SetAttributes(
		attribute.Bool("return.overdue", receipt.Overdue),
		attribute.Int("return.overdue_days", receipt.OverdueDays),
	)

	s.metrics.returns.Add(ctx, 1)
	if receipt.Overdue {
		s.metrics.overdueReturns.Add(ctx, 1)
		s.metrics.penalties.Add(ctx, receipt.Penalty)
	}
	s.logger.Info("book returned",
		zap.Stringer("transaction_id", txn.ID),
		zap.Stringer("user_id", txn.UserID),
		zap.Stringer("book_id", txn.BookID),
		zap.Bool("overdue", receipt.Overdue),
		zap.Int("overdue_days", receipt.OverdueDays),
		zap.Float64("penalty", receipt.Penalty),
	)

	s.notify(ctx, txn.UserID, receipt.Message())
	return receipt, nil
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, body string) {
	user, err := s.members.GetUser(ctx, userID)
	if err == nil {
		err = s.notifier.Notify(ctx, user.Email, NotificationSubject, body)
	}
	if err != nil {
		s.metrics.notificationFailures.Add(ctx, 1)
		s.logger.Warn("return notification not delivered",
			zap.Stringer("user_id", userID),
			zap.Error(err),
		)
	}
}

// ListMine returns every transaction of the user, open or closed.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]*Transaction, error) {
	txns, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// ListOverdueMine returns the user's open transactions that are past due now.
func (s *service) ListOverdueMine(ctx context.Context, userID uuid.UUID) ([]*Transaction, error) {
	txns, err := s.store.ListOverdueByUser(ctx, userID, OverdueCutoff(s.instant()))
	if err != nil {
		return nil, fmt.Errorf("list overdue transactions: %w", err)
	}
	return txns, nil
}

// History returns the event log of one of the user's transactions.
func (s *service) History(ctx context.Context, userID, transactionID uuid.UUID) ([]eventstore.Event, error) {
	return s.store.Events(ctx, userID, transactionID)
}
