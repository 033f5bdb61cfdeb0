package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"librarydesk/internal/database"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Event represents a domain event with full metadata
type Event struct {
	ID            int64                  `json:"id"`
	AggregateID   uuid.UUID              `json:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type"`
	EventType     string                 `json:"event_type"`
	EventData     json.RawMessage        `json:"event_data"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Version       int                    `json:"version"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewEvent encodes data as the payload of an event of the given type.
func NewEvent(eventType string, data interface{}) (Event, error) {
	payload, err := codec.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{EventType: eventType, EventData: payload}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v interface{}) error {
	return codec.Unmarshal(e.EventData, v)
}

type eventRow struct {
	ID            int64     `db:"id"`
	AggregateID   uuid.UUID `db:"aggregate_id"`
	AggregateType string    `db:"aggregate_type"`
	EventType     string    `db:"event_type"`
	EventData     []byte    `db:"event_data"`
	Metadata      []byte    `db:"metadata"`
	Version       int       `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

// EventStore is an append-only log of domain events keyed by aggregate.
type EventStore struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{
		db:     db,
		tracer: otel.Tracer("librarydesk/eventstore"),
	}
}

// Append atomically appends events in its own serializable transaction.
func (es *EventStore) Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	tx, err := es.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := es.AppendTx(ctx, tx, aggregateID, aggregateType, expectedVersion, events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AppendTx appends events inside the caller's transaction with optimistic concurrency control.
// The events become visible only when the caller commits.
func (es *EventStore) AppendTx(ctx context.Context, tx *sqlx.Tx, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	ctx, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	var currentVersion int
	err := tx.GetContext(ctx, &currentVersion, `
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_id = $1
	`, aggregateID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("query current version: %w", err)
	}

	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, event := range events {
		version := expectedVersion + i + 1
		metadataJSON, err := codec.Marshal(withTraceID(span, event.Metadata))
		if err != nil {
			return fmt.Errorf("marshal metadata %d: %w", i, err)
		}

		var eventID int64
		err = stmt.QueryRowxContext(
			ctx,
			aggregateID,
			aggregateType,
			event.EventType,
			string(event.EventData),
			string(metadataJSON),
			version,
			time.Now().UTC(),
		).Scan(&eventID)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("insert event %d: %w", i, err)
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", eventID),
			attribute.Int("event.version", version),
			attribute.String("event.type", event.EventType),
		))
	}

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// Load returns all events of an aggregate in version order.
func (es *EventStore) Load(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	var rows []eventRow
	err := es.db.SelectContext(ctx, &rows, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at
		FROM events
		WHERE aggregate_id = $1
		ORDER BY version ASC
	`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		event := Event{
			ID:            row.ID,
			AggregateID:   row.AggregateID,
			AggregateType: row.AggregateType,
			EventType:     row.EventType,
			EventData:     json.RawMessage(row.EventData),
			Version:       row.Version,
			CreatedAt:     row.CreatedAt,
		}
		if len(row.Metadata) > 0 {
			if err := codec.Unmarshal(row.Metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of event %d: %w", row.ID, err)
			}
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

func withTraceID(span trace.Span, metadata map[string]interface{}) map[string]interface{} {
	sc := span.SpanContext()
	if !sc.HasTraceID() {
		return metadata
	}
	out := make(map[string]interface{}, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out["trace_id"] = sc.TraceID().String()
	return out
}
