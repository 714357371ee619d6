// internal/eventlog/eventlog.go
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Event is one entry of an aggregate's append-only history.
type Event struct {
	ID            int64           `json:"id" db:"id"`
	AggregateID   int64           `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string          `json:"aggregate_type" db:"aggregate_type"`
	EventType     string          `json:"event_type" db:"event_type"`
	EventData     json.RawMessage `json:"event_data" db:"event_data"`
	Metadata      json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	Version       int             `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// New builds an event with data marshalled to JSON.
func New(aggregateType, eventType string, aggregateID int64, data any, metadata map[string]string) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event data: %w", err)
	}
	ev := Event{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		EventData:     raw,
	}
	if len(metadata) > 0 {
		if ev.Metadata, err = json.Marshal(metadata); err != nil {
			return Event{}, fmt.Errorf("marshal event metadata: %w", err)
		}
	}
	return ev, nil
}

// Log appends and loads events through the caller's transaction, so events
// commit or roll back together with the state change they describe.
type Log struct {
	tracer trace.Tracer
	now    func() time.Time
}

func NewLog() *Log {
	return &Log{
		tracer: otel.Tracer("libranexus/eventlog"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Append writes events after checking that the aggregate is at expectedVersion.
func (l *Log) Append(ctx context.Context, q sqlx.ExtContext, aggregateID int64, aggregateType string, expectedVersion int, events ...Event) error {
	ctx, span := l.tracer.Start(ctx, "eventlog.append",
		trace.WithAttributes(
			attribute.Int64("aggregate.id", aggregateID),
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
	err := q.QueryRowxContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM lending_events
		WHERE aggregate_id = $1 AND aggregate_type = $2
	`, aggregateID, aggregateType).Scan(&currentVersion)
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

	for i, event := range events {
		version := expectedVersion + i + 1
		var metadata any
		if len(event.Metadata) > 0 {
			metadata = []byte(event.Metadata)
		}

		var eventID int64
		err := q.QueryRowxContext(ctx, `
			INSERT INTO lending_events (aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, aggregateID, aggregateType, event.EventType, []byte(event.EventData), metadata, version, l.now()).Scan(&eventID)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
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

	return nil
}

// Load returns the aggregate's events in version order.
func (l *Log) Load(ctx context.Context, q sqlx.QueryerContext, aggregateID int64, aggregateType string) ([]Event, error) {
	ctx, span := l.tracer.Start(ctx, "eventlog.load",
		trace.WithAttributes(
			attribute.Int64("aggregate.id", aggregateID),
			attribute.String("aggregate.type", aggregateType),
		),
	)
	defer span.End()

	var events []Event
	err := sqlx.SelectContext(ctx, q, &events, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, COALESCE(metadata, 'null'::jsonb) AS metadata, version, created_at
		FROM lending_events
		WHERE aggregate_id = $1 AND aggregate_type = $2
		ORDER BY version ASC
	`, aggregateID, aggregateType)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}
