package logqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
)

// LogSink writes every event as a structured log line.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs at info level.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "events").Logger()}
}

func (s *LogSink) Write(ctx context.Context, event model.Event) error {
	s.logger.Info().
		Str("event", event.EventName).
		Str("unit_id", event.User.UnitID()).
		Interface("value", event.Value).
		Interface("metadata", event.Metadata).
		Int("secondary_exposures", len(event.SecondaryExposures)).
		Time("occurred_at", event.Time).
		Msg("event")
	return nil
}

func (s *LogSink) Close() error { return nil }

// Execer is the subset of pgxpool.Pool used by PostgresSink.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertEventSQL = `INSERT INTO sdk_events
	(event_name, unit_id, user_data, value, metadata, secondary_exposures, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// PostgresSink inserts events into the sdk_events table.
type PostgresSink struct {
	db      Execer
	closeFn func()
}

// NewPostgresSink creates a sink on an existing pool. The pool is not closed by the sink.
func NewPostgresSink(db Execer) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Write(ctx context.Context, event model.Event) error {
	row, err := encodeRow(event)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, insertEventSQL,
		event.EventName, event.User.UnitID(), row.user, row.value, row.metadata, row.secondary, event.Time,
	); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// eventRow holds the JSON-encoded columns shared by the SQL sinks.
type eventRow struct {
	user      []byte
	value     []byte
	metadata  []byte
	secondary []byte
}

func encodeRow(event model.Event) (eventRow, error) {
	var (
		row eventRow
		err error
	)
	if row.user, err = json.Marshal(event.User); err != nil {
		return row, fmt.Errorf("failed to encode user: %w", err)
	}
	if row.value, err = json.Marshal(event.Value); err != nil {
		return row, fmt.Errorf("failed to encode value: %w", err)
	}
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	if row.metadata, err = json.Marshal(metadata); err != nil {
		return row, fmt.Errorf("failed to encode metadata: %w", err)
	}
	secondary := event.SecondaryExposures
	if secondary == nil {
		secondary = []model.SecondaryExposure{}
	}
	if row.secondary, err = json.Marshal(secondary); err != nil {
		return row, fmt.Errorf("failed to encode secondary exposures: %w", err)
	}
	return row, nil
}
