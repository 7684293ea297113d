package logqueue

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
)

// SQLiteSink appends events to a local SQLite file.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path and its events table.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sdk_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_name TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		user_data TEXT NOT NULL,
		value TEXT,
		metadata TEXT NOT NULL,
		secondary_exposures TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(ctx context.Context, event model.Event) error {
	row, err := encodeRow(event)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sdk_events
		(event_name, unit_id, user_data, value, metadata, secondary_exposures, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.EventName, event.User.UnitID(), string(row.user), string(row.value),
		string(row.metadata), string(row.secondary), event.Time.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Count returns the number of stored events with the given name, or all events when name is empty.
func (s *SQLiteSink) Count(ctx context.Context, name string) (int, error) {
	var n int
	var err error
	if name == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sdk_events`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sdk_events WHERE event_name = ?`, name).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
