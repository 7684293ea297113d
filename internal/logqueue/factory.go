package logqueue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/db"
)

// SinkOptions selects and configures a sink.
type SinkOptions struct {
	Type          string // log, postgres, sqlite or webhook
	DSN           string
	SQLitePath    string
	WebhookURL    string
	WebhookSecret string
	Logger        zerolog.Logger
}

// NewSink creates the sink named by opts.Type.
func NewSink(ctx context.Context, opts SinkOptions) (Sink, error) {
	switch opts.Type {
	case "", "log":
		return NewLogSink(opts.Logger), nil

	case "postgres":
		if opts.DSN == "" {
			return nil, fmt.Errorf("DSN is required for postgres sink")
		}
		pool, err := db.NewPool(ctx, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		sink := NewPostgresSink(pool)
		sink.closeFn = pool.Close
		return sink, nil

	case "sqlite":
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("path is required for sqlite sink")
		}
		sink, err := NewSQLiteSink(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sink, nil

	case "webhook":
		if opts.WebhookURL == "" {
			return nil, fmt.Errorf("URL is required for webhook sink")
		}
		return NewWebhookSink(opts.WebhookURL, opts.WebhookSecret, 0), nil

	default:
		return nil, fmt.Errorf("unknown sink type: %s (supported: log, postgres, sqlite, webhook)", opts.Type)
	}
}
