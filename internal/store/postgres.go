package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool used by PostgresStore.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS specs (
	name TEXT NOT NULL,
	env TEXT NOT NULL,
	kind TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	enabled BOOLEAN NOT NULL DEFAULT FALSE,
	rollout INTEGER NOT NULL DEFAULT 0,
	salt TEXT NOT NULL DEFAULT '',
	expression TEXT,
	requires_gate TEXT NOT NULL DEFAULT '',
	config JSONB NOT NULL DEFAULT '{}',
	variants JSONB NOT NULL DEFAULT '[]',
	delegate TEXT NOT NULL DEFAULT '',
	explicit_parameters JSONB NOT NULL DEFAULT '[]',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (env, name)
)`

const specColumns = `name, env, kind, description, enabled, rollout, salt, expression,
	requires_gate, config, variants, delegate, explicit_parameters, updated_at`

const upsertSpecSQL = `INSERT INTO specs (` + specColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
	ON CONFLICT (env, name) DO UPDATE SET
		kind = EXCLUDED.kind,
		description = EXCLUDED.description,
		enabled = EXCLUDED.enabled,
		rollout = EXCLUDED.rollout,
		salt = EXCLUDED.salt,
		expression = EXCLUDED.expression,
		requires_gate = EXCLUDED.requires_gate,
		config = EXCLUDED.config,
		variants = EXCLUDED.variants,
		delegate = EXCLUDED.delegate,
		explicit_parameters = EXCLUDED.explicit_parameters,
		updated_at = now()`

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	db      Querier
	closeFn func()
}

// NewPostgresStore creates a store on top of db. closeFn, if not nil, is
// called by Close (typically pool.Close).
func NewPostgresStore(db Querier, closeFn func()) *PostgresStore {
	return &PostgresStore{db: db, closeFn: closeFn}
}

// Migrate creates the specs table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create specs table: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetAllSpecs(ctx context.Context, env string) ([]Spec, error) {
	rows, err := p.db.Query(ctx, `SELECT `+specColumns+` FROM specs WHERE env = $1 ORDER BY name`, env)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	specs := make([]Spec, 0)
	for rows.Next() {
		spec, err := scanSpec(rows)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

func (p *PostgresStore) GetSpec(ctx context.Context, name, env string) (*Spec, error) {
	row := p.db.QueryRow(ctx, `SELECT `+specColumns+` FROM specs WHERE name = $1 AND env = $2`, name, env)
	spec, err := scanSpec(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &spec, nil
}

func (p *PostgresStore) UpsertSpec(ctx context.Context, params UpsertParams) error {
	config, variants, explicit, err := encodeJSONColumns(params)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, upsertSpecSQL,
		params.Name, params.Env, string(params.Kind), params.Description, params.Enabled,
		params.Rollout, params.Salt, params.Expression, params.RequiresGate, config, variants, params.Delegate, explicit,
	)
	return err
}

func (p *PostgresStore) DeleteSpec(ctx context.Context, name, env string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM specs WHERE name = $1 AND env = $2`, name, env)
	return err
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}

func encodeJSONColumns(params UpsertParams) (config, variants, explicit []byte, err error) {
	cfg := params.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	if config, err = json.Marshal(cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	vs := params.Variants
	if vs == nil {
		vs = []Variant{}
	}
	if variants, err = json.Marshal(vs); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid variants: %w", err)
	}
	ps := params.ExplicitParameters
	if ps == nil {
		ps = []string{}
	}
	if explicit, err = json.Marshal(ps); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid explicit parameters: %w", err)
	}
	return config, variants, explicit, nil
}

// scanSpec converts one row (in specColumns order) into a Spec.
func scanSpec(row pgx.Row) (Spec, error) {
	var (
		spec                       Spec
		kind                       string
		config, variants, explicit []byte
		updatedAt                  time.Time
	)
	if err := row.Scan(
		&spec.Name, &spec.Env, &kind, &spec.Description, &spec.Enabled, &spec.Rollout,
		&spec.Salt, &spec.Expression, &spec.RequiresGate, &config, &variants, &spec.Delegate, &explicit, &updatedAt,
	); err != nil {
		return Spec{}, err
	}
	spec.Kind = Kind(kind)
	spec.UpdatedAt = updatedAt

	if len(config) > 0 {
		if err := json.Unmarshal(config, &spec.Config); err != nil {
			return Spec{}, fmt.Errorf("invalid config for %s: %w", spec.Name, err)
		}
	}
	if len(variants) > 0 {
		if err := json.Unmarshal(variants, &spec.Variants); err != nil {
			return Spec{}, fmt.Errorf("invalid variants for %s: %w", spec.Name, err)
		}
	}
	if len(explicit) > 0 {
		if err := json.Unmarshal(explicit, &spec.ExplicitParameters); err != nil {
			return Spec{}, fmt.Errorf("invalid explicit parameters for %s: %w", spec.Name, err)
		}
	}
	return spec, nil
}
