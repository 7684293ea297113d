package store

import (
	"context"
	"fmt"

	mydb "github.com/TimurManjosov/goflagship-server-sdk/internal/db"
)

// NewStore creates a new store based on the given store type.
// Supported types: "memory", "postgres". The postgres store creates its
// table on first use.
func NewStore(ctx context.Context, storeType, dbDSN string) (Store, error) {
	switch storeType {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		pool, err := mydb.NewPool(ctx, dbDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		st := NewPostgresStore(pool, pool.Close)
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
