// Package index opens the annotation index selected by configuration. It is
// the only package allowed to import the persistence drivers.
package index

import (
	"context"
	"fmt"
	"os"
	"strings"

	"plicore/internal/infra/persistence/memory"
	"plicore/internal/infra/persistence/postgres"
	"plicore/internal/infra/persistence/sqlite"
	"plicore/pkg/domain"
)

// Drivers.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects an index driver. DSN is the database path for sqlite and
// the connection string for postgres.
type Config struct {
	Driver string
	DSN    string
}

// ConfigFromEnv reads PLICORE_INDEX_DRIVER (default none) and
// PLICORE_INDEX_DSN.
func ConfigFromEnv() Config {
	cfg := Config{Driver: DriverNone, DSN: os.Getenv("PLICORE_INDEX_DSN")}
	if v := strings.TrimSpace(os.Getenv("PLICORE_INDEX_DRIVER")); v != "" {
		cfg.Driver = strings.ToLower(v)
	}
	return cfg
}

// Open returns the configured index. Driver "none" (or empty) returns a nil
// index and no error; callers skip indexing.
func Open(ctx context.Context, cfg Config) (domain.AnnotationIndex, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Driver)
	}
}
