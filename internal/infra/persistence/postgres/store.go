// Package postgres provides the Postgres-backed annotation index.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/pressly/goose/v3"

	"plicore/internal/infra/persistence/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/plicore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
	dialect = sqlstore.Dialect{Goose: goose.DialectPostgres, Numbered: true}
)

// Store is the Postgres annotation index.
type Store struct {
	*sqlstore.Store
}

// Open connects using dsn (falling back to a local default), checks the
// connection and applies the schema migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := sqlstore.Migrate(ctx, db, dialect, sub); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: sqlstore.New(db, dialect)}, nil
}
