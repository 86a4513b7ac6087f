// Package sqlite provides the SQLite-backed annotation index.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"plicore/internal/infra/persistence/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const defaultPath = "plicore-index.db"

var dialect = sqlstore.Dialect{Goose: goose.DialectSQLite3}

// Store is the SQLite annotation index.
type Store struct {
	*sqlstore.Store
	path string
}

// Open opens (creating if needed) the database at path and applies the
// schema migrations. An empty path uses plicore-index.db.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers and keeps ":memory:" databases whole.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: sqlstore.New(db, dialect), path: path}, nil
}

// RunMigrations applies the embedded schema to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return sqlstore.Migrate(ctx, db, dialect, sub)
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
