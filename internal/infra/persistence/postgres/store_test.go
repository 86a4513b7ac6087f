package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"plicore/internal/index/indextest"
)

// OverrideSQLOpen swaps the sql.Open used by Open and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

type downDriver struct{}

func (downDriver) Open(string) (driver.Conn, error) { return nil, errors.New("connection refused") }

var downSeq atomic.Int64

func TestOpenReportsUnreachableServer(t *testing.T) {
	name := fmt.Sprintf("pgdown%d", downSeq.Add(1))
	sql.Register(name, downDriver{})
	var gotDSN string
	restore := OverrideSQLOpen(func(_, dsn string) (*sql.DB, error) {
		gotDSN = dsn
		return sql.Open(name, dsn)
	})
	defer restore()
	_, err := Open(context.Background(), "")
	if err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
	if gotDSN != defaultDSN {
		t.Fatalf("dsn = %q, want default", gotDSN)
	}
}

func TestOpenReportsDriverError(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("bad dsn") })
	defer restore()
	if _, err := Open(context.Background(), "postgres://x"); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestStoreContract(t *testing.T) {
	dsn := os.Getenv("PLICORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PLICORE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	for _, table := range []string{"audit", "system_ligands", "systems", "entries", "runs"} {
		if _, err := s.DB().ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
	indextest.Run(t, s)
}
