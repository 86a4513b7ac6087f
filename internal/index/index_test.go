package index

import (
	"context"
	"path/filepath"
	"testing"

	"plicore/internal/index/indextest"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, Config{Driver: DriverNone})
	if err != nil || idx != nil {
		t.Fatalf("none driver = %v, %v", idx, err)
	}
	if _, err := Open(ctx, Config{Driver: "mongo"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	indextest.Run(t, mem)

	lite, err := Open(ctx, Config{Driver: "SQLite", DSN: filepath.Join(t.TempDir(), "nested", "index.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer lite.Close()
	indextest.Run(t, lite)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PLICORE_INDEX_DRIVER", "")
	t.Setenv("PLICORE_INDEX_DSN", "")
	if cfg := ConfigFromEnv(); cfg.Driver != DriverNone {
		t.Fatalf("default driver = %q", cfg.Driver)
	}
	t.Setenv("PLICORE_INDEX_DRIVER", " Postgres ")
	t.Setenv("PLICORE_INDEX_DSN", "postgres://db/plicore")
	cfg := ConfigFromEnv()
	if cfg.Driver != DriverPostgres || cfg.DSN != "postgres://db/plicore" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
