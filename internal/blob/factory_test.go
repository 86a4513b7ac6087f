package blob

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fsStore, err := Open(ctx, Config{Driver: DriverFilesystem, FSRoot: root})
	if err != nil || fsStore.Driver() != DriverFilesystem {
		t.Fatalf("fs: %v", err)
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("memory: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if _, err := Open(ctx, Config{Driver: "tape"}); err == nil || !strings.Contains(err.Error(), "tape") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PLICORE_BLOB_DRIVER", "")
	t.Setenv("PLICORE_BLOB_FS_ROOT", t.TempDir())
	cfg := ConfigFromEnv()
	if cfg.Driver != DriverFilesystem {
		t.Fatalf("default driver = %q", cfg.Driver)
	}
	store, err := OpenFromEnv(context.Background())
	if err != nil || store.Driver() != DriverFilesystem {
		t.Fatalf("OpenFromEnv: %v", err)
	}
	t.Setenv("PLICORE_BLOB_DRIVER", "memory")
	store, err = OpenFromEnv(context.Background())
	if err != nil || store.Driver() != DriverMemory {
		t.Fatalf("OpenFromEnv memory: %v", err)
	}
	t.Setenv("PLICORE_BLOB_DRIVER", "s3")
	t.Setenv("PLICORE_BLOB_S3_BUCKET", "plinder")
	if got := ConfigFromEnv().S3.Bucket; got != "plinder" {
		t.Fatalf("s3 bucket = %q", got)
	}
}

func TestDriversAgreeOnSemantics(t *testing.T) {
	ctx := context.Background()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	stores := map[string]Store{"fs": fsStore, "memory": NewMemory(), "s3": NewMockS3ForTests("p")}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			key := "1abc__1__1.A__1.B/chain_mapping.json"
			if _, err := s.Put(ctx, key, strings.NewReader(`{"1.A":"A"}`), PutOptions{}); err != nil {
				t.Fatalf("put: %v", err)
			}
			if _, err := s.Put(ctx, key, strings.NewReader("{}"), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			info, err := s.Head(ctx, key)
			if err != nil || info.ContentType != ContentTypeFor(key) {
				t.Fatalf("head: %v %+v", err, info)
			}
			list, err := s.List(ctx, "1abc__1__")
			if err != nil || len(list) != 1 || list[0].Key != key {
				t.Fatalf("list: %v %+v", err, list)
			}
			if ok, err := s.Delete(ctx, key); err != nil || !ok {
				t.Fatalf("delete: %v %v", ok, err)
			}
			if _, err := s.Head(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}
