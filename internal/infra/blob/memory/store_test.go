package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"plicore/internal/blob/core"
)

func TestStore_MissingHeadGet(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); ok || err != nil {
		t.Fatalf("delete missing = %v %v", ok, err)
	}
}

func TestStore_PutGetListOverwrite(t *testing.T) {
	store := New()
	ctx := context.Background()
	md := map[string]string{"system_id": "1abc__1__1.A__1.B"}
	info, err := store.Put(ctx, "1abc__1__1.A__1.B/receptor.cif", strings.NewReader("data_receptor\n"), core.PutOptions{Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ContentType != "chemical/x-mmcif" || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	md["system_id"] = "mutated"
	got, rc, err := store.Get(ctx, "1abc__1__1.A__1.B/receptor.cif")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "data_receptor\n" || got.Metadata["system_id"] != "1abc__1__1.A__1.B" {
		t.Fatalf("stored copy not isolated: %q %+v", b, got)
	}
	if _, err := store.Put(ctx, "1abc__1__1.A__1.B/receptor.cif", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Put(ctx, "1abc__1__1.A__1.B/receptor.cif", strings.NewReader("y"), core.PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := store.Put(ctx, "1abc__annotation.tsv", strings.NewReader("system_id\n"), core.PutOptions{}); err != nil {
		t.Fatalf("put tsv: %v", err)
	}
	list, _ := store.List(ctx, "1abc__1__")
	if len(list) != 1 || list[0].Size != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
	if keys := store.Keys(); len(keys) != 2 || keys[0] != "1abc__1__1.A__1.B/receptor.cif" {
		t.Fatalf("keys = %v", keys)
	}
	if _, err := store.PresignURL(ctx, "1abc__annotation.tsv", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign")
	}
	if _, err := store.Put(ctx, "../x", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

func TestStore_ConcurrentSystems(t *testing.T) {
	store := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("sys%02d/system.cif", i)
			if _, err := store.Put(ctx, key, strings.NewReader("data_system\n"), core.PutOptions{}); err != nil {
				t.Errorf("put %s: %v", key, err)
			}
		}()
	}
	wg.Wait()
	if n := len(store.Keys()); n != 16 {
		t.Fatalf("keys = %d, want 16", n)
	}
}
