package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plicore/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

const systemKey = "6lu7__1__1.A__1.B/ligand_files/1.B.sdf"

func TestStore_PutGetHeadListDelete(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, systemKey, strings.NewReader("mol\n$$$$\n"), core.PutOptions{Metadata: map[string]string{"system_id": "6lu7__1__1.A__1.B"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != systemKey || info.Size != 9 || info.ContentType != "chemical/x-mdl-sdfile" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "6lu7__1__1.A__1.B", "ligand_files", "1.B.sdf")); err != nil {
		t.Fatalf("artifact not at its key path: %v", err)
	}
	if _, err := store.Put(ctx, systemKey, strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	h, err := store.Head(ctx, systemKey)
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	g, rc, err := store.Get(ctx, systemKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(b) != "mol\n$$$$\n" || g.ETag != h.ETag || g.Metadata["system_id"] != "6lu7__1__1.A__1.B" {
		t.Fatalf("unexpected get result %+v", g)
	}
	list, err := store.List(ctx, "6lu7__1__1.A__1.B/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != systemKey {
		t.Fatalf("sidecars leaked into list: %+v", list)
	}
	url, err := store.PresignURL(ctx, systemKey, core.SignedURLOptions{})
	if err != nil || !strings.HasPrefix(url, "file://") {
		t.Fatalf("presign url: %v %s", err, url)
	}
	if _, err := store.PresignURL(ctx, systemKey, core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported PUT presign, got %v", err)
	}
	ok, err := store.Delete(ctx, systemKey)
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, systemKey)
	if err != nil || ok {
		t.Fatalf("second delete should be false")
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "6lu7__1__1.A__1.B")); !os.IsNotExist(err) {
		t.Fatalf("empty system folder not pruned: %v", err)
	}
	if _, _, err := store.Get(ctx, systemKey); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "1abc__status.json", strings.NewReader(`{"status":"failed"}`), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, err := store.Put(ctx, "1abc__status.json", strings.NewReader(`{"status":"success"}`), core.PutOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if info.ContentType != "application/json" || info.Size != int64(len(`{"status":"success"}`)) {
		t.Fatalf("unexpected info %+v", info)
	}
	_, rc, err := store.Get(ctx, "1abc__status.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if !bytes.Contains(b, []byte("success")) {
		t.Fatalf("content = %s", b)
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"", "../escape.txt", "/abs.pdb", "a/../../b", ".meta/x.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestStore_ListForeignFiles(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if err := os.MkdirAll(filepath.Join(store.Root(), "sys"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), "sys", "receptor.pdb"), []byte("END\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	list, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ContentType != "chemical/x-pdb" || list[0].Size != 4 {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestStore_CorruptSidecar(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "sys/sequences.fasta", strings.NewReader(">1.A\nAAAA\n"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	side := filepath.Join(store.Root(), metaDir, "sys", "sequences.fasta.json")
	if err := os.WriteFile(side, []byte("{"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := store.Head(ctx, "sys/sequences.fasta"); err == nil {
		t.Fatalf("expected sidecar decode error")
	}
	if _, err := store.List(ctx, "sys/"); err == nil {
		t.Fatalf("expected list error")
	}
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "out")
	if _, err := New(root); err != nil {
		t.Fatalf("New: %v", err)
	}
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(filepath.Join(file, "sub")); err == nil {
		t.Fatalf("expected error when root is below a file")
	}
}
