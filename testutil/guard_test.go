package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithin(t *testing.T) {
	match := Within("internal/blob", "/internal/index/")
	cases := map[string]bool{
		"plicore/internal/blob":             true,
		"plicore/internal/blob/core":        true,
		"plicore/internal/index":            true,
		"plicore/internal/blobstore":        false,
		"plicore/internal/infra/blob/fs":    false,
		"example.com/plicore/internal/blob": false,
	}
	for in, want := range cases {
		if got := match(in); got != want {
			t.Fatalf("Within(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestModuleInternal(t *testing.T) {
	cases := map[string]bool{
		"plicore/internal/chem":     true,
		"plicore/pkg/domain":        false,
		"crypto/internal/fips140":   false,
		"other.org/x/internal/util": false,
	}
	for in, want := range cases {
		if got := ModuleInternal(in); got != want {
			t.Fatalf("ModuleInternal(%q) = %v, want %v", in, got, want)
		}
	}
}

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writePkg(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

func TestDirectImportViolations(t *testing.T) {
	dir := writePkg(t, map[string]string{
		"a.go":      "package tmp\n\nimport (\n\t\"fmt\"\n\t\"plicore/internal/blob\"\n)\n\nvar _ = fmt.Sprint\n",
		"b.go":      "package tmp\n\nimport \"plicore/internal/chem\"\n",
		"a_test.go": "package tmp\n\nimport \"plicore/internal/index\"\n",
		"notes.txt": "import \"plicore/internal/index\"",
	})
	viols, err := directImportViolations(dir, Within("internal/blob", "internal/index"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "plicore/internal/blob (in a.go)" {
		t.Fatalf("violations = %v", viols)
	}

	AssertNoDirectImports(t, dir, Within("internal/index"), "test files are ignored")

	var r recorder
	failIf(&r, "direct import", "storage", viols)
	if !strings.Contains(r.msg, "storage") || !strings.Contains(r.msg, "a.go") {
		t.Fatalf("message = %q", r.msg)
	}
}

func TestDirectImportViolationsParseError(t *testing.T) {
	dir := writePkg(t, map[string]string{"bad.go": "package tmp\nimport (\n"})
	if _, err := directImportViolations(dir, ModuleInternal); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAssertNoTransitiveDependencyUsesGoList(t *testing.T) {
	prev := goListDeps
	t.Cleanup(func() { goListDeps = prev })
	goListDeps = func(pattern string) ([]byte, error) {
		if pattern != "./internal/annotate" {
			t.Fatalf("pattern = %q", pattern)
		}
		return []byte("fmt\nplicore/internal/chem\n\nplicore/pkg/domain\n"), nil
	}
	AssertNoTransitiveDependency(t, "./internal/annotate", Within("internal/blob"), "clean graph")
}
