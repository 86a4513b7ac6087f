package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"plicore/internal/mmp"
	"plicore/pkg/domain"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(context.Background(), append([]string{"plicore"}, args...))
	return stdout.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// inputs returns a parseable entry and one that fails to parse.
func inputs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	raw, err := os.ReadFile(filepath.Join("testdata", "1abc.cif"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	good := writeFile(t, filepath.Join(dir, "1abc.cif"), string(raw))
	bad := writeFile(t, filepath.Join(dir, "9bad.cif.gz"), "not an mmCIF file")
	return good, bad
}

func TestAnnotateRecordsEntriesInIndex(t *testing.T) {
	good, bad := inputs(t)
	save := filepath.Join(t.TempDir(), "out")
	db := filepath.Join(t.TempDir(), "index.db")
	global := []string{"--log-level", "error", "--save-folder", save, "--index-driver", "sqlite", "--index-dsn", db}

	out, err := runApp(t, append(global, "annotate", "--min-polymer-size", "2", "--workers", "2", good, bad)...)
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	for _, want := range []string{"1abc", "9bad", "failed", "run"} {
		if !strings.Contains(out, want) {
			t.Fatalf("annotate output missing %q:\n%s", want, out)
		}
	}
	for _, id := range []string{"1abc", "9bad"} {
		if _, err := os.Stat(filepath.Join(save, id+"__status.json")); err != nil {
			t.Fatalf("status file for %s: %v", id, err)
		}
	}

	out, err = runApp(t, append(global, "status", "--json", "9bad", "1abc")...)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var reports []domain.EntryReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if len(reports) != 2 || reports[0].Status != domain.StatusFailed || reports[1].Status == domain.StatusFailed {
		t.Fatalf("reports = %+v", reports)
	}
	if reports[0].RunID == "" || reports[0].RunID != reports[1].RunID {
		t.Fatalf("run ids = %q, %q", reports[0].RunID, reports[1].RunID)
	}

	out, err = runApp(t, append(global, "entries", "--status", "failed")...)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if !strings.Contains(out, "9bad") || strings.Contains(out, "1abc") {
		t.Fatalf("entries output:\n%s", out)
	}

	out, err = runApp(t, append(global, "audit", reports[0].RunID)...)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	for _, want := range []string{domain.AuditRunStarted, domain.AuditEntryRejected, domain.AuditRunFinished} {
		if !strings.Contains(out, want) {
			t.Fatalf("audit output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusReadsArtifactsWithoutIndex(t *testing.T) {
	_, bad := inputs(t)
	save := t.TempDir()
	if _, err := runApp(t, "--log-level", "error", "--save-folder", save, "annotate", bad); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	out, err := runApp(t, "--save-folder", save, "status", "9bad")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "failed") {
		t.Fatalf("status output:\n%s", out)
	}
	if _, err := runApp(t, "--save-folder", save, "status", "0000"); err == nil {
		t.Fatalf("expected error for unknown entry")
	}
}

func TestQueryCommandsNeedIndex(t *testing.T) {
	save := t.TempDir()
	for _, args := range [][]string{{"entries"}, {"systems"}, {"audit", "run-1"}} {
		_, err := runApp(t, append([]string{"--save-folder", save, "--index-driver", "none"}, args...)...)
		if err == nil || !strings.Contains(err.Error(), "index") {
			t.Fatalf("%v: err = %v", args, err)
		}
	}
}

func TestShowUnknownSystem(t *testing.T) {
	_, err := runApp(t, "--save-folder", t.TempDir(), "show", "1abc__1__1.A__1.B")
	if err == nil || !strings.Contains(err.Error(), "no artifacts") {
		t.Fatalf("err = %v", err)
	}
}

func TestAnnotateRejectsBadConfig(t *testing.T) {
	good, _ := inputs(t)
	cases := map[string][]string{
		"blob driver": {"--blob-driver", "ftp", "annotate", good},
		"threshold":   {"--save-folder", t.TempDir(), "annotate", "--neighboring-residue-threshold", "0", good},
		"log level":   {"--save-folder", t.TempDir(), "--log-level", "loud", "annotate", good},
		"no inputs":   {"--save-folder", t.TempDir(), "annotate"},
		"missing":     {"--save-folder", t.TempDir(), "annotate", filepath.Join(t.TempDir(), "nope.cif")},
	}
	for name, args := range cases {
		if _, err := runApp(t, args...); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestMMPJoinCommand(t *testing.T) {
	dir := t.TempDir()
	constant := "*c1ccc(cc1)C(=O)Nc1ccccc1"
	pairs := writeFile(t, filepath.Join(dir, "pairs.tsv"), strings.Join([]string{
		"SMILES1\tSMILES2\tid1\tid2\tV1>>V2\tCONSTANT",
		"Cc1ccc(cc1)C(=O)Nc1ccccc1\tOc1ccc(cc1)C(=O)Nc1ccccc1\tl1\tl2\t[*:1]C>>[*:1]O\t" + constant,
		"CC\tCO\tl1\tl3\t[*:1]C>>[*:1]O\t" + constant,
		"",
	}, "\n"))
	systems := writeFile(t, filepath.Join(dir, "systems.tsv"), "id\tsystem_id\nl1\tsysA\nl2\tsysB\nl3\tsysC\n")
	opts := mmp.DefaultOptions()
	clusters := filepath.Join(dir, "clusters")
	writeFile(t, mmp.ClusterPath(clusters, opts.ProteinMetric, opts.ProteinThreshold, opts.ProteinDirected),
		"system_id\tlabel\nsysA\tc1\nsysB\tc1\nsysC\tc2\n")
	writeFile(t, mmp.ClusterPath(clusters, opts.PocketMetric, opts.PocketThreshold, opts.PocketDirected),
		"system_id\tlabel\nsysA\tp1\nsysB\tp1\nsysC\tp1\n")

	out := filepath.Join(dir, "out.tsv")
	if _, err := runApp(t, "mmp", "join", "--pairs", pairs, "--clusters-dir", clusters, "--system-map", systems, "--out", out); err != nil {
		t.Fatalf("mmp join: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d:\n%s", len(lines), raw)
	}
	got := strings.Split(lines[1], "\t")
	want := []string{"l1", "l2", "sysA", "sysB", "c1_p1", "15", "0"}
	if !reflect.DeepEqual([]string{got[2], got[3], got[6], got[7], got[8], got[9], got[10]}, want) {
		t.Fatalf("row = %v", got)
	}

	stdout, err := runApp(t, "mmp", "join", "--pairs", pairs, "--clusters-dir", clusters, "--system-map", systems, "--min-constant-size", "16")
	if err != nil {
		t.Fatalf("mmp join stdout: %v", err)
	}
	if n := len(strings.Split(strings.TrimSpace(stdout), "\n")); n != 1 {
		t.Fatalf("expected header only, got %d lines:\n%s", n, stdout)
	}
}

func TestInputPathsExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b", "2xyz.cif.gz"), "")
	writeFile(t, filepath.Join(dir, "a", "1abc.CIF"), "")
	writeFile(t, filepath.Join(dir, "a", "notes.txt"), "")
	single := writeFile(t, filepath.Join(t.TempDir(), "entry.mmcif"), "")

	got, err := inputPaths([]string{single, dir})
	if err != nil {
		t.Fatalf("inputPaths: %v", err)
	}
	want := []string{single, filepath.Join(dir, "a", "1abc.CIF"), filepath.Join(dir, "b", "2xyz.cif.gz")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
}

func TestValidationEntryID(t *testing.T) {
	cases := map[string]string{
		"/data/6lu7_validation.xml.gz": "6lu7",
		"1QZ5.xml":                     "1qz5",
		"validation":                   "validation",
	}
	for in, want := range cases {
		if got := validationEntryID(in); got != want {
			t.Fatalf("validationEntryID(%q) = %q, want %q", in, got, want)
		}
	}
}
