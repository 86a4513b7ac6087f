package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"plicore/internal/annotate"
	"plicore/internal/batch"
	"plicore/internal/core"
	"plicore/internal/structure/mmcif"
	"plicore/internal/tables"
	"plicore/internal/validation"
)

func (a *app) annotateCommand() *cli.Command {
	return &cli.Command{
		Name:      "annotate",
		Usage:     "Annotate entries and write system artifacts",
		ArgsUsage: "<entry.cif[.gz] | directory>...",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "neighboring-residue-threshold", Usage: "receptor-ligand contact distance (Å)"},
			&cli.FloatFlag{Name: "neighboring-ligand-threshold", Usage: "ligand-ligand merge distance (Å)"},
			&cli.FloatFlag{Name: "crystal-contact-threshold", Usage: "symmetry mate contact distance (Å)"},
			&cli.IntFlag{Name: "min-polymer-size", Usage: "residues below which a polymer is a ligand"},
			&cli.BoolFlag{Name: "skip-posebusters", Usage: "skip ligand pose checks"},
			&cli.BoolFlag{Name: "add-hydrogens", Usage: "keep hydrogens in ligand SDF files"},
			&cli.IntFlag{Name: "workers", Usage: "entries processed concurrently (0 uses all CPUs)"},
			&cli.StringFlag{Name: "validation", Usage: "validation report, table or directory of them"},
			&cli.StringFlag{Name: "affinity", Usage: "binding affinity table"},
			&cli.StringFlag{Name: "templates", Usage: "CCD SMILES table (ccd_code<TAB>smiles)"},
			&cli.StringFlag{Name: "tables", Usage: "chemistry tables JSON"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve /metrics and /debug/vars on this address"},
			&cli.StringFlag{Name: "trace-file", Usage: "write stage spans as JSON lines"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: a.annotate,
	}
}

func (a *app) annotate(ctx context.Context, cmd *cli.Command) (err error) {
	paths, err := inputPaths(cmd.Args().Slice())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("annotate: no input structures")
	}
	s, err := a.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	chemistry := tables.Default()
	if s.cfg.TablesPath != "" {
		if chemistry, err = tables.LoadFile(s.cfg.TablesPath); err != nil {
			return err
		}
	}
	var templates annotate.TemplateSource
	if s.cfg.TemplatesPath != "" {
		tm, err := annotate.LoadTemplatesFile(s.cfg.TemplatesPath)
		if err != nil {
			return err
		}
		templates = tm
	}
	opts := batch.Options{Workers: s.cfg.Workers, Config: s.cfg.JSON()}
	if s.cfg.ValidationPath != "" {
		if opts.Validation, err = loadValidation(s.cfg.ValidationPath); err != nil {
			return err
		}
	}
	if s.cfg.AffinityPath != "" {
		if opts.Affinities, err = validation.LoadAffinitiesFile(s.cfg.AffinityPath); err != nil {
			return err
		}
	}

	metrics, stopMetrics, err := startMetrics(s.cfg.MetricsAddr, s.log)
	if err != nil {
		return err
	}
	defer stopMetrics()
	tracer, closeTrace, err := openTracer(s.cfg.TracePath)
	if err != nil {
		return err
	}
	defer closeTrace()

	pipeline := annotate.NewPipeline(annotate.Deps{
		Reader:    mmcif.Reader{},
		Tables:    chemistry,
		Templates: templates,
		Metrics:   metrics,
		Tracer:    tracer,
		Logger:    s.log,
	}, s.cfg.PipelineOptions())
	runner, err := batch.NewRunner(batch.Deps{
		Annotator: pipeline,
		Writer:    s.writer,
		Index:     s.index,
		Metrics:   metrics,
		Tracer:    tracer,
		Logger:    s.log,
	}, opts)
	if err != nil {
		return err
	}

	sum, runErr := runner.Run(ctx, paths)
	if cmd.Bool("json") {
		if err := printJSON(a.stdout, sum); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	}
	printReports(a.stdout, sum.Reports)
	printKV(a.stdout, [][2]string{
		{"run", sum.Run.ID},
		{"entries", fmt.Sprint(sum.Run.Entries)},
		{"succeeded", fmt.Sprint(sum.Run.Succeeded)},
		{"partial", fmt.Sprint(sum.Run.Partial)},
		{"failed", fmt.Sprint(sum.Run.Failed)},
	})
	return runErr
}

func isStructureFile(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".cif") || strings.HasSuffix(name, ".cif.gz")
}

// inputPaths expands directories into the structure files below them.
// Files named explicitly are kept whatever their extension.
func inputPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isStructureFile(d.Name()) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
		slices.Sort(found)
		out = append(out, found...)
	}
	return out, nil
}

func isValidationFile(name string) bool {
	name = strings.ToLower(name)
	for _, ext := range []string{".xml", ".xml.gz", ".tsv", ".csv"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// validationEntryID guesses the entry of a report from names such as
// 6lu7_validation.xml.gz.
func validationEntryID(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if i := strings.IndexAny(base, "_."); i > 0 {
		base = base[:i]
	}
	return base
}

// loadValidation reads one validation source or merges every source in a
// directory.
func loadValidation(path string) (*validation.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	if !info.IsDir() {
		return validation.ReadFile(path, validationEntryID(path))
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	table := validation.NewTable()
	for _, e := range entries {
		if e.IsDir() || !isValidationFile(e.Name()) {
			continue
		}
		file := filepath.Join(path, e.Name())
		t, err := validation.ReadFile(file, validationEntryID(file))
		if err != nil {
			return nil, err
		}
		table.Merge(t)
	}
	return table, nil
}

// startMetrics serves Prometheus and expvar on addr. Without an address
// the counters go to expvar only and are logged at debug level on stop.
func startMetrics(addr string, log *slog.Logger) (core.Metrics, func(), error) {
	if addr == "" {
		rec := core.NewExpvarMetricsRecorder("")
		return rec, func() { log.Debug("metrics", "snapshot", rec.Snapshot()) }, nil
	}
	reg := prometheus.NewRegistry()
	m, err := core.NewPrometheusMetrics(reg)
	if err != nil {
		return nil, nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
	log.Info("metrics listening", "addr", ln.Addr().String())
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return m, stop, nil
}

func openTracer(path string) (core.Tracer, func(), error) {
	if path == "" {
		return core.NopTracer{}, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("trace file: %w", err)
	}
	return core.NewJSONTracer(f), func() { _ = f.Close() }, nil
}
