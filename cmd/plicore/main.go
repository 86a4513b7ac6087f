// Command plicore annotates protein-ligand systems in mmCIF entries, writes
// the per-system artifacts and queries the annotation index.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"plicore/internal/artifact"
	"plicore/internal/blob"
	"plicore/internal/config"
	"plicore/internal/index"
	"plicore/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(os.Stdout, os.Stderr).Run(ctx, args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "plicore:", err)
		exitFunc(1)
	}
}

type app struct {
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	a := &app{stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:      "plicore",
		Usage:     "Protein-ligand system annotation",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-format", Usage: "text or json", Sources: cli.EnvVars("PLICORE_LOG_FORMAT")},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Sources: cli.EnvVars("PLICORE_LOG_LEVEL")},
			&cli.StringFlag{Name: "save-folder", Usage: "artifact root for the fs blob driver", Sources: cli.EnvVars("PLICORE_SAVE_FOLDER")},
			&cli.StringFlag{Name: "blob-driver", Usage: "fs, s3 or memory", Sources: cli.EnvVars("PLICORE_BLOB_DRIVER")},
			&cli.StringFlag{Name: "s3-bucket", Sources: cli.EnvVars("PLICORE_BLOB_S3_BUCKET")},
			&cli.StringFlag{Name: "s3-prefix", Sources: cli.EnvVars("PLICORE_BLOB_S3_PREFIX")},
			&cli.StringFlag{Name: "s3-region", Sources: cli.EnvVars("PLICORE_BLOB_S3_REGION")},
			&cli.StringFlag{Name: "s3-endpoint", Sources: cli.EnvVars("PLICORE_BLOB_S3_ENDPOINT")},
			&cli.BoolFlag{Name: "s3-path-style", Sources: cli.EnvVars("PLICORE_BLOB_S3_PATH_STYLE")},
			&cli.StringFlag{Name: "index-driver", Usage: "none, memory, sqlite or postgres", Sources: cli.EnvVars("PLICORE_INDEX_DRIVER")},
			&cli.StringFlag{Name: "index-dsn", Usage: "sqlite path or postgres DSN", Sources: cli.EnvVars("PLICORE_INDEX_DSN")},
		},
		Commands: []*cli.Command{
			a.annotateCommand(),
			a.statusCommand(),
			a.entriesCommand(),
			a.systemsCommand(),
			a.showCommand(),
			a.auditCommand(),
			a.mmpCommand(),
		},
	}
}

// loadConfig layers defaults, PLICORE_* variables and the flags set on cmd
// or its parents.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		return cfg, err
	}
	str := func(name string, dst *string) {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	float := func(name string, dst *float64) {
		if cmd.IsSet(name) {
			*dst = cmd.Float(name)
		}
	}
	integer := func(name string, dst *int) {
		if cmd.IsSet(name) {
			*dst = cmd.Int(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if cmd.IsSet(name) {
			*dst = cmd.Bool(name)
		}
	}

	str("log-format", &cfg.LogFormat)
	str("log-level", &cfg.LogLevel)
	str("save-folder", &cfg.SaveFolder)
	if cmd.IsSet("blob-driver") {
		cfg.BlobDriver = blob.Driver(cmd.String("blob-driver"))
	}
	str("s3-bucket", &cfg.S3.Bucket)
	str("s3-prefix", &cfg.S3.Prefix)
	str("s3-region", &cfg.S3.Region)
	str("s3-endpoint", &cfg.S3.Endpoint)
	boolean("s3-path-style", &cfg.S3.PathStyle)
	str("index-driver", &cfg.IndexDriver)
	str("index-dsn", &cfg.IndexDSN)

	float("neighboring-residue-threshold", &cfg.NeighboringResidueThreshold)
	float("neighboring-ligand-threshold", &cfg.NeighboringLigandThreshold)
	float("crystal-contact-threshold", &cfg.CrystalContactThreshold)
	integer("min-polymer-size", &cfg.MinPolymerSize)
	boolean("skip-posebusters", &cfg.SkipPoseChecks)
	boolean("add-hydrogens", &cfg.AddHydrogens)
	integer("workers", &cfg.Workers)
	str("validation", &cfg.ValidationPath)
	str("affinity", &cfg.AffinityPath)
	str("templates", &cfg.TemplatesPath)
	str("tables", &cfg.TablesPath)
	str("metrics-addr", &cfg.MetricsAddr)
	str("trace-file", &cfg.TracePath)

	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// session holds what every command opens: config, logger, artifact store
// and the optional index.
type session struct {
	cfg    config.Config
	log    *slog.Logger
	writer *artifact.Writer
	index  domain.AnnotationIndex
}

func (a *app) open(ctx context.Context, cmd *cli.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(a.stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	store, err := blob.Open(ctx, cfg.BlobConfig())
	if err != nil {
		return nil, err
	}
	idx, err := index.Open(ctx, cfg.IndexConfig())
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		log:    log,
		writer: artifact.NewWriter(store, cfg.ArtifactOptions(), log),
		index:  idx,
	}, nil
}

func (s *session) requireIndex() (domain.AnnotationIndex, error) {
	if s.index == nil {
		return nil, errors.New("no annotation index configured; set --index-driver")
	}
	return s.index, nil
}

func (s *session) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}
