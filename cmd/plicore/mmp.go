package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"plicore/internal/mmp"
)

func (a *app) mmpCommand() *cli.Command {
	def := mmp.DefaultOptions()
	return &cli.Command{
		Name:  "mmp",
		Usage: "Matched molecular pair helpers",
		Commands: []*cli.Command{
			{
				Name:  "join",
				Usage: "Join a pair index with system clusters",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pairs", Required: true, Usage: "pair index TSV"},
					&cli.StringFlag{Name: "clusters-dir", Required: true, Usage: "directory of cluster tables"},
					&cli.StringFlag{Name: "system-map", Required: true, Usage: "TSV mapping pair ids to system ids"},
					&cli.StringFlag{Name: "protein-metric", Value: def.ProteinMetric},
					&cli.IntFlag{Name: "protein-threshold", Value: def.ProteinThreshold},
					&cli.BoolFlag{Name: "protein-directed", Value: def.ProteinDirected},
					&cli.StringFlag{Name: "pocket-metric", Value: def.PocketMetric},
					&cli.IntFlag{Name: "pocket-threshold", Value: def.PocketThreshold},
					&cli.BoolFlag{Name: "pocket-directed", Value: def.PocketDirected},
					&cli.IntFlag{Name: "min-constant-size", Value: def.MinConstantSize},
					&cli.StringFlag{Name: "out", Usage: "output TSV (default stdout)"},
				},
				Action: a.mmpJoin,
			},
		},
	}
}

func (a *app) mmpJoin(_ context.Context, c *cli.Command) (err error) {
	opts := mmp.Options{
		ProteinMetric:    c.String("protein-metric"),
		ProteinThreshold: c.Int("protein-threshold"),
		ProteinDirected:  c.Bool("protein-directed"),
		PocketMetric:     c.String("pocket-metric"),
		PocketThreshold:  c.Int("pocket-threshold"),
		PocketDirected:   c.Bool("pocket-directed"),
		MinConstantSize:  c.Int("min-constant-size"),
	}
	pairs, err := mmp.LoadPairs(c.String("pairs"))
	if err != nil {
		return err
	}
	systems, err := mmp.LoadSystemMap(c.String("system-map"))
	if err != nil {
		return err
	}
	dir := c.String("clusters-dir")
	protein, err := mmp.LoadClusters(dir, opts.ProteinMetric, opts.ProteinThreshold, opts.ProteinDirected)
	if err != nil {
		return err
	}
	pocket, err := mmp.LoadClusters(dir, opts.PocketMetric, opts.PocketThreshold, opts.PocketDirected)
	if err != nil {
		return err
	}
	rows := mmp.Join(pairs, systems, protein, pocket, opts)

	out := a.stdout
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer func() { err = errors.Join(err, f.Close()) }()
		out = f
	}
	return mmp.WriteTSV(out, rows)
}
