package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"plicore/pkg/domain"
)

func (a *app) statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the report of entries from the index or their status.json",
		ArgsUsage: "<entry-id>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			ids := c.Args().Slice()
			if len(ids) == 0 {
				return errors.New("status: entry id required")
			}
			s, err := a.open(ctx, c)
			if err != nil {
				return err
			}
			defer s.Close()
			reports := make([]domain.EntryReport, 0, len(ids))
			for _, id := range ids {
				r, err := s.report(ctx, id)
				if err != nil {
					return err
				}
				reports = append(reports, r)
			}
			if c.Bool("json") {
				return printJSON(a.stdout, reports)
			}
			printReports(a.stdout, reports)
			return nil
		},
	}
}

// report prefers the index and falls back to the stored status.json.
func (s *session) report(ctx context.Context, id string) (domain.EntryReport, error) {
	if s.index != nil {
		r, err := s.index.Entry(ctx, id)
		var nf domain.NotFoundError
		if err == nil || !errors.As(err, &nf) {
			return r, err
		}
	}
	return s.writer.ReadReport(ctx, id)
}

func (a *app) entriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "entries",
		Usage: "List indexed entries",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "success, partial or failed"},
			&cli.StringFlag{Name: "run", Usage: "run id"},
			&cli.IntFlag{Name: "limit"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := a.open(ctx, c)
			if err != nil {
				return err
			}
			defer s.Close()
			idx, err := s.requireIndex()
			if err != nil {
				return err
			}
			out, err := idx.Entries(ctx, domain.EntryFilter{
				Status: domain.EntryStatus(c.String("status")),
				RunID:  c.String("run"),
				Limit:  c.Int("limit"),
			})
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(a.stdout, out)
			}
			printReports(a.stdout, out)
			return nil
		},
	}
}

func (a *app) systemsCommand() *cli.Command {
	return &cli.Command{
		Name:  "systems",
		Usage: "List indexed systems",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "entry", Usage: "entry id"},
			&cli.StringFlag{Name: "ccd", Usage: "ligand CCD code"},
			&cli.IntFlag{Name: "limit"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := a.open(ctx, c)
			if err != nil {
				return err
			}
			defer s.Close()
			idx, err := s.requireIndex()
			if err != nil {
				return err
			}
			out, err := idx.Systems(ctx, domain.SystemFilter{
				EntryID: c.String("entry"),
				CCDCode: c.String("ccd"),
				Limit:   c.Int("limit"),
			})
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(a.stdout, out)
			}
			printSystems(a.stdout, out)
			return nil
		},
	}
}

func (a *app) showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "List the artifacts of a system",
		ArgsUsage: "<system-id>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "expiry", Usage: "sign download URLs valid for this long"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return errors.New("show: exactly one system id required")
			}
			s, err := a.open(ctx, c)
			if err != nil {
				return err
			}
			defer s.Close()
			files, err := s.writer.SystemFiles(ctx, c.Args().First(), c.Duration("expiry"))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("system %q has no artifacts", c.Args().First())
			}
			if c.Bool("json") {
				return printJSON(a.stdout, files)
			}
			rows := make([][]string, 0, len(files))
			for _, f := range files {
				rows = append(rows, []string{f.Key, fmt.Sprint(f.Size), orDash(f.URL)})
			}
			printTable(a.stdout, []string{"KEY", "SIZE", "URL"}, rows)
			return nil
		},
	}
}

func (a *app) auditCommand() *cli.Command {
	return &cli.Command{
		Name:      "audit",
		Usage:     "Show a run and its audit trail",
		ArgsUsage: "<run-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return errors.New("audit: exactly one run id required")
			}
			s, err := a.open(ctx, c)
			if err != nil {
				return err
			}
			defer s.Close()
			idx, err := s.requireIndex()
			if err != nil {
				return err
			}
			run, err := idx.Run(ctx, c.Args().First())
			if err != nil {
				return err
			}
			trail, err := idx.Audit(ctx, run.ID)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(a.stdout, struct {
					Run   domain.RunRecord    `json:"run"`
					Audit []domain.AuditEntry `json:"audit"`
				}{run, trail})
			}
			printKV(a.stdout, [][2]string{
				{"run", run.ID},
				{"started", formatTime(run.StartedAt)},
				{"finished", formatTime(run.FinishedAt)},
				{"entries", fmt.Sprint(run.Entries)},
				{"succeeded", fmt.Sprint(run.Succeeded)},
				{"partial", fmt.Sprint(run.Partial)},
				{"failed", fmt.Sprint(run.Failed)},
			})
			rows := make([][]string, 0, len(trail))
			for _, e := range trail {
				rows = append(rows, []string{
					formatTime(e.OccurredAt), e.Action, orDash(e.EntryID), orDash(string(e.Status)), orDash(e.Detail),
				})
			}
			printTable(a.stdout, []string{"TIME", "ACTION", "ENTRY", "STATUS", "DETAIL"}, rows)
			return nil
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}
