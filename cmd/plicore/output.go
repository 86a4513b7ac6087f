package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"plicore/pkg/domain"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printKV(w io.Writer, rows [][2]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	_ = tw.Flush()
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "no results")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printReports(w io.Writer, reports []domain.EntryReport) {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.EntryID,
			string(r.Status),
			fmt.Sprint(r.Systems),
			fmt.Sprint(len(r.Warnings)),
			r.Duration.Round(time.Millisecond).String(),
			orDash(r.Error),
		})
	}
	printTable(w, []string{"ENTRY", "STATUS", "SYSTEMS", "WARNINGS", "DURATION", "ERROR"}, rows)
}

func printSystems(w io.Writer, systems []domain.SystemRecord) {
	rows := make([][]string, 0, len(systems))
	for _, s := range systems {
		codes := make([]string, 0, len(s.Ligands))
		for _, l := range s.Ligands {
			codes = append(codes, l.CCDCode)
		}
		rows = append(rows, []string{
			s.SystemID,
			s.EntryID,
			string(s.Type),
			strings.Join(s.Receptors, ","),
			strings.Join(codes, ","),
		})
	}
	printTable(w, []string{"SYSTEM", "ENTRY", "TYPE", "RECEPTORS", "LIGANDS"}, rows)
}
