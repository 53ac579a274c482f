package cli

// This file contains the list command for displaying previous report runs.

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rpgo/rpgo/history"
	"github.com/rpgo/rpgo/phase"
	"github.com/urfave/cli/v2"
)

func (a *App) list(ctx *cli.Context) error {
	filterPhase := strings.TrimSpace(ctx.String("phase"))
	limit := ctx.Int("limit")

	root, err := history.GetRoot()
	if err != nil {
		return err
	}

	// Load all history entries, newest first
	historyEntries, err := history.LoadEntries(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	entries := filterEntries(historyEntries, filterPhase)
	if len(entries) == 0 {
		if filterPhase != "" {
			fmt.Fprintf(a.stdout, "No history entries found for phase: %s\n", filterPhase)
		} else {
			fmt.Fprintln(a.stdout, "No history entries found")
			fmt.Fprintf(a.stdout, "Report runs are saved to %s/history/<timestamp>-<id>/\n", root)
		}
		return nil
	}

	total := len(entries)
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	renderHistory(a.stdout, entries, total)
	return nil
}

func filterEntries(entries []history.Entry, filterPhase string) []history.Entry {
	if filterPhase == "" {
		return entries
	}
	want := string(phase.Parse(filterPhase))

	var filtered []history.Entry
	for _, entry := range entries {
		if entry.History.Phase == want {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func renderHistory(w io.Writer, entries []history.Entry, total int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Report runs (%d total)", total))
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{
		"ID", "Time", "Phase", "Launch", "Duration", "Suites", "Passed", "Failed", "Skipped", "Errors", "Commit",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Suites", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Errors", Align: text.AlignRight},
	})

	for _, entry := range entries {
		h := entry.History

		launch := short(h.LaunchID, 8)
		if h.DryRun {
			launch += " (dry-run)"
		}

		commit := "-"
		if h.Git != nil && h.Git.Commit != "" {
			commit = short(h.Git.Commit, 8)
			if h.Git.Branch != "" {
				commit += " (" + h.Git.Branch + ")"
			}
		}

		row := table.Row{
			short(h.ID, 8),
			h.Timestamp.Local().Format("2006-01-02 15:04:05"),
			h.Phase,
			launch,
			h.Duration.Round(time.Millisecond),
		}
		if s := h.Summary; s != nil {
			row = append(row, s.Suites, s.Passed, s.Failed, s.Skipped, s.RemoteErrors)
		} else {
			row = append(row, "-", "-", "-", "-", "-")
		}
		t.AppendRow(append(row, commit))
	}

	t.Render()
}

func short(s string, n int) string {
	if s == "" {
		return "-"
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
