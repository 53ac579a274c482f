package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rpgo/rpgo/model"
	"github.com/rpgo/rpgo/phase"
)

// printSummary prints a one-line result of the reporting run.
func (a *App) printSummary(p phase.Phase, launchID string, s model.Summary) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan, color.Bold)

	w := a.stdout
	cyan.Fprintf(w, "rpgo %s", p)
	if launchID != "" {
		fmt.Fprintf(w, " launch=%s", launchID)
	}
	fmt.Fprintf(w, ": %d suites, ", s.Suites)
	green.Fprintf(w, "%d passed", s.Passed)
	fmt.Fprint(w, ", ")
	if s.Failed > 0 {
		red.Fprintf(w, "%d failed", s.Failed)
	} else {
		fmt.Fprintf(w, "%d failed", s.Failed)
	}
	fmt.Fprint(w, ", ")
	yellow.Fprintf(w, "%d skipped", s.Skipped)
	if s.RemoteErrors > 0 {
		fmt.Fprint(w, ", ")
		red.Fprintf(w, "%d remote errors", s.RemoteErrors)
	}
	fmt.Fprintln(w)
}
