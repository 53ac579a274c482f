package cli

// This file contains the launch subcommands, which run the start and end
// phases on their own so that several report runs can share one launch.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpgo/rpgo/phase"
	"github.com/urfave/cli/v2"
)

func (a *App) launchStart(ctx *cli.Context) error {
	return a.launchPhase(ctx, phase.Start)
}

func (a *App) launchFinish(ctx *cli.Context) error {
	return a.launchPhase(ctx, phase.End)
}

func (a *App) launchPhase(ctx *cli.Context, p phase.Phase) error {
	run, err := a.prepare(ctx, string(p))
	if err != nil {
		return err
	}

	// An empty stream still produces the start and end callbacks
	collectErr := a.collect(ctx.Context, run, strings.NewReader(""))
	a.finish(run, 0)
	if collectErr != nil {
		return collectErr
	}

	if p == phase.Start && run.reporter.LaunchID() == "" {
		return errors.New("launch was not created")
	}
	if err := run.reporter.PersistErr(); p == phase.Start && err != nil {
		return fmt.Errorf("launch %s was created but its id was not stored: %w", run.reporter.LaunchID(), err)
	}
	return nil
}
