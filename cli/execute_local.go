package cli

// This file contains local test execution: go test runs on this machine and
// its JSON output is reported while it streams.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	gocmd "github.com/rpgo/rpgo/cli/go"
	"github.com/urfave/cli/v2"
)

func (a *App) test(ctx *cli.Context) error {
	run, err := a.prepare(ctx, ctx.String("phase"))
	if err != nil {
		return err
	}

	args := gocmd.TestArgs(removeFirstDashDash(ctx.Args().Slice()))
	a.logger.Info().Str("command", gocmd.BuildCommand(args)).Msg("Running tests")

	exitCode, runErr := a.executeLocalTest(ctx.Context, run, args)
	a.finish(run, exitCode)

	if runErr != nil {
		return runErr
	}
	if exitCode != 0 {
		// go test already explained the failure
		return cli.Exit("", exitCode)
	}
	return nil
}

// executeLocalTest runs go test and returns its exit code. The error is only
// set when go test could not be run at all.
func (a *App) executeLocalTest(ctx context.Context, run *reportRun, args []string) (int, error) {
	cmd := gocmd.Command(ctx, args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 1, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("failed to execute go test: %w", err)
	}

	// Display the raw output while reporting it
	if err := a.collect(ctx, run, io.TeeReader(stdout, a.stdout)); err != nil {
		a.logger.Warn().Err(err).Msg("Stopped reading test output")
		// keep go test from blocking on a full pipe
		_, _ = io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		// Test failures are expected to return non-zero exit codes
		// Check if it's an ExitError (test failed) vs other errors
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			a.logger.Info().
				Int("exit_code", exitErr.ExitCode()).
				Msg("Tests completed with failures")
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("failed to execute go test: %w", err)
	}

	a.logger.Info().Msg("Tests completed successfully")
	return 0, nil
}
