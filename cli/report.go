package cli

// This file contains the reporting pipeline shared by the report, test and
// launch commands.

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rpgo/rpgo/config"
	"github.com/rpgo/rpgo/gotest"
	"github.com/rpgo/rpgo/history"
	"github.com/rpgo/rpgo/metrics"
	"github.com/rpgo/rpgo/model"
	"github.com/rpgo/rpgo/phase"
	"github.com/rpgo/rpgo/reporter"
	"github.com/rpgo/rpgo/rportal"
	"github.com/urfave/cli/v2"
)

// reportRun is one reporting process from configuration to history.
type reportRun struct {
	session     *phase.Session
	reporter    *reporter.Reporter
	metrics     *metrics.Metrics
	history     *model.History
	metricsFile string
}

// loadConfig merges the config file, environment and command flags.
func (a *App) loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return nil, err
	}

	cfg.MergeWithFlags(
		stringFlag(ctx, "endpoint"),
		stringFlag(ctx, "project"),
		stringFlag(ctx, "token"),
		stringFlag(ctx, "launch-name"),
		stringFlag(ctx, "launch-id-file"),
	)

	if pairs := ctx.StringSlice("attribute"); len(pairs) > 0 {
		attrs, err := config.ParseAttributes(pairs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
		}
		cfg.SetAttributes(attrs)
	}

	if err := cfg.Validate(ctx.Bool("dry-run")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringFlag returns a pointer to the flag value when it was set explicitly.
func stringFlag(ctx *cli.Context, name string) *string {
	if !ctx.IsSet(name) {
		return nil
	}
	v := ctx.String(name)
	return &v
}

// prepare resolves configuration and phase and wires the reporter. Errors
// are configuration errors and abort before anything is reported.
func (a *App) prepare(ctx *cli.Context, requested string) (*reportRun, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	session, err := phase.Resolve(requested, cfg.LaunchIDFile)
	if err != nil {
		return nil, err
	}

	h := &model.History{
		ID:        uuid.NewString(),
		Phase:     string(session.Phase),
		Timestamp: time.Now(),
		Args:      os.Args,
		DryRun:    ctx.Bool("dry-run"),
	}
	if cwd, err := os.Getwd(); err == nil {
		h.WorkDir = cwd
	}

	// Capture git info (non-fatal if it fails)
	if git, err := a.getGitInfo(); err == nil {
		h.Git = git
		cfg.SetAttributes(gitAttributes(git, cfg.Attributes))
	} else {
		a.logger.Debug().Err(err).Msg("No git information")
	}

	conn, err := a.connector(cfg, h.DryRun)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	rep := reporter.New(a.logger, conn, session, reporter.WithMetrics(m))

	a.logger.Debug().
		Str("phase", string(session.Phase)).
		Str("launch", session.LaunchID).
		Str("launch_id_file", session.Path()).
		Bool("dry_run", h.DryRun).
		Msg("Resolved reporting phase")

	return &reportRun{
		session:     session,
		reporter:    rep,
		metrics:     m,
		history:     h,
		metricsFile: ctx.String("metrics-textfile"),
	}, nil
}

func (a *App) connector(cfg *config.Config, dryRun bool) (reporter.Connector, error) {
	if dryRun {
		return rportal.NewDryRun(a.logger), nil
	}

	client, err := rportal.New(a.logger, rportal.Options{
		Endpoint: cfg.Endpoint,
		Project:  cfg.Project,
		Token:    cfg.Token,
		Timeout:  cfg.Timeout,
		Launch: rportal.LaunchOptions{
			Name:        cfg.Launch,
			Description: cfg.Description,
			Mode:        cfg.Mode,
			Attributes:  cfg.Attributes,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	return client, nil
}

// collect feeds a go test -json stream through the reporter.
func (a *App) collect(ctx context.Context, run *reportRun, r io.Reader) error {
	return gotest.NewCollector(a.logger, run.reporter).Run(ctx, r)
}

// finish records metrics and history and prints the summary. Failures here
// are logged and never change the outcome of the run.
func (a *App) finish(run *reportRun, exitCode int) {
	summary := run.reporter.Summary()
	h := run.history
	h.LaunchID = run.reporter.LaunchID()
	h.Summary = &summary
	h.ExitCode = exitCode
	h.Duration = time.Since(h.Timestamp)

	if run.metricsFile != "" {
		if err := run.metrics.WriteTextfile(run.metricsFile); err != nil {
			a.logger.Warn().Err(err).Str("path", run.metricsFile).Msg("Failed to write metrics textfile")
		}
	}

	if root, err := history.GetRoot(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record history")
	} else if dir, err := history.Record(root, h); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record history")
	} else {
		a.logger.Debug().Str("path", dir).Msg("Recorded history")
	}

	a.printSummary(run.session.Phase, h.LaunchID, summary)
}

func (a *App) report(ctx *cli.Context) error {
	run, err := a.prepare(ctx, ctx.String("phase"))
	if err != nil {
		return err
	}

	in := a.stdin
	if path := ctx.String("input"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	collectErr := a.collect(ctx.Context, run, in)
	exitCode := 0
	if collectErr != nil {
		exitCode = 1
	}
	a.finish(run, exitCode)

	return collectErr
}
