package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "rpgo"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
	stdin  io.Reader
	stdout io.Writer
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Report Go test results to ReportPortal",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}

	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "report",
		Usage:  "Report a `go test -json` event stream",
		Action: app.report,
		Flags: append(reportFlags(),
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "File with go test -json output (default: stdin)",
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "test",
		Usage:     "Run go test and report its results",
		ArgsUsage: "[-- go test flags] [packages]",
		Action:    app.test,
		Flags:     reportFlags(),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:  "launch",
		Usage: "Manage a launch shared by several report runs",
		Subcommands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Create a launch and store its id in the launch id file",
				Action: app.launchStart,
				Flags:  launchFlags(),
			},
			{
				Name:   "finish",
				Usage:  "Finish the launch stored in the launch id file",
				Action: app.launchFinish,
				Flags:  launchFlags(),
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous report runs",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "phase",
				Usage: "Only show runs of this phase (start, test, end, complete_test)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show (0 = all)",
				Value: 20,
			},
		},
	})
	return app
}

// launchFlags are the flags shared by every command talking to the server.
func launchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file (relative to the working directory)",
			EnvVars: []string{"RP_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "launch-id-file",
			Usage: "File carrying the launch id between the start, test and end phases",
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "ReportPortal URL",
		},
		&cli.StringFlag{
			Name:  "project",
			Usage: "ReportPortal project",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "ReportPortal API token",
		},
		&cli.StringFlag{
			Name:  "launch-name",
			Usage: "Name of the launch",
		},
		&cli.StringSliceFlag{
			Name:  "attribute",
			Usage: "Launch attribute as key=value (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Log what would be sent instead of talking to the server",
		},
		&cli.StringFlag{
			Name:  "metrics-textfile",
			Usage: "Write reporting metrics in Prometheus textfile format to this path",
		},
	}
}

// reportFlags adds phase selection to launchFlags.
func reportFlags() []cli.Flag {
	return append(launchFlags(),
		&cli.StringFlag{
			Name:    "phase",
			Usage:   "Lifecycle phase: start, test, end or complete_test",
			Value:   "complete_test",
			EnvVars: []string{"RP_PHASE"},
		},
	)
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && len(commit) >= 8 {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}
