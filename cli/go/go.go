package gocmd

// go.go provides utilities for executing `go test` with JSON output.

import (
	"context"
	"os/exec"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// TestArgs returns the arguments for `go test` in test2json mode. args are
// passed through; -json is added unless already present.
func TestArgs(args []string) []string {
	out := make([]string, 0, len(args)+2)
	out = append(out, "test")

	hasJSON := false
	for _, arg := range args {
		if arg == "-json" || arg == "--json" || arg == "-json=true" {
			hasJSON = true
			break
		}
	}
	if !hasJSON {
		out = append(out, "-json")
	}

	return append(out, args...)
}

// BuildCommand renders the go command line with proper shell escaping.
func BuildCommand(args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, "go")

	for _, arg := range args {
		parts = append(parts, shellescape.Quote(arg))
	}

	return strings.Join(parts, " ")
}

// Command creates an exec.Cmd for running a Go command.
// The first argument is the Go subcommand (e.g., "test"), followed by its arguments.
func Command(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "go", args...)
}
