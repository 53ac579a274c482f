package cli

// This file contains Git integration utilities for retrieving
// repository information.

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rpgo/rpgo/model"
)

func (a *App) getGitInfo() (*model.Git, error) {
	// Get current commit hash
	cmd := exec.Command("git", "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get git commit: %w", err)
	}
	commit := strings.TrimSpace(string(output))

	// Get current branch
	cmd = exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	output, err = cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get git branch: %w", err)
	}
	branch := strings.TrimSpace(string(output))

	git := &model.Git{Commit: commit, Branch: branch}

	// Repository name from the top-level directory
	cmd = exec.Command("git", "rev-parse", "--show-toplevel")
	if output, err = cmd.Output(); err == nil {
		git.Repo = filepath.Base(strings.TrimSpace(string(output)))
	}

	return git, nil
}

// gitAttributes returns launch attributes describing the checkout. Keys
// already configured are left alone.
func gitAttributes(git *model.Git, existing map[string]string) map[string]string {
	attrs := make(map[string]string)
	add := func(key, value string) {
		if value == "" {
			return
		}
		if _, ok := existing[key]; ok {
			return
		}
		attrs[key] = value
	}

	commit := git.Commit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	add("commit", commit)
	if git.Branch != "HEAD" {
		add("branch", git.Branch)
	}
	add("repo", git.Repo)
	return attrs
}
