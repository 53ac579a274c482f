package history

// This file contains history utilities for recording, loading and parsing
// reporting runs.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rpgo/rpgo/model"
	"github.com/rs/zerolog"
)

const (
	dirName  = ".rpgo"
	fileName = "history.json"
)

type Entry struct {
	History  model.History
	FullPath string
}

// GetRoot returns the .rpgo directory at the git repository root, or in the
// working directory when not inside a repository. The directory may not
// exist yet.
func GetRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err == nil {
		if repoRoot := strings.TrimSpace(string(output)); repoRoot != "" {
			return filepath.Join(repoRoot, dirName), nil
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, dirName), nil
}

// Record writes h to <root>/history/<timestamp>-<short id>/history.json and
// returns the directory.
func Record(root string, h *model.History) (string, error) {
	if h.ID == "" {
		return "", errors.New("history entry has no id")
	}

	shortID := h.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	runDir := filepath.Join(root, "history", fmt.Sprintf("%s-%s", h.Timestamp.UTC().Format("20060102-150405"), shortID))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, fileName), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write history: %w", err)
	}
	return runDir, nil
}

// LoadEntries loads all history entries below root, newest first. A missing
// root yields no entries.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipAll
			}
			return err
		}

		if d.IsDir() {
			historyPath := filepath.Join(path, fileName)
			if _, err := os.Stat(historyPath); err == nil {
				history, err := parseHistoryJSON(historyPath)
				if err != nil {
					logger.Warn().Err(err).Str("path", historyPath).Msg("Failed to parse history.json")
					return nil
				}

				entries = append(entries, Entry{
					History:  history,
					FullPath: path,
				})
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk %s directory: %w", dirName, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].History.Timestamp.After(entries[j].History.Timestamp)
	})

	return entries, nil
}

// parseHistoryJSON parses a history.json file.
func parseHistoryJSON(historyPath string) (model.History, error) {
	data, err := os.ReadFile(historyPath)
	if err != nil {
		return model.History{}, err
	}

	var history model.History
	if err := json.Unmarshal(data, &history); err != nil {
		return model.History{}, err
	}

	return history, nil
}
