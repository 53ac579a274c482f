package phase

// Package phase decides which part of a launch lifecycle the current process
// owns and carries the launch identifier between processes.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrConfig marks phase setup problems that must abort startup.
var ErrConfig = errors.New("invalid phase configuration")

// Phase is the lifecycle segment a process is responsible for
type Phase string

const (
	// Start creates the launch and persists its identifier
	Start Phase = "start"
	// Test reports suites and tests into a persisted launch
	Test Phase = "test"
	// End finishes a persisted launch
	End Phase = "end"
	// CompleteTest creates and finishes the launch in one process
	CompleteTest Phase = "complete_test"
)

// Parse normalises a requested phase. Only exact matches select a phase;
// anything else, padded values included, becomes CompleteTest.
func Parse(s string) Phase {
	switch p := Phase(s); p {
	case Start, Test, End:
		return p
	default:
		return CompleteTest
	}
}

// Session is the resolved phase of this process
type Session struct {
	Phase Phase
	// LaunchID is loaded for the Test and End phases
	LaunchID string

	path string
}

// Resolve validates the requested phase and, for phases that join an existing
// launch, reads the persisted launch identifier from idFile.
func Resolve(requested, idFile string) (*Session, error) {
	s := &Session{Phase: Parse(requested)}
	if s.Phase == CompleteTest {
		return s, nil
	}

	path, err := resolvePath(idFile)
	if err != nil {
		return nil, err
	}
	s.path = path

	if s.Phase == Start {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read launch id for phase %s: %w", ErrConfig, s.Phase, err)
	}
	s.LaunchID = strings.TrimSpace(string(data))
	if s.LaunchID == "" {
		return nil, fmt.Errorf("%w: launch id file %s is empty", ErrConfig, path)
	}

	return s, nil
}

func resolvePath(idFile string) (string, error) {
	if strings.TrimSpace(idFile) == "" {
		return "", fmt.Errorf("%w: a launch id file is required for this phase", ErrConfig)
	}
	if filepath.IsAbs(idFile) {
		return filepath.Clean(idFile), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w: failed to get working directory: %w", ErrConfig, err)
	}
	return filepath.Join(cwd, idFile), nil
}

// Path returns the absolute location of the launch id file, empty for
// CompleteTest.
func (s *Session) Path() string {
	return s.path
}

// CreatesLaunch reports whether this process starts the launch.
func (s *Session) CreatesLaunch() bool {
	return s.Phase == Start || s.Phase == CompleteTest
}

// FinishesLaunch reports whether this process finishes the launch.
func (s *Session) FinishesLaunch() bool {
	return s.Phase == End || s.Phase == CompleteTest
}

// Persist stores the launch identifier for later phases. Only the Start
// phase writes.
func (s *Session) Persist(launchID string) error {
	if s.Phase != Start {
		return fmt.Errorf("phase %s does not persist the launch id", s.Phase)
	}
	if launchID == "" {
		return fmt.Errorf("refusing to persist an empty launch id")
	}
	return lockAndWrite(s.path, []byte(launchID))
}
