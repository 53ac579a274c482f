package model

import "time"

// History represents a single rpgo reporting process
type History struct {
	// Unique ID for this process (uuid)
	ID string `json:"id"`
	// Phase the process ran (start, test, end, complete_test)
	Phase string `json:"phase"`
	// Remote launch identifier the process reported into
	LaunchID string `json:"launch_id,omitempty"`
	// Timestamp when the process started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Absolute working directory where the command was run
	WorkDir string `json:"workdir"`
	// Exit code of the wrapped go test run (rpgo test only)
	ExitCode int `json:"exit_code"`
	// Duration of the process
	Duration time.Duration `json:"duration"`
	// Whether the dry-run connector was used
	DryRun bool `json:"dry_run,omitempty"`
	// Git information
	Git *Git `json:"git,omitempty"`
	// What was reported
	Summary *Summary `json:"summary,omitempty"`
}

// Git contains git repository information
type Git struct {
	// Git commit hash at time of execution
	Commit string `json:"commit,omitempty"`
	// Git branch at time of execution
	Branch string `json:"branch,omitempty"`
	// Repository name
	Repo string `json:"repo,omitempty"`
}

// Summary counts what a reporting process sent to the backend
type Summary struct {
	Suites  int `json:"suites"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	// Connector calls that returned an error
	RemoteErrors int `json:"remote_errors"`
}

// Tests returns the number of reported tests.
func (s Summary) Tests() int {
	return s.Passed + s.Failed + s.Skipped
}
