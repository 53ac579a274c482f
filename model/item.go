package model

import "time"

// ItemType is the kind of remote test item
type ItemType string

const (
	ItemTypeSuite ItemType = "SUITE"
	ItemTypeTest  ItemType = "TEST"
)

// Status is the finish status of a remote test item
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// LogLevel is the level of a log entry attached to a remote item
type LogLevel string

const (
	LogLevelFailed  LogLevel = "FAILED"
	LogLevelSkipped LogLevel = "SKIPPED"
	LogLevelError   LogLevel = "ERROR"
	LogLevelWarn    LogLevel = "WARN"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelDebug   LogLevel = "DEBUG"
)

// StartItem holds the parameters for creating a remote suite or test item
type StartItem struct {
	Name        string
	Launch      string
	Description string
	Type        ItemType
	// Zero means "now"
	StartTime time.Time
}

// FinishItem holds the parameters for finishing a remote item
type FinishItem struct {
	ID     string
	Status Status
	Launch string
	// Zero means "now"
	EndTime time.Time
}

// LogEntry is a message attached to a remote item
type LogEntry struct {
	Level   LogLevel
	Message string
	Launch  string
	// Zero means "now"
	Time time.Time
}
