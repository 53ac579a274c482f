package model

import "time"

// EventKind identifies a test lifecycle callback
type EventKind string

const (
	EventStart    EventKind = "start"
	EventSuite    EventKind = "suite"
	EventTest     EventKind = "test"
	EventPass     EventKind = "pass"
	EventFail     EventKind = "fail"
	EventPending  EventKind = "pending"
	EventTestEnd  EventKind = "test end"
	EventSuiteEnd EventKind = "suite end"
	EventEnd      EventKind = "end"
)

// TestState is the terminal state the framework assigns to a test.
// The zero value means the state is undefined, which is the case for
// pending tests and for tests that never ran.
type TestState string

const (
	StateUndefined TestState = ""
	StatePassed    TestState = "passed"
	StateFailed    TestState = "failed"
)

// Suite is a nested grouping of tests
type Suite struct {
	// Display name; empty for the anonymous top-level suite
	Title string
	// Enclosing suite (nil for the top-level suite)
	Parent *Suite
	// Tests declared directly in this suite
	Tests []*Test
	// Nested suites
	Suites []*Suite
	// Times reported by the framework (zero when unknown)
	Started  time.Time
	Finished time.Time
}

// Root reports whether this is the anonymous suite wrapping the whole run.
func (s *Suite) Root() bool {
	return s.Title == ""
}

// FullTitle returns the titles of all named ancestors and the suite itself,
// joined by spaces.
func (s *Suite) FullTitle() string {
	if s.Parent == nil || s.Parent.FullTitle() == "" {
		return s.Title
	}
	return s.Parent.FullTitle() + " " + s.Title
}

// HasFailures reports whether any direct test of the suite failed. Nested
// suites are not considered.
func (s *Suite) HasFailures() bool {
	for _, t := range s.Tests {
		if t.State == StateFailed {
			return true
		}
	}
	return false
}

// AddSuite creates a nested suite.
func (s *Suite) AddSuite(title string) *Suite {
	child := &Suite{Title: title, Parent: s}
	s.Suites = append(s.Suites, child)
	return child
}

// AddTest creates a test directly under the suite.
func (s *Suite) AddTest(title string) *Test {
	t := &Test{Title: title, Parent: s}
	s.Tests = append(s.Tests, t)
	return t
}

// Test is a single executable test case
type Test struct {
	Title  string
	Parent *Suite
	State  TestState
	// Times reported by the framework (zero when unknown)
	Started  time.Time
	Finished time.Time
}

// FullTitle returns the parent's full title followed by the test title.
func (t *Test) FullTitle() string {
	if t.Parent == nil || t.Parent.FullTitle() == "" {
		return t.Title
	}
	return t.Parent.FullTitle() + " " + t.Title
}

// Event is one lifecycle callback. Suite is set for suite events, Test for
// test events and Err for fail events.
type Event struct {
	Kind  EventKind
	Suite *Suite
	Test  *Test
	Err   error
}
