package hierarchy

// Package hierarchy keeps track of which suites are open and which remote
// item identifiers belong to which suites and tests.
//
// Identifiers are keyed by the suite or test value itself, so two suites
// sharing a title at different depths never collide.

import "github.com/rpgo/rpgo/model"

type frame struct {
	suite *model.Suite
	id    string
}

// Tracker owns the open-suite stack and the identifier maps of one run.
// It is not safe for concurrent use.
type Tracker struct {
	stack  []frame
	suites map[*model.Suite]string
	tests  map[*model.Test]string
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		suites: make(map[*model.Suite]string),
		tests:  make(map[*model.Test]string),
	}
}

// Enter pushes suite onto the open stack. An empty id means the remote
// create call failed; the suite is still pushed but has no mapping.
func (t *Tracker) Enter(suite *model.Suite, id string) {
	t.stack = append(t.stack, frame{suite: suite, id: id})
	if id != "" {
		t.suites[suite] = id
	}
}

// Exit pops the innermost open suite and discards the mapping of suite.
// The returned id is empty and ok false when no identifier was recorded.
func (t *Tracker) Exit(suite *model.Suite) (id string, ok bool) {
	id, ok = t.suites[suite]
	delete(t.suites, suite)
	if len(t.stack) > 0 {
		t.stack = t.stack[:len(t.stack)-1]
	}
	return id, ok
}

// Open reports whether any suite is open.
func (t *Tracker) Open() bool {
	return len(t.stack) > 0
}

// Depth returns the number of open suites.
func (t *Tracker) Depth() int {
	return len(t.stack)
}

// Parent returns the identifier of the innermost open suite, to be used as
// the parent of new items. ok is false when the suite has no identifier or
// no suite is open.
func (t *Tracker) Parent() (id string, ok bool) {
	if len(t.stack) == 0 {
		return "", false
	}
	top := t.stack[len(t.stack)-1]
	return top.id, top.id != ""
}

// RecordTest stores the identifier of a started test.
func (t *Tracker) RecordTest(test *model.Test, id string) {
	if id == "" {
		return
	}
	t.tests[test] = id
}

// TestID looks up the identifier of a started test.
func (t *Tracker) TestID(test *model.Test) (string, bool) {
	id, ok := t.tests[test]
	return id, ok
}

// ForgetTest drops a finished test.
func (t *Tracker) ForgetTest(test *model.Test) {
	delete(t.tests, test)
}
