package gotest

// Package gotest turns the event stream of `go test -json` into test
// lifecycle events.
//
// Packages run concurrently and their test2json lines interleave, so events
// are buffered per package and replayed in nested order once the package
// finishes. A test with subtests is reported as a suite holding them.

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rpgo/rpgo/model"
	"github.com/rs/zerolog"
)

// Actions emitted by test2json
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPause  = "pause"
	ActionCont   = "cont"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

// PackageFailureTitle names the synthetic test reporting a package that
// failed outside of any test (build error, panic in init, TestMain exit).
const PackageFailureTitle = "[package]"

const maxLineSize = 16 * 1024 * 1024

// TestEvent is one line of `go test -json` output
type TestEvent struct {
	Time    time.Time // Time the event occurred
	Action  string    // The action taken (run, pause, cont, pass, fail, skip, output)
	Package string    // The package being tested
	Test    string    // The test function name (may be empty for package events)
	Output  string    // Output text (may be empty)
	Elapsed float64   // Elapsed time in seconds for the specific action
}

// Handler consumes lifecycle events.
type Handler interface {
	Handle(ctx context.Context, ev model.Event)
}

type node struct {
	name     string
	action   string
	started  time.Time
	finished time.Time
	output   []string
	children []*node
	byName   map[string]*node
}

func newNode(name string) *node {
	return &node{name: name, byName: make(map[string]*node)}
}

func (n *node) child(name string) *node {
	if c, ok := n.byName[name]; ok {
		return c
	}
	c := newNode(name)
	n.byName[name] = c
	n.children = append(n.children, c)
	return c
}

func (n *node) anyFailed() bool {
	for _, c := range n.children {
		if c.action == ActionFail || c.anyFailed() {
			return true
		}
	}
	return false
}

type packageRun struct {
	tests  *node
	action string
	output []string
}

// Collector reads a test2json stream and drives a Handler.
type Collector struct {
	logger   zerolog.Logger
	handler  Handler
	root     *model.Suite
	packages map[string]*packageRun
	order    []string
}

// NewCollector creates a collector feeding handler.
func NewCollector(logger zerolog.Logger, handler Handler) *Collector {
	return &Collector{
		logger:   logger,
		handler:  handler,
		packages: make(map[string]*packageRun),
	}
}

// Run consumes r until EOF. It always emits a complete lifecycle (start,
// root suite, packages, end), even when reading fails part way, and then
// returns the read error.
func (c *Collector) Run(ctx context.Context, r io.Reader) error {
	c.root = &model.Suite{}
	c.emit(ctx, model.Event{Kind: model.EventStart})
	c.emit(ctx, model.Event{Kind: model.EventSuite, Suite: c.root})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var skipped int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		event, err := parseTestEvent(line)
		if err != nil {
			skipped++
			c.logger.Debug().Err(err).Str("line", string(line)).Msg("Skipping non-JSON line")
			continue
		}
		c.add(ctx, event)
	}
	scanErr := scanner.Err()

	// Packages still running when the stream ended (killed or timed out).
	for _, name := range c.order {
		if pkg, ok := c.packages[name]; ok {
			c.logger.Warn().Str("package", name).Msg("Package did not finish")
			c.replay(ctx, name, pkg)
		}
	}

	if skipped > 0 {
		c.logger.Debug().Int("lines", skipped).Msg("Ignored lines that were not test events")
	}

	c.emit(ctx, model.Event{Kind: model.EventSuiteEnd, Suite: c.root})
	c.emit(ctx, model.Event{Kind: model.EventEnd})

	if scanErr != nil {
		return fmt.Errorf("failed to read test events: %w", scanErr)
	}
	return nil
}

func parseTestEvent(line []byte) (TestEvent, error) {
	var event TestEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return event, err
	}
	if event.Action == "" {
		return event, errors.New("missing action")
	}
	return event, nil
}

func (c *Collector) add(ctx context.Context, event TestEvent) {
	if event.Package == "" {
		return
	}

	pkg, ok := c.packages[event.Package]
	if !ok {
		pkg = &packageRun{tests: newNode(event.Package)}
		c.packages[event.Package] = pkg
		c.order = append(c.order, event.Package)
	}

	if event.Test == "" {
		switch event.Action {
		case ActionStart:
			pkg.tests.started = event.Time
		case ActionOutput:
			pkg.output = append(pkg.output, event.Output)
		case ActionPass, ActionFail, ActionSkip:
			pkg.action = event.Action
			pkg.tests.finished = event.Time
			c.replay(ctx, event.Package, pkg)
		}
		return
	}

	n := pkg.tests
	for _, part := range strings.Split(event.Test, "/") {
		n = n.child(part)
	}

	switch event.Action {
	case ActionRun:
		n.started = event.Time
	case ActionOutput:
		n.output = append(n.output, event.Output)
	case ActionPass, ActionFail, ActionSkip:
		n.action = event.Action
		n.finished = event.Time
	}
}

func (c *Collector) replay(ctx context.Context, name string, pkg *packageRun) {
	delete(c.packages, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	failedOutside := pkg.action == ActionFail && !pkg.tests.anyFailed()
	if len(pkg.tests.children) == 0 && !failedOutside {
		c.logger.Debug().Str("package", name).Str("action", pkg.action).Msg("Package has no tests")
		return
	}

	suite := c.root.AddSuite(name)
	suite.Started = pkg.tests.started
	suite.Finished = pkg.tests.finished

	c.emit(ctx, model.Event{Kind: model.EventSuite, Suite: suite})
	for _, n := range pkg.tests.children {
		c.replayNode(ctx, suite, n)
	}
	if failedOutside {
		c.failed(ctx, suite, PackageFailureTitle, pkg.tests.started, pkg.tests.finished, pkg.output)
	}
	c.emit(ctx, model.Event{Kind: model.EventSuiteEnd, Suite: suite})
}

func (c *Collector) replayNode(ctx context.Context, parent *model.Suite, n *node) {
	if len(n.children) > 0 {
		suite := parent.AddSuite(n.name)
		suite.Started = n.started
		suite.Finished = n.finished

		c.emit(ctx, model.Event{Kind: model.EventSuite, Suite: suite})
		for _, child := range n.children {
			c.replayNode(ctx, suite, child)
		}
		if n.action == ActionFail && !n.anyFailed() {
			c.failed(ctx, suite, n.name, n.started, n.finished, n.output)
		}
		c.emit(ctx, model.Event{Kind: model.EventSuiteEnd, Suite: suite})
		return
	}

	switch n.action {
	case ActionSkip:
		test := parent.AddTest(n.name)
		test.Started = n.started
		test.Finished = n.finished
		c.emit(ctx, model.Event{Kind: model.EventPending, Test: test})
	case ActionPass:
		test := parent.AddTest(n.name)
		test.Started = n.started
		test.Finished = n.finished
		c.emit(ctx, model.Event{Kind: model.EventTest, Test: test})
		test.State = model.StatePassed
		c.emit(ctx, model.Event{Kind: model.EventPass, Test: test})
		c.emit(ctx, model.Event{Kind: model.EventTestEnd, Test: test})
	case ActionFail:
		c.failed(ctx, parent, n.name, n.started, n.finished, n.output)
	default:
		output := append(n.output, "test did not finish")
		c.failed(ctx, parent, n.name, n.started, n.finished, output)
	}
}

func (c *Collector) failed(ctx context.Context, parent *model.Suite, title string, started, finished time.Time, output []string) {
	test := parent.AddTest(title)
	test.Started = started
	test.Finished = finished

	c.emit(ctx, model.Event{Kind: model.EventTest, Test: test})
	test.State = model.StateFailed
	c.emit(ctx, model.Event{Kind: model.EventFail, Test: test, Err: errors.New(FailureMessage(output))})
	c.emit(ctx, model.Event{Kind: model.EventTestEnd, Test: test})
}

func (c *Collector) emit(ctx context.Context, ev model.Event) {
	c.handler.Handle(ctx, ev)
}

var framingPrefixes = []string{
	"=== RUN", "=== PAUSE", "=== CONT", "=== NAME",
	"--- PASS", "--- FAIL", "--- SKIP",
}

// FailureMessage joins test output into a failure message, dropping the
// framing lines test2json already turned into actions.
func FailureMessage(output []string) string {
	var lines []string
	for _, chunk := range output {
		for _, line := range strings.Split(strings.TrimRight(chunk, "\n"), "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || isFraming(trimmed) {
				continue
			}
			lines = append(lines, strings.TrimRight(line, " \t"))
		}
	}
	if len(lines) == 0 {
		return "test failed"
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isFraming(line string) bool {
	for _, prefix := range framingPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return line == "PASS" || line == "FAIL"
}
