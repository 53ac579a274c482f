package reporter

// Package reporter translates test lifecycle events into calls against a
// reporting backend. A failing remote call is logged and never aborts the
// run: local bookkeeping always advances so later events address, at worst,
// a missing identifier.

import (
	"context"

	"github.com/rpgo/rpgo/hierarchy"
	"github.com/rpgo/rpgo/metrics"
	"github.com/rpgo/rpgo/model"
	"github.com/rpgo/rpgo/phase"
	"github.com/rs/zerolog"
)

// Connector performs the remote calls. Every method blocks until the backend
// answers and reports failure through its error.
type Connector interface {
	StartLaunch(ctx context.Context) (string, error)
	FinishLaunch(ctx context.Context, launchID string) error
	StartRootItem(ctx context.Context, item model.StartItem) (string, error)
	StartChildItem(ctx context.Context, item model.StartItem, parentID string) (string, error)
	FinishItem(ctx context.Context, item model.FinishItem) error
	SendLog(ctx context.Context, itemID string, entry model.LogEntry) error
}

// Operation names used in logs and metrics
const (
	OpStartLaunch    = "start_launch"
	OpFinishLaunch   = "finish_launch"
	OpStartRootItem  = "start_root_item"
	OpStartChildItem = "start_child_item"
	OpFinishItem     = "finish_item"
	OpSendLog        = "send_log"
)

// Reporter is the event translator for one process. It is driven from a
// single goroutine in framework run order.
type Reporter struct {
	logger   zerolog.Logger
	conn     Connector
	session  *phase.Session
	tracker  *hierarchy.Tracker
	metrics  *metrics.Metrics
	launchID string
	summary  model.Summary

	persistErr error
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithMetrics counts events and connector calls.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reporter) {
		r.metrics = m
	}
}

// New creates a Reporter. A nil session behaves as phase complete_test.
func New(logger zerolog.Logger, conn Connector, session *phase.Session, opts ...Option) *Reporter {
	if session == nil {
		session = &phase.Session{Phase: phase.CompleteTest}
	}
	r := &Reporter{
		logger:   logger,
		conn:     conn,
		session:  session,
		tracker:  hierarchy.New(),
		launchID: session.LaunchID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LaunchID returns the launch the reporter writes into; empty until a launch
// was created or loaded.
func (r *Reporter) LaunchID() string {
	return r.launchID
}

// PersistErr returns why the launch id could not be stored in the start
// phase, or nil.
func (r *Reporter) PersistErr() error {
	return r.persistErr
}

// Summary returns what has been reported so far.
func (r *Reporter) Summary() model.Summary {
	return r.summary
}

// Handle dispatches one lifecycle event.
func (r *Reporter) Handle(ctx context.Context, ev model.Event) {
	r.metrics.RecordEvent(ev.Kind)

	switch ev.Kind {
	case model.EventStart:
		r.OnStart(ctx)
		return
	case model.EventEnd:
		r.OnEnd(ctx)
		return
	case model.EventSuite, model.EventSuiteEnd:
		if ev.Suite == nil {
			r.logger.Warn().Str("event", string(ev.Kind)).Msg("Ignoring suite event without suite")
			return
		}
	case model.EventTest, model.EventPass, model.EventFail, model.EventPending, model.EventTestEnd:
		if ev.Test == nil {
			r.logger.Warn().Str("event", string(ev.Kind)).Msg("Ignoring test event without test")
			return
		}
	default:
		r.logger.Debug().Str("event", string(ev.Kind)).Msg("Ignoring unknown event")
		return
	}

	switch ev.Kind {
	case model.EventSuite:
		r.OnSuite(ctx, ev.Suite)
	case model.EventSuiteEnd:
		r.OnSuiteEnd(ctx, ev.Suite)
	case model.EventTest:
		r.OnTest(ctx, ev.Test)
	case model.EventPass:
		r.OnPass(ctx, ev.Test)
	case model.EventFail:
		r.OnFail(ctx, ev.Test, ev.Err)
	case model.EventPending:
		r.OnPending(ctx, ev.Test)
	case model.EventTestEnd:
		r.OnTestEnd(ctx, ev.Test)
	}
}

// OnStart creates the launch when this process owns its creation.
func (r *Reporter) OnStart(ctx context.Context) {
	if !r.session.CreatesLaunch() {
		r.logger.Debug().
			Str("phase", string(r.session.Phase)).
			Str("launch", r.launchID).
			Msg("Joining existing launch")
		return
	}

	id, err := r.conn.StartLaunch(ctx)
	r.record(OpStartLaunch, err)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to start launch")
		return
	}
	r.launchID = id
	r.logger.Info().Str("launch", id).Str("phase", string(r.session.Phase)).Msg("Launch started")

	if r.session.Phase == phase.Start {
		if err := r.session.Persist(id); err != nil {
			r.persistErr = err
			r.logger.Error().Err(err).Str("path", r.session.Path()).Msg("Failed to persist launch id")
			return
		}
		r.logger.Debug().Str("path", r.session.Path()).Msg("Persisted launch id")
	}
}

// OnEnd finishes the launch when this process owns its completion.
func (r *Reporter) OnEnd(ctx context.Context) {
	if r.tracker.Open() {
		r.logger.Warn().Int("open", r.tracker.Depth()).Msg("Run ended with suites still open")
	}
	if !r.session.FinishesLaunch() {
		r.logger.Debug().Str("phase", string(r.session.Phase)).Msg("Leaving launch open for a later phase")
		return
	}

	err := r.conn.FinishLaunch(ctx, r.launchID)
	r.record(OpFinishLaunch, err)
	if err != nil {
		r.logger.Warn().Err(err).Str("launch", r.launchID).Msg("Failed to finish launch")
		return
	}
	r.logger.Info().Str("launch", r.launchID).Msg("Launch finished")
}

// OnSuite creates a suite item under the innermost open suite, or as a root
// item when none is open. The anonymous top-level suite is skipped.
func (r *Reporter) OnSuite(ctx context.Context, suite *model.Suite) {
	if suite.Root() {
		return
	}

	id, err := r.startItem(ctx, model.StartItem{
		Name:        suite.Title,
		Launch:      r.launchID,
		Description: suite.FullTitle(),
		Type:        model.ItemTypeSuite,
		StartTime:   suite.Started,
	})
	r.tracker.Enter(suite, id)
	r.summary.Suites++
	if err != nil {
		r.logger.Warn().Err(err).Str("suite", suite.FullTitle()).Msg("Failed to create suite item")
	}
}

// OnSuiteEnd finishes a suite item. The suite failed if any of its direct
// tests failed; nested suites do not propagate.
func (r *Reporter) OnSuiteEnd(ctx context.Context, suite *model.Suite) {
	if suite.Root() {
		return
	}

	status := model.StatusPassed
	if suite.HasFailures() {
		status = model.StatusFailed
	}

	id, _ := r.tracker.Exit(suite)
	err := r.conn.FinishItem(ctx, model.FinishItem{
		ID:      id,
		Status:  status,
		Launch:  r.launchID,
		EndTime: suite.Finished,
	})
	r.record(OpFinishItem, err)
	if err != nil {
		r.logger.Warn().Err(err).Str("suite", suite.FullTitle()).Msg("Failed to finish suite item")
	}
}

// OnTest creates a test item under the innermost open suite.
func (r *Reporter) OnTest(ctx context.Context, test *model.Test) {
	id, err := r.startItem(ctx, testItem(test, r.launchID))
	if err != nil {
		r.logger.Warn().Err(err).Str("test", test.FullTitle()).Msg("Failed to create test item")
		return
	}
	r.tracker.RecordTest(test, id)
}

// OnPass needs no remote call; the status is sent on test end.
func (r *Reporter) OnPass(ctx context.Context, test *model.Test) {
	r.logger.Debug().Str("test", test.FullTitle()).Msg("Test passed")
}

// OnFail attaches the failure message to the test item.
func (r *Reporter) OnFail(ctx context.Context, test *model.Test, failure error) {
	id, _ := r.tracker.TestID(test)

	message := ""
	if failure != nil {
		message = failure.Error()
	}

	err := r.conn.SendLog(ctx, id, model.LogEntry{
		Level:   model.LogLevelFailed,
		Message: message,
		Launch:  r.launchID,
		Time:    test.Finished,
	})
	r.record(OpSendLog, err)
	if err != nil {
		r.logger.Warn().Err(err).Str("test", test.FullTitle()).Msg("Failed to send failure log")
	}
}

// OnPending reports a test that never ran: create, log and finish it as
// skipped in one go.
func (r *Reporter) OnPending(ctx context.Context, test *model.Test) {
	r.summary.Skipped++
	r.metrics.RecordTest(model.StatusSkipped)

	id, err := r.startItem(ctx, testItem(test, r.launchID))
	if err != nil {
		r.logger.Warn().Err(err).Str("test", test.FullTitle()).Msg("Failed to create pending test item")
		return
	}

	err = r.conn.SendLog(ctx, id, model.LogEntry{
		Level:   model.LogLevelSkipped,
		Message: test.Title,
		Launch:  r.launchID,
		Time:    test.Started,
	})
	r.record(OpSendLog, err)
	if err != nil {
		r.logger.Warn().Err(err).Str("test", test.FullTitle()).Msg("Failed to send skip log")
	}

	err = r.conn.FinishItem(ctx, model.FinishItem{
		ID:      id,
		Status:  model.StatusSkipped,
		Launch:  r.launchID,
		EndTime: test.Finished,
	})
	r.record(OpFinishItem, err)
	if err != nil {
		r.logger.Warn().Err(err).Str("test", test.FullTitle()).Msg("Failed to finish pending test item")
	}
}

// OnTestEnd finishes a test item with its final state. Tests without a
// state were already finished as pending and are ignored.
func (r *Reporter) OnTestEnd(ctx context.Context, test *model.Test) {
	if test.State == model.StateUndefined {
		return
	}

	status := model.Status(test.State)
	switch status {
	case model.StatusPassed:
		r.summary.Passed++
	case model.StatusFailed:
		r.summary.Failed++
	}
	r.metrics.RecordTest(status)

	id, _ := r.tracker.TestID(test)
	r.tracker.ForgetTest(test)

	err := r.conn.FinishItem(ctx, model.FinishItem{
		ID:      id,
		Status:  status,
		Launch:  r.launchID,
		EndTime: test.Finished,
	})
	r.record(OpFinishItem, err)
	if err != nil {
		r.logger.Warn().Err(err).Str("test", test.FullTitle()).Msg("Failed to finish test item")
	}
}

// startItem creates item under the innermost open suite. The parent id is
// passed even when empty so a suite whose creation failed still scopes its
// children.
func (r *Reporter) startItem(ctx context.Context, item model.StartItem) (string, error) {
	if !r.tracker.Open() {
		id, err := r.conn.StartRootItem(ctx, item)
		r.record(OpStartRootItem, err)
		return id, err
	}

	parentID, _ := r.tracker.Parent()
	id, err := r.conn.StartChildItem(ctx, item, parentID)
	r.record(OpStartChildItem, err)
	return id, err
}

func (r *Reporter) record(operation string, err error) {
	r.metrics.RecordCall(operation, err)
	if err != nil {
		r.summary.RemoteErrors++
	}
}

func testItem(test *model.Test, launchID string) model.StartItem {
	return model.StartItem{
		Name:        test.Title,
		Launch:      launchID,
		Description: test.FullTitle(),
		Type:        model.ItemTypeTest,
		StartTime:   test.Started,
	}
}
