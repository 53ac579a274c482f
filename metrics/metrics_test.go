package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rpgo/rpgo/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCall(t *testing.T) {
	m := New()
	m.RecordCall("start_launch", nil)
	m.RecordCall("start_launch", nil)
	m.RecordCall("send_log", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectorCallsTotal.WithLabelValues("start_launch", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectorCallsTotal.WithLabelValues("send_log", ResultError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connectorCallsTotal.WithLabelValues("send_log", ResultSuccess)))
}

func TestRecordEventAndTest(t *testing.T) {
	m := New()
	m.RecordEvent(model.EventSuite)
	m.RecordEvent(model.EventSuite)
	m.RecordTest(model.StatusSkipped)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("suite")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.testsTotal.WithLabelValues("skipped")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordEvent(model.EventStart)
	m.RecordCall("finish_launch", nil)
	m.RecordTest(model.StatusPassed)
	require.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "never.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordCall("finish_item", nil)

	path := filepath.Join(t.TempDir(), "rpgo.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `rpgo_connector_calls_total{operation="finish_item",result="success"} 1`)
}
