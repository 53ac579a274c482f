package rportal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpgo/rpgo/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]request) {
	t.Helper()
	var got []request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		rq := request{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		assert.NoError(t, json.Unmarshal(data, &rq.Body))
		got = append(got, rq)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := New(zerolog.Nop(), Options{
		Endpoint: endpoint,
		Project:  "demo",
		Token:    "secret",
		Launch: LaunchOptions{
			Name:       "nightly",
			Mode:       "DEFAULT",
			Attributes: map[string]string{"branch": "main", "commit": "abc"},
		},
	}, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(zerolog.Nop(), Options{Endpoint: "rp.example.com", Project: "p"})
	require.Error(t, err)

	_, err = New(zerolog.Nop(), Options{Endpoint: "https://rp.example.com"})
	require.Error(t, err)

	c, err := New(zerolog.Nop(), Options{Endpoint: "https://rp.example.com/", Project: "p"})
	require.NoError(t, err)
	assert.Equal(t, "https://rp.example.com/api/v1/p", c.baseURL)
	assert.Equal(t, defaultTimeout, c.http.Timeout)
}

func TestStartLaunch(t *testing.T) {
	srv, got := newTestServer(t, http.StatusCreated, `{"id":"launch-uuid","number":7}`)
	c := newClient(t, srv.URL)

	id, err := c.StartLaunch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "launch-uuid", id)

	require.Len(t, *got, 1)
	rq := (*got)[0]
	assert.Equal(t, http.MethodPost, rq.Method)
	assert.Equal(t, "/api/v1/demo/launch", rq.Path)
	assert.Equal(t, "Bearer secret", rq.Auth)
	assert.Equal(t, "nightly", rq.Body["name"])
	assert.Equal(t, "DEFAULT", rq.Body["mode"])
	assert.Equal(t, float64(fixedNow.UnixMilli()), rq.Body["startTime"])
	assert.Equal(t, []any{
		map[string]any{"key": "branch", "value": "main"},
		map[string]any{"key": "commit", "value": "abc"},
	}, rq.Body["attributes"])
}

func TestItems(t *testing.T) {
	srv, got := newTestServer(t, http.StatusCreated, `{"id":"item-uuid"}`)
	c := newClient(t, srv.URL)
	ctx := context.Background()
	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	id, err := c.StartRootItem(ctx, model.StartItem{
		Name:        "A",
		Launch:      "L",
		Description: "A",
		Type:        model.ItemTypeSuite,
		StartTime:   started,
	})
	require.NoError(t, err)
	assert.Equal(t, "item-uuid", id)

	_, err = c.StartChildItem(ctx, model.StartItem{Name: "t1", Launch: "L", Type: model.ItemTypeTest}, "parent-uuid")
	require.NoError(t, err)

	require.NoError(t, c.FinishItem(ctx, model.FinishItem{ID: "item-uuid", Status: model.StatusFailed, Launch: "L"}))

	require.Len(t, *got, 3)
	assert.Equal(t, "/api/v1/demo/item", (*got)[0].Path)
	assert.Equal(t, "SUITE", (*got)[0].Body["type"])
	assert.Equal(t, "L", (*got)[0].Body["launchUuid"])
	assert.Equal(t, float64(started.UnixMilli()), (*got)[0].Body["startTime"])

	assert.Equal(t, "/api/v1/demo/item/parent-uuid", (*got)[1].Path)
	assert.Equal(t, "TEST", (*got)[1].Body["type"])

	assert.Equal(t, http.MethodPut, (*got)[2].Method)
	assert.Equal(t, "/api/v1/demo/item/item-uuid", (*got)[2].Path)
	assert.Equal(t, "failed", (*got)[2].Body["status"])
	assert.Equal(t, float64(fixedNow.UnixMilli()), (*got)[2].Body["endTime"])
}

func TestFinishLaunch(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK, `{"message":"finished"}`)
	c := newClient(t, srv.URL)

	require.NoError(t, c.FinishLaunch(context.Background(), "launch-uuid"))
	require.Len(t, *got, 1)
	assert.Equal(t, http.MethodPut, (*got)[0].Method)
	assert.Equal(t, "/api/v1/demo/launch/launch-uuid/finish", (*got)[0].Path)
}

func TestSendLog(t *testing.T) {
	srv, got := newTestServer(t, http.StatusCreated, `{"id":"log-uuid"}`)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, c.SendLog(ctx, "item-uuid", model.LogEntry{Level: model.LogLevelFailed, Message: "boom", Launch: "L"}))
	require.NoError(t, c.SendLog(ctx, "", model.LogEntry{Level: model.LogLevelSkipped, Message: "skip", Launch: "L"}))

	require.Len(t, *got, 2)
	assert.Equal(t, "/api/v1/demo/log", (*got)[0].Path)
	assert.Equal(t, "item-uuid", (*got)[0].Body["itemUuid"])
	assert.Equal(t, "error", (*got)[0].Body["level"])
	assert.Equal(t, "boom", (*got)[0].Body["message"])

	_, hasItem := (*got)[1].Body["itemUuid"]
	assert.False(t, hasItem)
	assert.Equal(t, "info", (*got)[1].Body["level"])
}

func TestMissingIDsAreNotSent(t *testing.T) {
	srv, got := newTestServer(t, http.StatusOK, `{}`)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.StartChildItem(ctx, model.StartItem{Name: "orphan"}, "")
	require.ErrorIs(t, err, ErrMissingID)
	require.ErrorIs(t, c.FinishItem(ctx, model.FinishItem{Status: model.StatusPassed}), ErrMissingID)
	require.ErrorIs(t, c.FinishLaunch(ctx, ""), ErrMissingID)

	assert.Empty(t, *got)
}

func TestAPIError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, `{"errorCode":4040,"message":"Launch not found"}`)
	c := newClient(t, srv.URL)

	err := c.FinishLaunch(context.Background(), "nope")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, 4040, apiErr.Code)
	assert.Contains(t, err.Error(), "Launch not found")
}

func TestAPIError_UnparseableBody(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadGateway, `<html>bad gateway</html>`)
	c := newClient(t, srv.URL)

	_, err := c.StartLaunch(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "reportportal: HTTP 502", apiErr.Error())
}

func TestWireLevel(t *testing.T) {
	assert.Equal(t, "error", wireLevel(model.LogLevelFailed))
	assert.Equal(t, "info", wireLevel(model.LogLevelSkipped))
	assert.Equal(t, "warn", wireLevel(model.LogLevelWarn))
	assert.Equal(t, "debug", wireLevel(model.LogLevelDebug))
	assert.Equal(t, "info", wireLevel(""))
}

func TestDryRun(t *testing.T) {
	d := NewDryRun(zerolog.Nop())
	ctx := context.Background()

	launch, err := d.StartLaunch(ctx)
	require.NoError(t, err)
	assert.Len(t, launch, 36)

	a, err := d.StartRootItem(ctx, model.StartItem{Name: "A"})
	require.NoError(t, err)
	b, err := d.StartChildItem(ctx, model.StartItem{Name: "b"}, a)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	require.NoError(t, d.SendLog(ctx, b, model.LogEntry{Level: model.LogLevelFailed}))
	require.NoError(t, d.FinishItem(ctx, model.FinishItem{ID: b, Status: model.StatusFailed}))
	require.NoError(t, d.FinishLaunch(ctx, launch))
}
