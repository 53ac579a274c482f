package rportal

// Package rportal talks to a ReportPortal server over its v1 JSON API.
// Every call is a blocking request/response bounded by the caller's context
// and the client timeout.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rpgo/rpgo/model"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 1 << 20
)

// ErrMissingID is returned when an operation needs an identifier that the
// caller does not have, typically because an earlier create call failed.
var ErrMissingID = errors.New("missing item identifier")

// LaunchOptions describes the launch created by StartLaunch
type LaunchOptions struct {
	Name        string
	Description string
	// DEFAULT or DEBUG
	Mode       string
	Attributes map[string]string
}

// Options configures a Client
type Options struct {
	// Server base URL, e.g. https://rp.example.com
	Endpoint string
	Project  string
	// API token sent as a bearer token
	Token   string
	Launch  LaunchOptions
	Timeout time.Duration
}

// Client is a ReportPortal connector
type Client struct {
	logger  zerolog.Logger
	http    *http.Client
	baseURL string
	token   string
	launch  LaunchOptions
	now     func() time.Time
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithClock sets the time source used for start/end times the caller left
// empty.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a connector for the project at opts.Endpoint.
func New(logger zerolog.Logger, opts Options, clientOpts ...ClientOption) (*Client, error) {
	endpoint, err := url.Parse(strings.TrimSpace(opts.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", opts.Endpoint, err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", opts.Endpoint)
	}
	if opts.Project == "" {
		return nil, fmt.Errorf("project is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		logger:  logger,
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(endpoint.String(), "/") + "/api/v1/" + url.PathEscape(opts.Project),
		token:   opts.Token,
		launch:  opts.Launch,
		now:     time.Now,
	}
	for _, opt := range clientOpts {
		opt(c)
	}
	return c, nil
}

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("reportportal: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("reportportal: HTTP %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

type attribute struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

type startLaunchRQ struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Mode        string      `json:"mode,omitempty"`
	StartTime   int64       `json:"startTime"`
	Attributes  []attribute `json:"attributes,omitempty"`
}

type finishLaunchRQ struct {
	EndTime int64 `json:"endTime"`
}

type startItemRQ struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	LaunchUUID  string `json:"launchUuid"`
	StartTime   int64  `json:"startTime"`
}

type finishItemRQ struct {
	Status     string `json:"status"`
	LaunchUUID string `json:"launchUuid"`
	EndTime    int64  `json:"endTime"`
}

type logRQ struct {
	ItemUUID   string `json:"itemUuid,omitempty"`
	LaunchUUID string `json:"launchUuid"`
	Level      string `json:"level"`
	Message    string `json:"message"`
	Time       int64  `json:"time"`
}

type entryCreatedRS struct {
	ID string `json:"id"`
}

type errorRS struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
}

// StartLaunch creates a launch and returns its uuid.
func (c *Client) StartLaunch(ctx context.Context) (string, error) {
	rq := startLaunchRQ{
		Name:        c.launch.Name,
		Description: c.launch.Description,
		Mode:        c.launch.Mode,
		StartTime:   c.millis(time.Time{}),
		Attributes:  attributes(c.launch.Attributes),
	}
	var rs entryCreatedRS
	if err := c.do(ctx, http.MethodPost, "/launch", rq, &rs); err != nil {
		return "", fmt.Errorf("failed to start launch: %w", err)
	}
	return rs.ID, nil
}

// FinishLaunch finishes a launch.
func (c *Client) FinishLaunch(ctx context.Context, launchID string) error {
	if launchID == "" {
		return fmt.Errorf("failed to finish launch: %w", ErrMissingID)
	}
	rq := finishLaunchRQ{EndTime: c.millis(time.Time{})}
	if err := c.do(ctx, http.MethodPut, "/launch/"+url.PathEscape(launchID)+"/finish", rq, nil); err != nil {
		return fmt.Errorf("failed to finish launch %s: %w", launchID, err)
	}
	return nil
}

// StartRootItem creates an item directly under the launch.
func (c *Client) StartRootItem(ctx context.Context, item model.StartItem) (string, error) {
	var rs entryCreatedRS
	if err := c.do(ctx, http.MethodPost, "/item", c.startItem(item), &rs); err != nil {
		return "", fmt.Errorf("failed to start item %q: %w", item.Name, err)
	}
	return rs.ID, nil
}

// StartChildItem creates an item under parentID.
func (c *Client) StartChildItem(ctx context.Context, item model.StartItem, parentID string) (string, error) {
	if parentID == "" {
		return "", fmt.Errorf("failed to start item %q: parent: %w", item.Name, ErrMissingID)
	}
	var rs entryCreatedRS
	if err := c.do(ctx, http.MethodPost, "/item/"+url.PathEscape(parentID), c.startItem(item), &rs); err != nil {
		return "", fmt.Errorf("failed to start item %q: %w", item.Name, err)
	}
	return rs.ID, nil
}

// FinishItem finishes an item with a status.
func (c *Client) FinishItem(ctx context.Context, item model.FinishItem) error {
	if item.ID == "" {
		return fmt.Errorf("failed to finish item: %w", ErrMissingID)
	}
	rq := finishItemRQ{
		Status:     string(item.Status),
		LaunchUUID: item.Launch,
		EndTime:    c.millis(item.EndTime),
	}
	if err := c.do(ctx, http.MethodPut, "/item/"+url.PathEscape(item.ID), rq, nil); err != nil {
		return fmt.Errorf("failed to finish item %s: %w", item.ID, err)
	}
	return nil
}

// SendLog attaches a log entry to an item. With an empty itemID the entry is
// attached to the launch itself.
func (c *Client) SendLog(ctx context.Context, itemID string, entry model.LogEntry) error {
	rq := logRQ{
		ItemUUID:   itemID,
		LaunchUUID: entry.Launch,
		Level:      wireLevel(entry.Level),
		Message:    entry.Message,
		Time:       c.millis(entry.Time),
	}
	if err := c.do(ctx, http.MethodPost, "/log", rq, nil); err != nil {
		return fmt.Errorf("failed to send log: %w", err)
	}
	return nil
}

func (c *Client) startItem(item model.StartItem) startItemRQ {
	return startItemRQ{
		Name:        item.Name,
		Description: item.Description,
		Type:        string(item.Type),
		LaunchUUID:  item.Launch,
		StartTime:   c.millis(item.StartTime),
	}
}

func (c *Client) millis(t time.Time) int64 {
	if t.IsZero() {
		t = c.now()
	}
	return t.UnixMilli()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", c.now().Sub(start)).
		Msg("ReportPortal request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var rs errorRS
		if json.Unmarshal(data, &rs) == nil {
			apiErr.Code = rs.ErrorCode
			apiErr.Message = rs.Message
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func wireLevel(level model.LogLevel) string {
	switch level {
	case model.LogLevelFailed:
		return "error"
	case model.LogLevelSkipped:
		return "info"
	case "":
		return "info"
	default:
		return strings.ToLower(string(level))
	}
}

// attributes renders launch attributes in a stable order.
func attributes(m map[string]string) []attribute {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attribute{Key: k, Value: m[k]})
	}
	return attrs
}
