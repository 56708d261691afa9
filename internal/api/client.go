// Package api implements the typed REST client for the Easy Go Monitor
// service. All responses arrive in a {data: ...} envelope; all error
// responses carry {message: string}, which is propagated verbatim.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/easygomonitor/console/internal/apierr"
	"github.com/easygomonitor/console/internal/metrics"
	"github.com/easygomonitor/console/pkg/types"
)

const defaultBasePath = "/api/v1"

const userAgent = "easymon-console/0.1.0"

// Config holds the static configuration for a Client.
type Config struct {
	ServerURL string
	BasePath  string
}

// Dependencies allow test overrides for HTTP client, clock, logging,
// and session access. Token supplies the current bearer token (empty
// when unauthenticated); OnUnauthorized fires once per 401 so the
// session layer can force its transition.
type Dependencies struct {
	HTTPClient     *http.Client
	Logger         *log.Logger
	Now            func() time.Time
	Limiter        *rate.Limiter
	Metrics        metrics.RequestRecorder
	Token          func() string
	OnUnauthorized func()
}

// Client issues authenticated requests against one service instance.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	logger         *log.Logger
	now            func() time.Time
	limiter        *rate.Limiter
	metrics        metrics.RequestRecorder
	token          func() string
	onUnauthorized func()
}

// NewClient builds a Client from configuration and dependencies.
func NewClient(cfg Config, deps Dependencies) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if deps.HTTPClient == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.NoopRequestRecorder{}
	}
	token := deps.Token
	if token == nil {
		token = func() string { return "" }
	}

	return &Client{
		httpClient:     deps.HTTPClient,
		baseURL:        joinURL(cfg.ServerURL, basePath),
		logger:         logger,
		now:            now,
		limiter:        deps.Limiter,
		metrics:        recorder,
		token:          token,
		onUnauthorized: deps.OnUnauthorized,
	}, nil
}

// envelope is the wire shape of every service response. Success bodies
// fill Data; failure bodies fill Message.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do performs one request/response cycle: rate governance, bearer
// injection, envelope decode, and status classification. out may be
// nil for operations whose body is discarded.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apierr.Wrap(err, "request rate wait interrupted")
		}
	}

	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apierr.Wrap(err, fmt.Sprintf("marshal %s %s body", method, path))
		}
		buf = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return apierr.Wrap(err, fmt.Sprintf("build %s %s request", method, path))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	c.metrics.IncRequests()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncRequestFailures()
		return apierr.Wrap(err, fmt.Sprintf("%s %s: connection failed", method, path))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.IncRequestFailures()
		return apierr.Wrap(err, fmt.Sprintf("%s %s: read response", method, path))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.IncRequestFailures()
		return c.classify(resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.metrics.IncRequestFailures()
		return apierr.Wrap(err, "decode response envelope")
	}
	if env.Data == nil {
		c.metrics.IncRequestFailures()
		return apierr.New(apierr.KindTransport, "response envelope has no data field")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		c.metrics.IncRequestFailures()
		return apierr.Wrap(err, "decode response data")
	}
	return nil
}

// classify maps a failure status to its error kind, carrying the server
// message through untouched.
func (c *Client) classify(status int, raw []byte) error {
	message := serverMessage(raw)

	switch {
	case status == http.StatusUnauthorized:
		c.metrics.IncSessionInvalidations()
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		if message == "" {
			message = "session rejected by server"
		}
		return apierr.WithStatus(apierr.KindSessionInvalid, status, message)
	case status == http.StatusNotFound:
		if message == "" {
			message = "resource no longer exists"
		}
		return apierr.WithStatus(apierr.KindStale, status, message)
	case status >= 400 && status < 500:
		if message == "" {
			message = http.StatusText(status)
		}
		return apierr.WithStatus(apierr.KindValidation, status, message)
	default:
		if message == "" {
			message = fmt.Sprintf("server returned status %d", status)
		}
		return apierr.WithStatus(apierr.KindTransport, status, message)
	}
}

func serverMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return strings.TrimSpace(env.Message)
}

// Login exchanges credentials for a bearer token. No token header is
// attached; this is the one unauthenticated endpoint.
func (c *Client) Login(ctx context.Context, creds types.Credentials) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", creds, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if out.Token == "" {
		return "", apierr.New(apierr.KindTransport, "login response has no token")
	}
	return out.Token, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (types.User, error) {
	var user types.User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &user); err != nil {
		return types.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, nil
}

func (c *Client) ListMonitors(ctx context.Context) ([]types.Monitor, error) {
	var monitors []types.Monitor
	if err := c.do(ctx, http.MethodGet, "/monitors", nil, &monitors); err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	return monitors, nil
}

// SearchMonitors lists the monitors owned by one user.
func (c *Client) SearchMonitors(ctx context.Context, userID string) ([]types.Monitor, error) {
	var monitors []types.Monitor
	path := "/monitors/search?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &monitors); err != nil {
		return nil, fmt.Errorf("search monitors: %w", err)
	}
	return monitors, nil
}

func (c *Client) CreateMonitor(ctx context.Context, in types.MonitorCreateInput) (types.Monitor, error) {
	var monitor types.Monitor
	if err := c.do(ctx, http.MethodPost, "/monitors", in, &monitor); err != nil {
		return types.Monitor{}, fmt.Errorf("create monitor: %w", err)
	}
	return monitor, nil
}

func (c *Client) UpdateMonitor(ctx context.Context, id string, in types.MonitorUpdateInput) (types.Monitor, error) {
	var monitor types.Monitor
	if err := c.do(ctx, http.MethodPut, "/monitors/"+url.PathEscape(id), in, &monitor); err != nil {
		return types.Monitor{}, fmt.Errorf("update monitor %s: %w", id, err)
	}
	return monitor, nil
}

// SetMonitorEnabled flips the enabled flag server-side. The response
// body, if any, is discarded; 200 and 204 are both accepted.
func (c *Client) SetMonitorEnabled(ctx context.Context, id string, enabled bool) error {
	body := struct {
		IsEnabled bool `json:"is_enabled"`
	}{IsEnabled: enabled}
	path := "/monitors/" + url.PathEscape(id) + "/enabled"
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("toggle monitor %s: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteMonitor(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/monitors/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete monitor %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListRunners(ctx context.Context, userID string) ([]types.Runner, error) {
	var runners []types.Runner
	path := "/runners?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &runners); err != nil {
		return nil, fmt.Errorf("list runners: %w", err)
	}
	return runners, nil
}

func (c *Client) CreateRunner(ctx context.Context, in types.RunnerCreateInput) (types.Runner, error) {
	var runner types.Runner
	if err := c.do(ctx, http.MethodPost, "/runners", in, &runner); err != nil {
		return types.Runner{}, fmt.Errorf("create runner: %w", err)
	}
	return runner, nil
}

func (c *Client) UpdateRunner(ctx context.Context, id string, in types.RunnerUpdateInput) (types.Runner, error) {
	var runner types.Runner
	if err := c.do(ctx, http.MethodPut, "/runners/"+url.PathEscape(id), in, &runner); err != nil {
		return types.Runner{}, fmt.Errorf("update runner %s: %w", id, err)
	}
	return runner, nil
}

func (c *Client) DeleteRunner(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/runners/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete runner %s: %w", id, err)
	}
	return nil
}

// ExecuteRunner triggers an immediate execution server-side.
func (c *Client) ExecuteRunner(ctx context.Context, id string) error {
	path := "/runners/" + url.PathEscape(id) + "/execute"
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("execute runner %s: %w", id, err)
	}
	return nil
}

func (c *Client) RunnerHistories(ctx context.Context, runnerID string) ([]types.HistoryEntry, error) {
	var entries []types.HistoryEntry
	path := "/runners/" + url.PathEscape(runnerID) + "/histories"
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("runner histories %s: %w", runnerID, err)
	}
	return entries, nil
}

// RecentFailures fetches failure entries from the trailing window.
func (c *Client) RecentFailures(ctx context.Context, status string, window time.Duration) ([]types.HistoryEntry, error) {
	if status == "" {
		status = types.HistoryStatusFail
	}
	minutes := int(window / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	var entries []types.HistoryEntry
	path := fmt.Sprintf("/runner-histories?status=%s&minutes=%d", url.QueryEscape(status), minutes)
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("recent failures: %w", err)
	}
	return entries, nil
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
