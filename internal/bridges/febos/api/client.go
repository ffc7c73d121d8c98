package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Endpoint paths, relative to the configured base URL.
const (
	pathLogin      = "/febos-api/auth/login"
	pathPageConfig = "/febos-api/installation/%s/page-config"
	pathSlaves     = "/febos-api/installation/%s/device/%s/febos-slave"
	pathRealtime   = "/febos-api/installation/%s/realtime-data"
)

const (
	defaultTimeout = 30 * time.Second

	// maxResponseSize caps any response body read from the cloud.
	maxResponseSize = 8 << 20

	// errorBodyPreview is how much of an error body is kept in the message.
	errorBodyPreview = 256
)

// Logger is the subset of logging.Logger the client uses.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Username string
	Password string

	// Timeout bounds each request. Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the default client (tests, proxies).
	HTTPClient *http.Client

	Logger Logger
}

// Client talks to the Febos cloud over HTTPS/JSON.
//
// Thread Safety:
//   - All methods are safe for concurrent use; the session token is
//     replaced atomically by Login.
type Client struct {
	baseURL  *url.URL
	creds    Credentials
	http     *http.Client
	logger   Logger
	tokenMu  sync.RWMutex
	token    string
	loggedIn time.Time
}

// New creates a client. No request is made until Login.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid febos base url %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	return &Client{
		baseURL: base,
		creds:   Credentials{Username: opts.Username, Password: opts.Password},
		http:    httpClient,
		logger:  logger,
	}, nil
}

// Login authenticates with the configured credentials and stores the
// session token for subsequent calls.
func (c *Client) Login(ctx context.Context) (*LoginResult, error) {
	var result LoginResult
	if err := c.do(ctx, http.MethodPost, pathLogin, c.creds, &result, false); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if result.Token == "" {
		return nil, fmt.Errorf("login: %w: no session token in response", ErrAuthentication)
	}

	c.tokenMu.Lock()
	c.token = result.Token
	c.loggedIn = time.Now()
	c.tokenMu.Unlock()

	c.logger.Debug("febos login succeeded", "installations", len(result.InstallationIDList))
	return &result, nil
}

// LoggedInAt returns when the current session was obtained (zero if never).
func (c *Client) LoggedInAt() time.Time {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.loggedIn
}

// PageConfig fetches the layout of one installation.
func (c *Client) PageConfig(ctx context.Context, installationID string) (*PageConfig, error) {
	var cfg PageConfig
	path := fmt.Sprintf(pathPageConfig, url.PathEscape(installationID))
	if err := c.do(ctx, http.MethodGet, path, nil, &cfg, true); err != nil {
		return nil, fmt.Errorf("page config for installation %s: %w", installationID, err)
	}
	return &cfg, nil
}

// Slaves fetches the slave records of one device.
func (c *Client) Slaves(ctx context.Context, installationID, deviceID string) ([]Slave, error) {
	var slaves []Slave
	path := fmt.Sprintf(pathSlaves, url.PathEscape(installationID), url.PathEscape(deviceID))
	if err := c.do(ctx, http.MethodGet, path, nil, &slaves, true); err != nil {
		return nil, fmt.Errorf("slaves for device %s: %w", deviceID, err)
	}
	return slaves, nil
}

// RealtimeData fetches current values for the given input groups.
func (c *Client) RealtimeData(ctx context.Context, installationID string, groups []string) ([]RealtimeEntry, error) {
	var entries []RealtimeEntry
	path := fmt.Sprintf(pathRealtime, url.PathEscape(installationID))
	body := RealtimeRequest{InputGroupGetCodeList: groups}
	if body.InputGroupGetCodeList == nil {
		body.InputGroupGetCodeList = []string{}
	}
	if err := c.do(ctx, http.MethodPost, path, body, &entries, true); err != nil {
		return nil, fmt.Errorf("realtime data for installation %s: %w", installationID, err)
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, authenticated bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authenticated {
		c.tokenMu.RLock()
		token := c.token
		c.tokenMu.RUnlock()
		if token == "" {
			return fmt.Errorf("%w: not logged in", ErrAuthentication)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrTransport, ctxErr)
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("febos request", "method", method, "path", path,
		"status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthentication, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, preview(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w: %w", ErrTransport, ErrDecode, err)
	}
	return nil
}

func preview(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > errorBodyPreview {
		s = s[:errorBodyPreview] + "..."
	}
	return s
}
