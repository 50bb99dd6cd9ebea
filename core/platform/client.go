package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StatusError is a non-2xx response from the vendor API. The body is kept
// for diagnostics; deletes and gatherers classify on the code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, body)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// statusOf extracts the status code from err if it is a StatusError.
func statusOf(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// Client talks to the vendor API. The embedded http.Client and its
// connection pool are safe for concurrent use by all workers; the session
// token is written once by Login before any worker starts.
type Client struct {
	cfg   Config
	http  *http.Client
	log   *zap.Logger
	token string
}

// NewClient validates the configuration and builds the client.
// No network call happens until Login.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid platform config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	timeout := cfg.Timeout()

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		log: log,
	}, nil
}

// OrgID returns the organization the client is scoped to.
func (c *Client) OrgID() string {
	return c.cfg.OrgID
}

// Login performs the opaque session handshake and stores the token used on
// every subsequent call. Total authentication failure is fatal to the run.
func (c *Client) Login(ctx context.Context) error {
	var resp struct {
		Token string `json:"token"`
	}

	body := map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
	}

	if err := c.do(ctx, http.MethodPost, "/login", nil, body, &resp); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("login failed: empty session token")
	}

	c.token = resp.Token
	c.log.Debug("session established")
	return nil
}

// Logout invalidates the session. Best-effort: a failed logout only warns,
// since the token expires server-side anyway.
func (c *Client) Logout(ctx context.Context) {
	if c.token == "" {
		return
	}
	if err := c.do(ctx, http.MethodPost, "/logout", nil, nil, nil); err != nil {
		c.log.Warn("logout failed", zap.Error(err))
	}
	c.token = ""
}

// do issues one authenticated request. A non-2xx response becomes a
// *StatusError carrying the code and body; out, when non-nil, receives the
// decoded JSON response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := strings.TrimSuffix(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// get issues a raw authenticated GET and returns the body stream.
// The caller owns the ReadCloser. Used for archive downloads.
func (c *Client) get(ctx context.Context, path string, query url.Values) (io.ReadCloser, int64, error) {
	u := strings.TrimSuffix(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request GET %s failed: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, 0, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	return resp.Body, resp.ContentLength, nil
}
