// Package hub talks to the Hugging Face Hub for dataset file download and commit.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Download when the repository has no such file.
var ErrNotFound = errors.New("hub: file not found")

// StatusError is a non-success HTTP response from the hub.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hub %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if retried.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config configures a Client.
type Config struct {
	Endpoint   string
	Token      string
	Revision   string
	Attempts   uint
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Client is a minimal dataset-repository client.
type Client struct {
	endpoint   string
	token      string
	revision   string
	attempts   uint
	retryDelay time.Duration
	http       *http.Client
	logger     *zap.Logger
}

// NewClient creates a hub client. A nil logger disables retry logging.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Revision == "" {
		cfg.Revision = "main"
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		token:      cfg.Token,
		revision:   cfg.Revision,
		attempts:   cfg.Attempts,
		retryDelay: cfg.RetryDelay,
		http:       &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Download fetches filename from the dataset repository. A missing file yields ErrNotFound.
func (c *Client) Download(ctx context.Context, repoID, filename string) ([]byte, error) {
	u := fmt.Sprintf("%s/datasets/%s/resolve/%s/%s", c.endpoint, repoID, url.PathEscape(c.revision), escapePath(filename))

	resp, err := c.send(ctx, "download", filename, request{method: http.MethodGet, url: u}, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	return resp.body, nil
}

type createRepoRequest struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Private      bool   `json:"private"`
}

// CreateRepo creates the dataset repository. It reports false when the repository already exists.
func (c *Client) CreateRepo(ctx context.Context, repoID string, private bool) (bool, error) {
	org, name, ok := strings.Cut(repoID, "/")
	if !ok {
		org, name = "", repoID
	}
	body, err := json.Marshal(createRepoRequest{Type: "dataset", Name: name, Organization: org, Private: private})
	if err != nil {
		return false, fmt.Errorf("failed to encode create request: %w", err)
	}

	resp, err := c.send(ctx, "create", repoID, request{
		method: http.MethodPost,
		url:    c.endpoint + "/api/repos/create",
		body:   body,
		header: map[string]string{"Content-Type": "application/json"},
	}, http.StatusConflict)
	if err != nil {
		return false, err
	}
	return resp.status != http.StatusConflict, nil
}

type request struct {
	method string
	url    string
	body   []byte
	header map[string]string
	// anonymous requests go to presigned storage URLs and must not carry the token
	anonymous bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// send performs r with retries. A 2xx response, or one whose status is listed in
// allow, is returned as is; any other status becomes a *StatusError.
func (c *Client) send(ctx context.Context, op, target string, r request, allow ...int) (*response, error) {
	return retry.DoWithData(
		func() (*response, error) {
			var body io.Reader
			if r.body != nil {
				body = bytes.NewReader(r.body)
			}
			req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			for k, v := range r.header {
				req.Header.Set(k, v)
			}
			if c.token != "" && !r.anonymous {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}

			resp, err := c.do(req)
			if err != nil {
				return nil, err
			}
			if (resp.status >= 200 && resp.status < 300) || slices.Contains(allow, resp.status) {
				return resp, nil
			}
			return nil, classify(&StatusError{Op: op + " " + target, StatusCode: resp.status, Body: snippet(resp.body)})
		},
		c.retryOptions(ctx, op, target)...,
	)
}

func (c *Client) do(req *http.Request) (*response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read hub response: %w", err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func (c *Client) retryOptions(ctx context.Context, op, target string) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("Retrying hub request",
				zap.String("op", op),
				zap.String("target", target),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	}
}

// classify marks permanent failures so retry stops immediately.
func classify(err *StatusError) error {
	if err.Temporary() {
		return err
	}
	return retry.Unrecoverable(err)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// snippet shortens a response body for error messages without splitting a UTF-8 sequence.
func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
