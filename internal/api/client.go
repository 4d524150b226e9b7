// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/equibase/jobdash/pkg/schema"
)

const (
	defaultTimeout       = 15 * time.Second
	defaultHealthTimeout = 5 * time.Second
)

// TokenSource supplies the bearer credential for outbound requests.
// Token returns the current access token, or "" when no session exists.
// Refresh exchanges the session for a fresh token; it is invoked at most
// once per request, on a 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StatusSink receives availability signals derived from request traffic.
type StatusSink interface {
	// RecordActivity is called when a request is about to be sent.
	RecordActivity()
	// RecordSuccess is called after a 2xx/204 response.
	RecordSuccess()
	// ReportUnavailable is called on any 5xx. It is a heuristic
	// "likely asleep" signal, not a diagnosis.
	ReportUnavailable()
}

// Options customises a Client. Zero values fall back to defaults.
type Options struct {
	HTTPClient    *http.Client
	Timeout       time.Duration
	HealthTimeout time.Duration
	Tokens        TokenSource
	Status        StatusSink
	// Notify surfaces transient user-visible notices (5xx wake-up hint).
	Notify func(message string)
	Logger *slog.Logger
}

// Client is the thin HTTP wrapper over the remote job API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	healthTimeout time.Duration
	tokens        TokenSource
	status        StatusSink
	notify        func(string)
	logger        *slog.Logger
}

// New builds a Client for the given API base URL.
func New(baseURL string, opts Options) *Client {
	c := &Client{
		baseURL:       baseURL,
		httpClient:    opts.HTTPClient,
		timeout:       opts.Timeout,
		healthTimeout: opts.HealthTimeout,
		tokens:        opts.Tokens,
		status:        opts.Status,
		notify:        opts.Notify,
		logger:        opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.healthTimeout <= 0 {
		c.healthTimeout = defaultHealthTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// ListJobs fetches one page of jobs.
func (c *Client) ListJobs(ctx context.Context, page, limit int) (*schema.JobsPage, error) {
	var out schema.JobsPage
	path := fmt.Sprintf("/jobs?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, c.timeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJob fetches a single job by id.
func (c *Client) GetJob(ctx context.Context, id string) (*schema.Job, error) {
	var out schema.Job
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, c.timeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateJob submits a new job.
func (c *Client) CreateJob(ctx context.Context, req schema.CreateJobRequest) (*schema.Job, error) {
	var out schema.Job
	if err := c.do(ctx, http.MethodPost, "/jobs", req, c.timeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteJob removes a job. The backend answers 204 No Content.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, c.timeout, nil)
}

// CheckHealth probes GET /health with the short health timeout. It is
// used only by the availability tracker.
func (c *Client) CheckHealth(ctx context.Context) (*schema.Health, error) {
	var out schema.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, c.healthTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, timeout time.Duration, out any) error {
	if c.status != nil {
		c.status.RecordActivity()
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = b
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token := ""
	if c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			c.logger.Warn("token lookup failed, sending unauthenticated", "path", path, "err", err)
		} else {
			token = t
		}
	}

	resp, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return c.wrapTransport(path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
		drain(resp)
		c.logger.Warn("401 unauthorized, refreshing session", "path", path)
		refreshed, rerr := c.tokens.Refresh(ctx)
		if rerr != nil {
			return &AuthError{Cause: rerr}
		}
		resp, err = c.send(ctx, method, path, payload, refreshed)
		if err != nil {
			return c.wrapTransport(path, err)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			err := c.decodeError(resp)
			return &AuthError{Cause: err}
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		if c.status != nil {
			c.status.ReportUnavailable()
		}
		if c.notify != nil {
			c.notify("Server is waking up. Please try again in 30 seconds.")
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if c.status != nil {
		c.status.RecordSuccess()
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.httpClient.Do(req)
}

func (c *Client) wrapTransport(path string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn("request timed out", "path", path)
		return &TimeoutError{URL: path, Cause: err}
	}
	c.logger.Warn("request failed", "path", path, "err", err)
	return &NetworkError{Cause: err}
}

// decodeError consumes the response body and closes it. An absent or
// unparseable body falls back to the HTTP status text.
func (c *Client) decodeError(resp *http.Response) error {
	defer resp.Body.Close()
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return &APIError{Status: resp.StatusCode, Message: body.Message}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
