package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/fitmeasure/internal/domain/model"
	"github.com/okian/fitmeasure/internal/domain/types"
)

const (
	defaultRequestTimeout = 90 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
	// maxErrorBody bounds how much of an unexpected reply ends up in errors.
	maxErrorBody = 512
)

// Client talks to a running measurement service.
type Client struct {
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithPollInterval sets how often Wait polls job status.
func WithPollInterval(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.pollInterval = d
		}
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: defaultRequestTimeout},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Measure runs one synchronous job. Rejections still return the decoded
// reply alongside an error wrapping ErrRejected.
func (c *Client) Measure(ctx context.Context, req types.MeasureRequest) (types.MeasureResponse, error) {
	var out types.MeasureResponse
	status, body, err := c.do(ctx, http.MethodPost, "/measure", req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: %d %s", ErrBadReply, status, snippet(body))
	}
	if status != http.StatusOK {
		return out, fmt.Errorf("%w: %d %s", ErrRejected, status, out.Error)
	}
	return out, nil
}

// Run queues a job and returns its initial state.
func (c *Client) Run(ctx context.Context, req types.MeasureRequest) (types.JobResponse, error) {
	return c.job(ctx, http.MethodPost, "/run", types.RunRequest{Input: req}, http.StatusAccepted)
}

// Status fetches the state of a queued job.
func (c *Client) Status(ctx context.Context, id string) (types.JobResponse, error) {
	return c.job(ctx, http.MethodGet, "/status/"+id, nil, http.StatusOK)
}

// Wait polls a job until it reaches a terminal state or ctx ends.
func (c *Client) Wait(ctx context.Context, id string) (types.JobResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		j, err := c.Status(ctx, id)
		if err != nil {
			return j, err
		}
		if model.JobStatus(j.Status).Terminal() {
			return j, nil
		}
		select {
		case <-ctx.Done():
			return j, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) job(ctx context.Context, method, path string, in any, want int) (types.JobResponse, error) {
	var out types.JobResponse
	status, body, err := c.do(ctx, method, path, in)
	if err != nil {
		return out, err
	}
	if status != want {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &e) == nil && e.Code != "" {
			return out, fmt.Errorf("%w: %d %s: %s", ErrRejected, status, e.Code, e.Message)
		}
		return out, fmt.Errorf("%w: %d %s", ErrRejected, status, snippet(body))
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: %s", ErrBadReply, snippet(body))
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (int, []byte, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read reply: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
