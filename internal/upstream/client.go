// Package upstream talks to an Ollama-compatible inference server over HTTP.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrNoBody is returned when a streaming generate call succeeds without a response body.
var ErrNoBody = errors.New("upstream response body is empty")

// GenerateRequest is the payload for POST /api/generate.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system"`
	Stream bool   `json:"stream"`
}

// GenerateChunk is one NDJSON line of a streamed generate response, or the
// whole body of a buffered one.
type GenerateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	// Error is set by the upstream when generation fails after the stream started.
	Error string `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Op     string
	Code   int
	Status string
	// Body holds at most the first 4 KiB of the upstream response.
	Body string
}

func (e *StatusError) Error() string {
	msg := "upstream " + e.Op + " http error: " + e.Status
	if b := strings.TrimSpace(e.Body); b != "" {
		msg += ": " + b
	}
	return msg
}

// DecodeError reports an upstream body that could not be parsed.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string { return "upstream " + e.Op + " decode: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// Client is a small HTTP client for the inference server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Client for baseURL. connectTimeout bounds dialing only;
// per-request deadlines are carried by the caller's context.
func New(baseURL string, connectTimeout time.Duration) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays 0: a streamed generate may legitimately run for minutes.
	return NewWithHTTPClient(baseURL, &http.Client{Transport: tr, Timeout: 0})
}

// NewWithHTTPClient constructs a Client around an existing http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}
}

// BaseURL returns the normalized upstream base URL.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, op, method, path string, payload any, requestID string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("upstream %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("upstream %s: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, application/x-ndjson")
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Prefer the context error so callers can tell timeouts from refused connections.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("upstream %s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	return resp, nil
}

// GenerateStream starts a streamed generation and returns the raw NDJSON body.
// The caller must close the returned reader.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest, requestID string) (io.ReadCloser, error) {
	req.Stream = true
	resp, err := c.do(ctx, "generate", http.MethodPost, "/api/generate", req, requestID)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, ErrNoBody
	}
	return resp.Body, nil
}

// Generate performs a buffered generation and returns the response text.
func (c *Client) Generate(ctx context.Context, req GenerateRequest, requestID string) (string, error) {
	req.Stream = false
	resp, err := c.do(ctx, "generate", http.MethodPost, "/api/generate", req, requestID)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	var out GenerateChunk
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &DecodeError{Op: "generate", Err: err}
	}
	if out.Error != "" {
		return "", fmt.Errorf("upstream generate: %s", out.Error)
	}
	return out.Response, nil
}

// Tags lists installed model names in upstream order. A missing or null
// model collection yields an empty, non-nil slice.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, "tags", http.MethodGet, "/api/tags", nil, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	var v tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DecodeError{Op: "tags", Err: err}
	}
	models := make([]string, 0, len(v.Models))
	for _, m := range v.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

// Version returns the upstream server version. It doubles as a liveness probe.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, "version", http.MethodGet, "/api/version", nil, "")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	var v struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return "", &DecodeError{Op: "version", Err: err}
	}
	return v.Version, nil
}
