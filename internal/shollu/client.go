// Package shollu is a typed client for the Shollu partner backend.
//
// Every authenticated call takes the bearer token explicitly. A 401 from the
// backend is reported to the handler installed with OnUnauthorized so the
// caller can drop the session that owned the token.
package shollu

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
	"strings"
	"sync"

	"shollu-partner/internal/config"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrTransport    = errors.New("backend unreachable")
	ErrDecode       = errors.New("unexpected backend response")
)

// APIError is a non-2xx answer, or a 2xx answer with success:false.
// Message is whatever the backend said and may be empty.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, msg)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// MessageOf returns the backend supplied message of err, if any.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithUnauthorizedHandler(fn func(token string)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

type Client struct {
	baseURL       string
	attendanceURL string
	apiKey        string
	http          *http.Client
	logger        *slog.Logger

	mu             sync.RWMutex
	onUnauthorized func(token string)
}

func New(cfg config.Backend, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		attendanceURL: cfg.AttendanceURL,
		apiKey:        cfg.APIKey,
		http:          &http.Client{Timeout: cfg.Timeout()},
		logger:        slog.With("component", "shollu"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUnauthorized replaces the 401 handler.
func (c *Client) OnUnauthorized(fn func(token string)) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

func (c *Client) unauthorized(token string) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil && token != "" {
		fn(token)
	}
}

type request struct {
	method string
	path   string // joined to the base URL unless url is set
	url    string
	query  url.Values
	body   any
	token  string
	apiKey bool
}

func (c *Client) endpoint(r request) string {
	u := r.url
	if u == "" {
		u = c.baseURL + r.path
	}
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	return u
}

// send performs the request and returns the raw 2xx body.
func (c *Client) send(ctx context.Context, r request) ([]byte, http.Header, error) {
	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r), body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.apiKey {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	c.logger.Debug("Backend call", "method", r.method, "path", req.URL.Path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: bodyMessage(raw)}
		if resp.StatusCode == http.StatusUnauthorized {
			c.unauthorized(r.token)
		}
		return nil, nil, apiErr
	}
	return raw, resp.Header, nil
}

// bodyMessage picks the "error" field, then "message". An error object
// contributes its own message.
func bodyMessage(raw []byte) string {
	var b struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return ""
	}
	switch e := b.Error.(type) {
	case string:
		if e != "" {
			return e
		}
	case map[string]any:
		if s, ok := e["message"].(string); ok && s != "" {
			return s
		}
	}
	return b.Message
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// call sends r and unwraps the {success, message, data} envelope.
func call[T any](ctx context.Context, c *Client, r request) (T, error) {
	var zero T
	raw, _, err := c.send(ctx, r)
	if err != nil {
		return zero, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return zero, nil
	}
	if err := checkSuccess(raw); err != nil {
		return zero, err
	}
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return env.Data, nil
}

// Ack is the body of mutations that return no data of interest.
type Ack struct {
	Message string
}

func ack(ctx context.Context, c *Client, r request) (Ack, error) {
	raw, _, err := c.send(ctx, r)
	if err != nil {
		return Ack{}, err
	}
	if err := checkSuccess(raw); err != nil {
		return Ack{}, err
	}
	var b struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &b)
	return Ack{Message: b.Message}, nil
}
