// Package upstream is the shared HTTP client for external services: a
// bounded timeout, a token-bucket rate limit and one error type for every
// failure.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single outbound call.
const DefaultTimeout = 10 * time.Second

// maxErrorBody is how much of a failed response body ends up in the error.
const maxErrorBody = 512

// ExternalServiceError describes a failed call to an external service.
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *ExternalServiceError) Error() string {
	msg := e.Service + ": " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Observer receives the outcome of every call.
type Observer interface {
	ObserveUpstream(service string, err error, d time.Duration)
}

// Options configure a Client. Zero values fall back to defaults.
type Options struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Logger        *zap.Logger
	Observer      Observer
}

// Client performs requests against one named service.
type Client struct {
	service  string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
	observer Observer
}

// New creates a client for service. A nil HTTPClient gets a plain client
// with the configured timeout; a non-nil one keeps its transport but has the
// timeout applied when it carries none.
func New(service string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	} else if hc.Timeout == 0 {
		c := *hc
		c.Timeout = timeout
		hc = &c
	}

	limit := rate.Inf
	burst := opts.Burst
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		if burst <= 0 {
			burst = max(1, int(opts.RatePerSecond))
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		service:  service,
		http:     hc,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.With(zap.String("service", service)),
		observer: opts.Observer,
	}
}

// Errorf builds an ExternalServiceError for this service.
func (c *Client) Errorf(format string, args ...any) *ExternalServiceError {
	return &ExternalServiceError{Service: c.service, Message: fmt.Sprintf(format, args...)}
}

// Do sends req and returns the response body of a 2xx reply. Anything else
// is an ExternalServiceError.
func (c *Client) Do(req *http.Request) (body []byte, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(c.service, err, time.Since(start))
		}
		if err != nil {
			c.logger.Warn("upstream call failed",
				zap.String("method", req.Method),
				zap.String("host", req.URL.Host),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}
	}()

	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, &ExternalServiceError{Service: c.service, Message: "rate limiter", Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ExternalServiceError{Service: c.service, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExternalServiceError{Service: c.service, StatusCode: resp.StatusCode, Message: "reading response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &ExternalServiceError{Service: c.service, StatusCode: resp.StatusCode, Message: snippet}
	}

	c.logger.Debug("upstream call",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return body, nil
}

// DoJSON sends req and decodes a 2xx JSON reply into out.
func (c *Client) DoJSON(req *http.Request, out any) error {
	body, err := c.Do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ExternalServiceError{Service: c.service, Message: "decoding response", Err: err}
	}
	return nil
}

// GetJSON issues a GET to url and decodes the JSON reply into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &ExternalServiceError{Service: c.service, Message: "building request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	return c.DoJSON(req, out)
}

// PostJSON posts in as JSON to url and decodes the reply into out.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return &ExternalServiceError{Service: c.service, Message: "encoding request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return &ExternalServiceError{Service: c.service, Message: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.DoJSON(req, out)
}
