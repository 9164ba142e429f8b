// Package client is a Go client for the status server started by
// "jtnn train --serve" and "jtnn serve-metrics".
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

const Version = "0.1.0"

// Logger is the logging interface used by the Client.
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Client talks to one status server.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jtnn: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

// IsServerError reports whether the server answered 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsUnavailable reports a 503, which the server uses for "no run attached"
// and failed readiness.
func (e *APIError) IsUnavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

// NewClient creates a client for baseURL, e.g. "http://localhost:9090".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.InvalidParam("base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "invalid base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.InvalidParam("base url scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    "jtnn-go-client/" + Version,
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 200 * time.Millisecond,
		retryWaitMax: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// get fetches path into result.  Statuses listed in accept are decoded into
// result too, and returned alongside an *APIError.
func (c *Client) get(ctx context.Context, path string, result interface{}, accept ...int) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryWaitMin
	policy.MaxInterval = c.retryWaitMax
	policy.MaxElapsedTime = 0
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retryMax)), ctx)

	var final error
	op := func() error {
		requestID := uuid.NewString()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Errorf("GET %s failed: %v", path, err)
			return err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		c.logger.Debugf("GET %s %d (%v)", path, resp.StatusCode, time.Since(start))

		if resp.StatusCode < 400 || accepted(resp.StatusCode, accept) {
			if result != nil && len(body) > 0 {
				if err := json.Unmarshal(body, result); err != nil {
					return backoff.Permanent(fmt.Errorf("failed to unmarshal response: %w", err))
				}
			}
			if resp.StatusCode < 400 {
				final = nil
				return nil
			}
			final = &APIError{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode), RequestID: requestID}
			return nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
		var er struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &er) == nil {
			apiErr.Code, apiErr.Message = er.Code, er.Message
		} else {
			apiErr.Message = string(body)
		}
		if apiErr.IsServerError() && !apiErr.IsUnavailable() {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	if err := backoff.Retry(op, retry); err != nil {
		return err
	}
	return final
}

func accepted(status int, accept []int) bool {
	for _, s := range accept {
		if s == status {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
