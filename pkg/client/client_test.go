package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() Option { return WithRetryWait(time.Millisecond, 5*time.Millisecond) }

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
	_, err = NewClient("ftp://host")
	assert.Error(t, err)
	_, err = NewClient("://bad")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:9090/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090", c.baseURL)
}

func TestOptions(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c, err := NewClient("http://localhost",
		WithHTTPClient(hc),
		WithRetryMax(7),
		WithRetryWait(time.Second, time.Millisecond),
		WithUserAgent("probe/1"),
		WithLogger(nil))
	require.NoError(t, err)
	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, 7, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 2*time.Second, c.retryWaitMax)
	assert.Equal(t, "probe/1", c.userAgent)
	assert.NotNil(t, c.logger)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/status", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Contains(t, r.Header.Get("User-Agent"), "jtnn-go-client/")
		_, _ = w.Write([]byte(`{"run_id":"run-1","running":true,"step":42,"beta":0.002}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	s, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 42, s.Step)
	assert.True(t, s.Running)
}

func TestStatus_NoRunIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"code":"COMMON_008","message":"no training run attached"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, fastRetry())
	require.NoError(t, err)
	_, err = c.Status(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnavailable())
	assert.Equal(t, "no training run attached", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"status":"alive","version":"v1"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, fastRetry())
	require.NoError(t, err)
	l, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alive", l.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_GivesUpAfterRetryMax(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, fastRetry(), WithRetryMax(2))
	require.NoError(t, err)
	_, err = c.Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("404 page not found"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, fastRetry())
	require.NoError(t, err)
	_, err = c.Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "404 page not found", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReady(t *testing.T) {
	var notReady atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !notReady.Load() {
			_, _ = w.Write([]byte(`{"status":"ready"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not_ready","components":{"redis":{"status":"unhealthy","error":"dial tcp: refused"}}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, fastRetry())
	require.NoError(t, err)

	r, err := c.Ready(context.Background())
	require.NoError(t, err)
	assert.True(t, r.Ready())

	notReady.Store(true)
	r, err = c.Ready(context.Background())
	require.NoError(t, err)
	assert.False(t, r.Ready())
	assert.Equal(t, "unhealthy", r.Components["redis"].Status)
}

//Personal.AI order the ending
