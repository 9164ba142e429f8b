package client

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"
)

// Status is the trainer snapshot served at /v1/status.
type Status struct {
	RunID        string    `json:"run_id"`
	Running      bool      `json:"running"`
	Step         int       `json:"step"`
	Epoch        int       `json:"epoch"`
	Beta         float64   `json:"beta"`
	LearningRate float64   `json:"learning_rate"`
	Loss         float64   `json:"loss"`
	Skipped      int       `json:"skipped"`
	Checkpoint   string    `json:"checkpoint,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Liveness is the /healthz answer.
type Liveness struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Component is the readiness of one dependency.
type Component struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Readiness is the /readyz answer.
type Readiness struct {
	Status     string               `json:"status"`
	Components map[string]Component `json:"components,omitempty"`
}

// Ready reports whether every dependency is healthy.
func (r *Readiness) Ready() bool { return r.Status == "ready" }

// Status returns the current training status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if err := c.get(ctx, "/v1/status", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Health returns the liveness answer.
func (c *Client) Health(ctx context.Context) (*Liveness, error) {
	var l Liveness
	if err := c.get(ctx, "/healthz", &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Ready returns the readiness report.  A not-ready server yields the report
// and a nil error.
func (c *Client) Ready(ctx context.Context) (*Readiness, error) {
	var r Readiness
	err := c.get(ctx, "/readyz", &r, http.StatusServiceUnavailable)
	var apiErr *APIError
	if err != nil && !(stderrors.As(err, &apiErr) && apiErr.IsUnavailable() && r.Status != "") {
		return nil, err
	}
	return &r, nil
}

//Personal.AI order the ending
