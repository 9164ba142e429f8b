// Package opensearch indexes per-step training reports so that loss curves
// can be searched and charted across runs.
package opensearch

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 100 * time.Millisecond
	defaultIdleConns    = 10
)

// Client wraps an OpenSearch client.
type Client struct {
	client *opensearch.Client
	logger logging.Logger
	once   sync.Once
}

// NewClient creates a client for cfg.Addresses and pings the cluster.
func NewClient(ctx context.Context, cfg config.OpenSearchConfig, log logging.Logger) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.InvalidParam("opensearch addresses are required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	osc, err := opensearch.NewClient(opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		MaxRetries:    defaultMaxRetries,
		RetryBackoff:  func(int) time.Duration { return defaultRetryBackoff },
		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests},
		Transport:     &http.Transport{MaxIdleConnsPerHost: defaultIdleConns},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create opensearch client")
	}

	c := &Client{client: osc, logger: log}
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	log.Info("OpenSearch client connected", logging.Any("addresses", cfg.Addresses))
	return c, nil
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		c.logger.Warn("OpenSearch ping failed", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "opensearch unreachable")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		c.logger.Warn("OpenSearch ping returned error status", logging.Int("status", resp.StatusCode))
		return errors.New(errors.ErrCodeServiceUnavailable, "opensearch ping failed").
			WithDetail(resp.Status())
	}
	return nil
}

// Close logs once; the HTTP transport holds no long-lived resources.
func (c *Client) Close() error {
	c.once.Do(func() { c.logger.Info("OpenSearch client closed") })
	return nil
}

//Personal.AI order the ending
