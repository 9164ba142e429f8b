package milvus

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// clientFactory is replaced in tests.
var clientFactory = client.NewClient

// ConnectTimeout bounds the initial dial.
const ConnectTimeout = 10 * time.Second

// Client owns one SDK connection.
type Client struct {
	mc     client.Client
	logger logging.Logger
	once   sync.Once
}

// NewClient dials cfg.Address and verifies the server is healthy.
func NewClient(ctx context.Context, cfg config.MilvusConfig, log logging.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.InvalidParam("milvus address is required")
	}
	if cfg.DBName == "" {
		cfg.DBName = "default"
	}
	dialCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	mc, err := clientFactory(dialCtx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                time.Minute,
				Timeout:             20 * time.Second,
				PermitWithoutStream: true,
			}),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to milvus")
	}
	c := NewClientWithSDK(mc, log)
	if err := c.CheckHealth(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.logger.Info("Milvus client connected", logging.String("address", cfg.Address), logging.String("db", cfg.DBName))
	return c, nil
}

// NewClientWithSDK wraps an existing SDK client.
func NewClientWithSDK(mc client.Client, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{mc: mc, logger: log}
}

// SDK returns the underlying client.
func (c *Client) SDK() client.Client { return c.mc }

// CheckHealth asks the server for its state.
func (c *Client) CheckHealth(ctx context.Context) error {
	state, err := c.mc.CheckHealth(ctx)
	if err != nil {
		c.logger.Warn("Milvus health check failed", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "milvus unhealthy")
	}
	if state != nil && !state.IsHealthy {
		return errors.New(errors.ErrCodeServiceUnavailable, "milvus unhealthy").WithDetail(strings.Join(state.Reasons, "; "))
	}
	return nil
}

// Close closes the connection once.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		err = c.mc.Close()
		c.logger.Info("Milvus client closed")
	})
	return err
}

//Personal.AI order the ending
