// Package minio implements the artifact store on a MinIO / S3 bucket.
package minio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// API is the subset of the MinIO SDK the store relies on.  GetObject returns
// a plain io.ReadCloser so tests can fake it.
type API interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

type sdk struct {
	*minio.Client
}

func (s sdk) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return s.Client.GetObject(ctx, bucket, object, opts)
}

// Client holds a connected API and the bucket artifacts live in.
type Client struct {
	api    API
	config config.MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to MinIO, verifies the connection and ensures the
// configured bucket exists.
func NewClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}
	return NewClientWithAPI(ctx, sdk{mc}, cfg, log)
}

// NewClientWithAPI wraps an existing API.  It performs the same connection
// check and bucket setup as NewClient.
func NewClientWithAPI(ctx context.Context, api API, cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}
	c := &Client{api: api, config: cfg, logger: log}
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("MinIO client connected",
		logging.String("endpoint", cfg.Endpoint), logging.String("bucket", cfg.Bucket), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func applyDefaults(cfg *config.MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "jtnn-artifacts"
	}
}

// EnsureBucket creates the artifact bucket when it does not exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeBucketSetup, "failed to check bucket existence")
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeBucketSetup, "failed to create bucket").WithDetail(c.config.Bucket)
	}
	c.logger.Info("Created bucket", logging.String("bucket", c.config.Bucket))
	return nil
}

// Bucket returns the artifact bucket name.
func (c *Client) Bucket() string { return c.config.Bucket }

// API returns the underlying SDK surface.
func (c *Client) API() API { return c.api }

// Close marks the client closed.  minio-go holds no connections of its own.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

//Personal.AI order the ending
