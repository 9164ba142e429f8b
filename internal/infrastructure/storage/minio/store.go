package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

var errClosed = errors.New(errors.ErrCodeServiceUnavailable, "minio client is closed")

// Store is an artifact store backed by one bucket.
type Store struct {
	client *Client
	logger logging.Logger
}

// NewStore returns a Store over client's bucket.
func NewStore(client *Client, log logging.Logger) *Store {
	return &Store{client: client, logger: log}
}

func checkKey(key string) error {
	if key == "" {
		return errors.InvalidParam("artifact key is empty")
	}
	return nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if s.client.isClosed() {
		return errClosed
	}
	_, err := s.client.api.PutObject(ctx, s.client.Bucket(), key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeUploadFailed, "failed to upload artifact").WithDetail(key)
	}
	s.logger.Debug("Artifact uploaded", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if s.client.isClosed() {
		return nil, errClosed
	}
	obj, err := s.client.api.GetObject(ctx, s.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.downloadErr(err, key)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.downloadErr(err, key)
	}
	return data, nil
}

func (s *Store) downloadErr(err error, key string) error {
	if isNoSuchKey(err) {
		return errors.New(errors.ErrCodeObjectNotFound, "artifact not found").WithDetail(key)
	}
	return errors.Wrap(err, errors.ErrCodeDownloadFailed, "failed to download artifact").WithDetail(key)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	if s.client.isClosed() {
		return false, errClosed
	}
	_, err := s.client.api.StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeDownloadFailed, "failed to stat artifact").WithDetail(key)
}

//Personal.AI order the ending
