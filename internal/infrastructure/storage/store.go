// Package storage provides the artifact store that holds vocabularies,
// checkpoints and config snapshots.  Two backends exist: the local
// filesystem and MinIO; both are wrapped with exponential-backoff retries.
package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ArtifactStore is a flat key → blob store.  Keys use '/' separators.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the backend selected by cfg.Backend wrapped in a RetryStore.
func New(ctx context.Context, cfg config.StorageConfig, log logging.Logger) (ArtifactStore, error) {
	var inner ArtifactStore
	switch cfg.Backend {
	case "local", "":
		ls, err := NewLocalStore(cfg.LocalRoot)
		if err != nil {
			return nil, err
		}
		inner = ls
	case "minio":
		client, err := minio.NewClient(ctx, cfg.MinIO, log)
		if err != nil {
			return nil, err
		}
		inner = minio.NewStore(client, log)
	default:
		return nil, errors.Newf(errors.CodeInvalidParam, "unknown storage backend %q", cfg.Backend)
	}
	log.Info("Artifact store ready", logging.String("backend", cfg.Backend))
	return NewRetryStore(inner, cfg.RetryMaxElapsed, log), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Retry
// ─────────────────────────────────────────────────────────────────────────────

// RetryStore retries transient failures of an inner store with exponential
// backoff.  Not-found and invalid-key errors are returned immediately.
type RetryStore struct {
	inner      ArtifactStore
	maxElapsed time.Duration
	initial    time.Duration
	logger     logging.Logger
}

// NewRetryStore wraps inner.  maxElapsed bounds the total time spent on one
// call; zero disables retries.
func NewRetryStore(inner ArtifactStore, maxElapsed time.Duration, log logging.Logger) *RetryStore {
	return &RetryStore{inner: inner, maxElapsed: maxElapsed, initial: 200 * time.Millisecond, logger: log}
}

func (r *RetryStore) policy(ctx context.Context) backoff.BackOff {
	if r.maxElapsed <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxElapsedTime = r.maxElapsed
	return backoff.WithContext(b, ctx)
}

func (r *RetryStore) do(ctx context.Context, op string, key string, fn func() error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if permanent(err) {
			return backoff.Permanent(err)
		}
		r.logger.Warn("Artifact store call failed, retrying",
			logging.String("op", op), logging.String("key", key), logging.Int("attempt", attempt), logging.Err(err))
		return err
	}, r.policy(ctx))
}

func permanent(err error) bool {
	return errors.IsNotFound(err) || errors.IsCode(err, errors.CodeInvalidParam)
}

func (r *RetryStore) Put(ctx context.Context, key string, data []byte) error {
	return r.do(ctx, "put", key, func() error { return r.inner.Put(ctx, key, data) })
}

func (r *RetryStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := r.do(ctx, "get", key, func() error {
		d, err := r.inner.Get(ctx, key)
		out = d
		return err
	})
	return out, err
}

func (r *RetryStore) Exists(ctx context.Context, key string) (bool, error) {
	var out bool
	err := r.do(ctx, "exists", key, func() error {
		ok, err := r.inner.Exists(ctx, key)
		out = ok
		return err
	})
	return out, err
}

//Personal.AI order the ending
