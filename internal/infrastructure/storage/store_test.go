package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/testutil"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)

	ok, err := s.Exists(ctx, "runs/r1/vocab.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "runs/r1/vocab.json", []byte(`{"version":1}`)))
	ok, err = s.Exists(ctx, "runs/r1/vocab.json")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Get(ctx, "runs/r1/vocab.json")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(data))

	require.NoError(t, s.Put(ctx, "runs/r1/vocab.json", []byte("v2")))
	data, err = s.Get(ctx, "runs/r1/vocab.json")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(filepath.Join(s.Root(), "runs", "r1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStore_Errors(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(ctx, "nope")
	assert.True(t, errors.IsNotFound(err))

	for _, key := range []string{"", "/", "../escape"} {
		assert.True(t, errors.IsCode(s.Put(ctx, key, nil), errors.CodeInvalidParam), key)
	}

	_, err = NewLocalStore("")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.Put(cancelled, "k", nil), context.Canceled)
}

type flakyStore struct {
	failures int32
	calls    int32
	err      error
}

func (f *flakyStore) fail() error {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyStore) Put(context.Context, string, []byte) error { return f.fail() }

func (f *flakyStore) Get(context.Context, string) ([]byte, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return []byte("ok"), nil
}

func (f *flakyStore) Exists(context.Context, string) (bool, error) {
	if err := f.fail(); err != nil {
		return false, err
	}
	return true, nil
}

func newTestRetry(inner ArtifactStore, maxElapsed time.Duration) (*RetryStore, *testutil.MockLogger) {
	log := testutil.NewMockLogger()
	r := NewRetryStore(inner, maxElapsed, log)
	r.initial = 5 * time.Millisecond
	return r, log
}

func TestRetryStore_RecoversFromTransientFailures(t *testing.T) {
	inner := &flakyStore{failures: 2, err: errors.New(errors.ErrCodeUploadFailed, "reset")}
	r, log := newTestRetry(inner, 5*time.Second)

	data, err := r.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.EqualValues(t, 3, atomic.LoadInt32(&inner.calls))
	assert.Equal(t, 2, log.Count("warn"))
}

func TestRetryStore_NotFoundIsPermanent(t *testing.T) {
	inner := &flakyStore{failures: 100, err: errors.New(errors.ErrCodeObjectNotFound, "missing")}
	r, _ := newTestRetry(inner, 5*time.Second)

	_, err := r.Get(context.Background(), "k")
	assert.True(t, errors.IsNotFound(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.calls))
}

func TestRetryStore_GivesUp(t *testing.T) {
	inner := &flakyStore{failures: 1 << 30, err: fmt.Errorf("down")}
	r, _ := newTestRetry(inner, 50*time.Millisecond)

	ok, err := r.Exists(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Greater(t, atomic.LoadInt32(&inner.calls), int32(1))
}

func TestRetryStore_Disabled(t *testing.T) {
	inner := &flakyStore{failures: 1, err: fmt.Errorf("down")}
	r, _ := newTestRetry(inner, 0)

	assert.Error(t, r.Put(context.Background(), "k", nil))
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.calls))
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, config.StorageConfig{Backend: "local", LocalRoot: t.TempDir()}, testutil.NewMockLogger())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "a", []byte("b")))

	_, err = New(ctx, config.StorageConfig{Backend: "tape"}, testutil.NewMockLogger())
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

//Personal.AI order the ending
