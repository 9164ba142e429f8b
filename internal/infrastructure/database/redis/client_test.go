package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

func TestNewClient_Success(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	cfg := config.RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}
	client, err := NewClient(cfg, logging.NewNopLogger())
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func TestClient_ClosedRejectsCommands(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	ctx := context.Background()
	assert.ErrorIs(t, client.Ping(ctx), ErrClientClosed)
	assert.ErrorIs(t, client.Get(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Set(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Del(ctx, "k").Err(), ErrClientClosed)
}

func TestTreeCache_AgainstMiniredis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	cache := NewTreeCache(client, logging.NewNopLogger(), WithTTL(time.Minute))
	ctx := context.Background()

	tree, err := junction.DecomposeSMILES("c1ccccc1O")
	require.NoError(t, err)
	cache.Put(ctx, "c1ccccc1O", tree)

	key := "jtnn:decomp:" + junction.KeyString("c1ccccc1O")
	assert.True(t, mr.Exists(key))
	ttl := mr.TTL(key)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 7)

	got, ok := cache.Get(ctx, "c1ccccc1O")
	require.True(t, ok)
	assert.Equal(t, tree.Signatures(), got.Signatures())

	require.NoError(t, cache.Invalidate(ctx, "c1ccccc1O"))
	_, ok = cache.Get(ctx, "c1ccccc1O")
	assert.False(t, ok)
}

//Personal.AI order the ending
