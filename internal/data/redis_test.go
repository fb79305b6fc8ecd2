package data

import (
	"context"
	"testing"
	"time"

	"VaultLane/internal/conf"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func redisConf(addr string) *conf.Data {
	return &conf.Data{
		Redis: &conf.Data_Redis{
			Addr:         addr,
			ReadTimeout:  durationpb.New(200 * time.Millisecond),
			WriteTimeout: durationpb.New(200 * time.Millisecond),
		},
	}
}

func TestNewRedisClient_Success(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	client, cleanup, err := NewRedisClient(redisConf(mr.Addr()), log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer cleanup()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewRedisClient_ConnectionFailure(t *testing.T) {
	// 连接失败时降级为无 Redis，不阻止启动
	client, cleanup, err := NewRedisClient(redisConf("localhost:99999"), log.DefaultLogger)
	defer cleanup()

	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisClient_NilConfig(t *testing.T) {
	client, cleanup, err := NewRedisClient(nil, log.DefaultLogger)
	defer cleanup()

	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisClient_EmptyAddress(t *testing.T) {
	client, cleanup, err := NewRedisClient(redisConf(""), log.DefaultLogger)
	defer cleanup()

	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisClient_Options(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()
	mr.RequireAuth("s3cret")

	c := redisConf(mr.Addr())
	c.Redis.Password = "s3cret"

	client, cleanup, err := NewRedisClient(c, log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer cleanup()

	opts := client.Options()
	assert.Equal(t, "tcp", opts.Network)
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 2, opts.MinIdleConns)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
	assert.Equal(t, 200*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 200*time.Millisecond, opts.WriteTimeout)
}

func TestNewRedisClient_CleanupFunction(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	client, cleanup, err := NewRedisClient(redisConf(mr.Addr()), log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, client)

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	cleanup()

	assert.Error(t, client.Ping(ctx).Err())
}
