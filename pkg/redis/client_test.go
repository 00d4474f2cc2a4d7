package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirabelleshop/cart-backend/pkg/config"
)

type fakeStore struct {
	data    map[string]string
	expired map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, expired: map[string]time.Duration{}}
}

func (f *fakeStore) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	if ttl > 0 {
		f.expired[key] = ttl
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := f.data[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	var n int64
	fmt.Sscan(f.data[key], &n)
	n++
	f.data[key] = fmt.Sprint(n)
	return redis.NewIntResult(n, nil)
}

func (f *fakeStore) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expired[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	t.Parallel()

	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", PoolSize: 5})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 5, opts.PoolSize)

	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://:secret@localhost:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestCartSessionBinding(t *testing.T) {
	t.Parallel()

	fake := newFakeStore()
	client := &Client{store: fake, sessionTTL: time.Hour}
	ctx := context.Background()

	_, err := client.CartIDForSession(ctx, "sess-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, client.BindCartToSession(ctx, "", "cart-1"))
	require.NoError(t, client.BindCartToSession(ctx, "sess-1", "cart-1"))

	cartID, err := client.CartIDForSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", cartID)
	assert.Equal(t, time.Hour, fake.expired["mirabelle:cart:session:sess-1"])

	require.NoError(t, client.UnbindSession(ctx, "sess-1"))
	_, err = client.CartIDForSession(ctx, "sess-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFixedWindowAllow(t *testing.T) {
	t.Parallel()

	fake := newFakeStore()
	client := &Client{store: fake}
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		ok, count, err := client.FixedWindowAllow(ctx, "cart-mutations:sess-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, count)
	}

	ok, count, err := client.FixedWindowAllow(ctx, "cart-mutations:sess-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(4), count)
	assert.Equal(t, time.Minute, fake.expired["mirabelle:rate_limit:cart-mutations:sess-1"])
}
