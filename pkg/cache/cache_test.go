package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Service = (*MemoryCache)(nil)
	_ Service = (*RedisCache)(nil)
	_ Service = (*LayeredCache)(nil)
)

type payload struct {
	Symbol string  `json:"symbol"`
	Lev    float64 `json:"lev"`
}

func TestMemoryTypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	in := payload{Symbol: "BTCUSDT", Lev: 125}
	require.NoError(t, mc.Set(ctx, "r:BTCUSDT", in, 0))

	var out payload
	require.NoError(t, mc.Get(ctx, "r:BTCUSDT", &out))
	assert.Equal(t, in, out)

	var s string
	require.NoError(t, mc.Set(ctx, "plain", "hello", 0))
	require.NoError(t, mc.Get(ctx, "plain", &s))
	assert.Equal(t, "hello", s)

	assert.ErrorIs(t, mc.Get(ctx, "missing", &out), ErrCacheMiss)
}

func TestMemoryExpiryAndEviction(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	now = now.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	now = now.Add(time.Second)
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))

	now = now.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))
	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss, "least recently used evicted")

	now = now.Add(2 * time.Minute)
	ok, err := mc.Exists(ctx, "a", "c")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDefaultTTL(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryDefaultTTL(time.Hour), WithMemoryCleanup(time.Hour))
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "summary", "run-1", 0))
	now = now.Add(59 * time.Minute)
	var s string
	require.NoError(t, mc.Get(ctx, "summary", &s))

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, mc.Get(ctx, "summary", &s), ErrCacheMiss)
}

func TestRedisConfigOptions(t *testing.T) {
	cfg := newRedisConfig(
		WithRedisAddr("redis:6380"),
		WithRedisPool(32, 4, 5*time.Second),
		WithRedisPrefix(""),
	)
	assert.Equal(t, "redis:6380", cfg.Addr)
	assert.Equal(t, 32, cfg.PoolSize)
	assert.Equal(t, 4, cfg.MinIdleConns)
	assert.Equal(t, 5*time.Second, cfg.PoolTimeout)
	assert.Equal(t, "levrecon", cfg.Prefix, "blank prefix keeps the default")

	cfg = newRedisConfig(WithRedisPool(0, 1, 0))
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 30*time.Second, cfg.PoolTimeout)
}

func TestMemoryTryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = mc.TryLock(ctx, "run", time.Minute)
	assert.False(t, ok)
	require.NoError(t, mc.Unlock(ctx, "run"))
	ok, _ = mc.TryLock(ctx, "run", time.Minute)
	assert.True(t, ok)
}

func TestMemoryMGetTyped(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.MSet(ctx, map[string]interface{}{
		"a": payload{Symbol: "A", Lev: 1},
		"b": payload{Symbol: "B", Lev: 2},
	}, 0))
	got, err := MGetTyped[payload](ctx, mc, "a", "b", "c")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2.0, got["b"].Lev)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheWithClient(db, "levrecon")

	mock.ExpectSet("levrecon:report:BTCUSDT", []byte(`{"symbol":"BTCUSDT","lev":125}`), time.Hour).SetVal("OK")
	require.NoError(t, rc.Set(ctx, "report:BTCUSDT", payload{Symbol: "BTCUSDT", Lev: 125}, time.Hour))

	mock.ExpectGet("levrecon:report:BTCUSDT").SetVal(`{"symbol":"BTCUSDT","lev":125}`)
	var out payload
	require.NoError(t, rc.Get(ctx, "report:BTCUSDT", &out))
	assert.Equal(t, 125.0, out.Lev)

	mock.ExpectGet("levrecon:report:ETHUSDT").RedisNil()
	assert.ErrorIs(t, rc.Get(ctx, "report:ETHUSDT", &out), ErrCacheMiss)

	mock.ExpectMGet("levrecon:a", "levrecon:b").SetVal([]interface{}{`{"symbol":"A"}`, nil})
	raw, err := rc.MGet(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": `{"symbol":"A"}`}, raw)

	mock.ExpectSetNX("levrecon:lock:run", "locked", time.Minute).SetVal(true)
	ok, err := rc.TryLock(ctx, "lock:run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectDel("levrecon:lock:run").SetVal(1)
	require.NoError(t, rc.Unlock(ctx, "lock:run"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredReadsThroughAndCaches(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, WithLayeredMemoryTTL(time.Minute))
	defer lc.Close()

	require.NoError(t, remote.Set(ctx, "k", payload{Symbol: "X", Lev: 5}, 0))

	var out payload
	require.NoError(t, lc.Get(ctx, "k", &out))
	assert.Equal(t, "X", out.Symbol)

	require.NoError(t, remote.Delete(ctx, "k"))
	out = payload{}
	require.NoError(t, lc.Get(ctx, "k", &out), "served from L1")
	assert.Equal(t, 5.0, out.Lev)

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &out), ErrCacheMiss)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "report:BTCUSDT", Key("report", "BTCUSDT"))
	assert.Equal(t, "a:1:b", Key("a", 1, "b"))
}
