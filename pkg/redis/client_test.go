package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
)

func TestFixedWindowCountsAndArmsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("login", "ip", "10.0.0.1")

	count, ttl, err := client.FixedWindow(ctx, key, time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	mock.ttls[key] = 20 * time.Second
	count, ttl, err = client.FixedWindow(ctx, key, time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 20*time.Second, ttl, "second hit must not extend the window")
}

func TestFixedWindowRearmsLostExpiry(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	mock.counters["k"] = 4
	count, ttl, err := client.FixedWindow(ctx, "k", 30*time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 5, count)
	require.Equal(t, 30*time.Second, ttl)
}

func TestFixedWindowRejectsZeroWindow(t *testing.T) {
	client := &Client{store: newMockCmdable()}
	_, _, err := client.FixedWindow(context.Background(), "k", 0)
	require.Error(t, err)
}

func TestCompareAndDeleteOnlyRemovesOwnedValue(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.LockKey("cron-worker")

	ok, err := client.SetNX(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := client.CompareAndDelete(ctx, key, "owner-b")
	require.NoError(t, err)
	require.False(t, removed)
	require.Contains(t, mock.data, key)

	removed, err = client.CompareAndDelete(ctx, key, "owner-a")
	require.NoError(t, err)
	require.True(t, removed)

	_, err = client.Get(ctx, key)
	require.ErrorIs(t, err, redis.Nil)
}

func TestGetDelConsumesValue(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))

	v, err := client.GetDel(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	_, err = client.GetDel(ctx, "k")
	require.ErrorIs(t, err, redis.Nil)
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	require.ErrorIs(t, client.Ping(ctx), errNotInitialized)
	_, err := client.SetNX(ctx, "k", "v", time.Second)
	require.ErrorIs(t, err, errNotInitialized)
	_, err = client.CompareAndDelete(ctx, "k", "v")
	require.ErrorIs(t, err, errNotInitialized)
	require.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	var keys Keys
	require.Equal(t, "ssb:idempotency:purchases:abc", keys.IdempotencyKey("purchases", "abc"))
	require.Equal(t, "ssb:rate_limit:login:phone:h", keys.RateLimitKey("login", "phone", "h"))
	require.Equal(t, "ssb:rate_limit:login:h", keys.RateLimitKey("login", " ", "h"), "blank parts are skipped")
	require.Equal(t, "ssb:lock:cron", keys.LockKey("cron"))
	require.Equal(t, "ssb:session:access:abc", keys.AccessSessionKey("abc"))
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://redis.internal:6380/3",
		Password:    "fallback",
		PoolSize:    12,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "redis.internal:6380", opts.Addr)
	require.Equal(t, 3, opts.DB)
	require.Equal(t, "fallback", opts.Password)
	require.Equal(t, 12, opts.PoolSize)
	require.Equal(t, 2*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 1})
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", opts.Addr)
	require.Equal(t, 1, opts.DB)

	_, err = optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}

type mockCmdable struct {
	data     map[string]string
	counters map[string]int64
	ttls     map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:     map[string]string{},
		counters: map[string]int64{},
		ttls:     map[string]time.Duration{},
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) GetDel(ctx context.Context, key string) *redis.StringCmd {
	cmd := m.Get(ctx, key)
	delete(m.data, key)
	return cmd
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			removed++
		}
		delete(m.data, key)
	}
	return redis.NewIntResult(removed, nil)
}

// Eval emulates the two scripts the client ships.
func (m *mockCmdable) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	switch script {
	case fixedWindowScript:
		m.counters[key]++
		ttl, ok := m.ttls[key]
		if m.counters[key] == 1 || !ok {
			ttl = time.Duration(args[0].(int64)) * time.Millisecond
			m.ttls[key] = ttl
		}
		return redis.NewCmdResult([]any{m.counters[key], ttl.Milliseconds()}, nil)
	case compareAndDeleteScript:
		if v, ok := m.data[key]; ok && v == args[0] {
			delete(m.data, key)
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
}
