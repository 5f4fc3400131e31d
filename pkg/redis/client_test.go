package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/biblionet/biblionet-backend/pkg/config"
)

func TestFixedWindowAllowAnchorsTTLOnFirstHit(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "auth:login:ip:1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, allowed, "hit %d", i+1)
		require.EqualValues(t, i+1, count)
	}
	require.Equal(t, []string{"bn:rate_limit:auth:login:ip:1.2.3.4"}, fake.expired)
}

func TestCheckoutIdempotencyKeyLifecycle(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}

	key := client.IdempotencyKey("POST:/ventas/realizar/", "abc")
	won, err := client.SetNX(ctx, key, "pending", time.Minute)
	require.NoError(t, err)
	require.True(t, won)

	won, err = client.SetNX(ctx, key, "pending", time.Minute)
	require.NoError(t, err)
	require.False(t, won)

	require.NoError(t, client.Set(ctx, key, "done", time.Minute))
	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "done", got)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	require.ErrorIs(t, err, redis.Nil)
}

func TestReleaseIfOwnerKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}
	key := client.LockKey("cron", "mora-sweep")
	fake.data[key] = "worker-a:1"

	released, err := client.ReleaseIfOwner(ctx, key, "worker-b:2")
	require.NoError(t, err)
	require.False(t, released)
	require.Contains(t, fake.data, key)

	released, err = client.ReleaseIfOwner(ctx, key, "worker-a:1")
	require.NoError(t, err)
	require.True(t, released)
	require.NotContains(t, fake.data, key)
}

func TestClientWithoutConnection(t *testing.T) {
	var client *Client
	require.ErrorIs(t, client.Ping(context.Background()), ErrNotConnected)
	require.NoError(t, client.Close())

	empty := &Client{}
	_, err := empty.SetNX(context.Background(), "k", "v", time.Second)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestDialOptions(t *testing.T) {
	opts, err := dialOptions(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 7, opts.PoolSize)
	require.Equal(t, time.Second, opts.DialTimeout)

	opts, err = dialOptions(config.RedisConfig{Address: "cache:6379", Password: "s3", DB: 4})
	require.NoError(t, err)
	require.Equal(t, "cache:6379", opts.Addr)
	require.Equal(t, 4, opts.DB)

	_, err = dialOptions(config.RedisConfig{})
	require.Error(t, err)
}

func TestKeyLayout(t *testing.T) {
	client := &Client{}
	require.Equal(t, "bn:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	require.Equal(t, "bn:rate_limit:scope", client.RateLimitKey("scope"))
	require.Equal(t, "bn:lock:cron:mora-sweep", client.LockKey("cron", "mora-sweep"))
	require.Equal(t, "bn:lock:mora-sweep", client.LockKey(" ", "mora-sweep"))
	require.Equal(t, "bn:session:access:sid", client.AccessSessionKey("sid"))

	staging := &Client{namespace: "bn-staging"}
	require.Equal(t, "bn-staging:lock:cron:overdue-reminders", staging.LockKey("cron", "overdue-reminders"))
}

type fakeCommands struct {
	data    map[string]string
	counts  map[string]int64
	expired []string
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{data: map[string]string{}, counts: map[string]int64{}}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCommands) Expire(_ context.Context, key string, _ time.Duration) *redis.BoolCmd {
	f.expired = append(f.expired, key)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// Eval understands only the lock release script.
func (f *fakeCommands) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if script != releaseScript || len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, errors.New("unexpected script"))
	}
	if f.data[keys[0]] != args[0] {
		return redis.NewCmdResult(int64(0), nil)
	}
	return redis.NewCmdResult(f.Del(ctx, keys[0]).Val(), nil)
}
