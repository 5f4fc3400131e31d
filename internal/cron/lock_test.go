package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) ReleaseIfOwner(_ context.Context, key, owner string) (bool, error) {
	if m.values[key] != owner {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusiveAndTagsOwner(t *testing.T) {
	t.Setenv("BIBLIONET_WORKER_ID", "cron-a")
	store := &memoryStore{values: map[string]string{}}
	ctx := context.Background()

	first, err := NewRedisLock(store, "bn:lock:cron:mora-sweep", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "bn:lock:cron:mora-sweep", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(store.values["bn:lock:cron:mora-sweep"], "cron-a:"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// A loser releasing must not drop the winner's lock.
	require.NoError(t, second.Release(ctx))
	require.Contains(t, store.values, "bn:lock:cron:mora-sweep")

	require.NoError(t, first.Release(ctx))
	require.NotContains(t, store.values, "bn:lock:cron:mora-sweep")
}

func TestRedisLocksBuildsPerJobKeys(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	factory := RedisLocks(store, func(job string) string { return "lock:" + job }, 0)

	a, err := factory(MoraSweepJob)
	require.NoError(t, err)
	b, err := factory(ReservationExpiryJob)
	require.NoError(t, err)

	ctx := context.Background()
	okA, err := a.Acquire(ctx)
	require.NoError(t, err)
	okB, err := b.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, okA)
	require.True(t, okB)
	require.Len(t, store.values, 2)
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(&memoryStore{values: map[string]string{}}, "", time.Minute)
	require.Error(t, err)
}
