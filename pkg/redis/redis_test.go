package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { c.Close() })
	return mr, c
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	mr, c := setupMiniredis(t)
	locker := NewLocker(c)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "expiry-scan", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "expiry-scan", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists("lock:expiry-scan"))

	again, err := locker.Acquire(ctx, "expiry-scan", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocker_ExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	mr, c := setupMiniredis(t)
	locker := NewLocker(c)
	ctx := context.Background()

	old, err := locker.Acquire(ctx, "expiry-scan", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	current, err := locker.Acquire(ctx, "expiry-scan", time.Minute)
	require.NoError(t, err)

	require.NoError(t, old.Release(ctx))
	assert.True(t, mr.Exists("lock:expiry-scan"))

	require.NoError(t, current.Release(ctx))
	assert.False(t, mr.Exists("lock:expiry-scan"))
}

func TestTokenBlacklist(t *testing.T) {
	mr, c := setupMiniredis(t)
	SetClient(c)
	t.Cleanup(func() { SetClient(nil) })
	ctx := context.Background()

	blacklisted, err := IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, blacklisted)

	require.NoError(t, BlacklistToken(ctx, "jti-1", time.Minute))

	blacklisted, err = IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	mr.FastForward(2 * time.Minute)
	blacklisted, err = IsTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, blacklisted)
}
