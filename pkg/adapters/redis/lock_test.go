package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/weave/pkg/adapters/redis"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_Contract(t *testing.T) {
	_, client := newMiniredis(t)
	ports.RunLockerContract(t, redis.NewLocker(client, "contract:", redis.WithRetryInterval(10*time.Millisecond)))
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newMiniredis(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "graph-1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)
	assert.True(t, mr.Exists("test:lock:graph-1"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:graph-1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newMiniredis(t)
	locker1 := redis.NewLocker(client, "test:", redis.WithRetryInterval(10*time.Millisecond))
	locker2 := redis.NewLocker(client, "test:", redis.WithRetryInterval(10*time.Millisecond))
	ctx := context.Background()

	unlock1, err := locker1.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = locker2.Lock(ctxTimeout, "shared", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond, "Should block until timeout")

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = unlock2(ctx) }()
	assert.True(t, mr.Exists("test:lock:shared"))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := newMiniredis(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlockOld, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	unlockNew, err := locker.Lock(ctx, "k", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlockOld(ctx))
	assert.True(t, mr.Exists("test:lock:k"), "expired holder must not release the new lock")
	require.NoError(t, unlockNew(ctx))
	assert.False(t, mr.Exists("test:lock:k"))
}
