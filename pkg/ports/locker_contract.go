package ports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLockerContract checks the behavior every DistributedLocker must share.
// Keys are randomized so a shared backend can be reused between runs.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	t.Helper()
	ctx := context.Background()
	key := GraphLockKey("contract-" + uuid.NewString())

	t.Run("LockUnlockRelock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
		require.NoError(t, unlock(ctx), "second unlock must not fail")

		again, err := locker.Lock(ctx, key, time.Second)
		require.NoError(t, err)
		require.NoError(t, again(ctx))
	})

	t.Run("HeldKeyBlocks", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		defer func() { _ = unlock(ctx) }()

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, key, time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		other, err := locker.Lock(ctx, key+"-other", time.Second)
		require.NoError(t, err, "distinct keys must not contend")
		require.NoError(t, other(ctx))
	})
}
