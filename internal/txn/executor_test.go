package txn

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront-api/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommits(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctx := context.Background()
	e := NewExecutor(client, testutil.Logger())

	require.NoError(t, client.Set(ctx, "balance", 10, 0).Err())

	err := e.Run(ctx, time.Second, []string{"balance"},
		func(ctx context.Context, tx *redis.Tx) error {
			n, err := tx.Get(ctx, "balance").Int()
			if err != nil {
				return err
			}
			if n < 5 {
				return ErrPreconditionFailed
			}
			return nil
		},
		func(pipe redis.Pipeliner) error {
			pipe.DecrBy(context.Background(), "balance", 5)
			pipe.Incr(context.Background(), "spent")
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, "5", client.Get(ctx, "balance").Val())
	assert.Equal(t, "1", client.Get(ctx, "spent").Val())
}

func TestRunPreconditionFailedIsNotRetried(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctx := context.Background()
	e := NewExecutor(client, testutil.Logger())

	reason := fmt.Errorf("%w: nope", ErrPreconditionFailed)
	checks := 0
	mutated := false

	err := e.Run(ctx, time.Second, []string{"k"},
		func(ctx context.Context, tx *redis.Tx) error {
			checks++
			return reason
		},
		func(pipe redis.Pipeliner) error {
			mutated = true
			return nil
		})

	assert.ErrorIs(t, err, ErrPreconditionFailed)
	assert.ErrorIs(t, err, reason)
	assert.Equal(t, 1, checks)
	assert.False(t, mutated)
}

func TestRunRetriesConflictsUntilCommit(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctx := context.Background()
	e := NewExecutor(client, testutil.Logger())

	checks := 0
	err := e.Run(ctx, 2*time.Second, []string{"watched"},
		func(ctx context.Context, tx *redis.Tx) error {
			checks++
			if checks < 3 {
				// Another connection changes the watched key before EXEC.
				return client.Incr(ctx, "watched").Err()
			}
			return nil
		},
		func(pipe redis.Pipeliner) error {
			pipe.Set(context.Background(), "result", "done", 0)
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, 3, checks)
	assert.Equal(t, "done", client.Get(ctx, "result").Val())
	assert.Equal(t, "2", client.Get(ctx, "watched").Val())
}

func TestRunTimesOutUnderConstantConflict(t *testing.T) {
	_, client := testutil.NewRedis(t)
	ctx := context.Background()
	e := NewExecutor(client, testutil.Logger())

	start := time.Now()
	err := e.Run(ctx, 150*time.Millisecond, []string{"hot"},
		func(ctx context.Context, tx *redis.Tx) error {
			return client.Incr(ctx, "hot").Err()
		},
		func(pipe redis.Pipeliner) error {
			pipe.Set(context.Background(), "never", 1, 0)
			return nil
		})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, errors.Is(err, ErrPreconditionFailed))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, int64(0), client.Exists(ctx, "never").Val())
}

func TestRunStoreUnavailable(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	e := NewExecutor(client, testutil.Logger())
	mr.Close()

	err := e.Run(context.Background(), time.Second, []string{"k"},
		func(ctx context.Context, tx *redis.Tx) error { return nil },
		func(pipe redis.Pipeliner) error { return nil })

	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRunHonoursCancelledContext(t *testing.T) {
	_, client := testutil.NewRedis(t)
	e := NewExecutor(client, testutil.Logger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx, time.Second, []string{"k"},
		func(ctx context.Context, tx *redis.Tx) error { return nil },
		func(pipe redis.Pipeliner) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}
