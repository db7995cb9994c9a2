// Package txn runs optimistic multi-key updates against Redis.
//
// A transaction WATCHes a set of keys, evaluates a precondition through the
// watching connection, queues its mutations inside MULTI and commits with
// EXEC. When another client changes a watched key first, EXEC is refused and
// the whole attempt is repeated until the deadline passes. Retries have no
// backoff, so heavy contention on the same keys can spin until the deadline.
package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-api/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	// ErrPreconditionFailed reports a business-rule rejection. Never retried.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrTimeout reports that the deadline passed while commits kept conflicting.
	ErrTimeout = errors.New("transaction deadline exceeded")

	// ErrStoreUnavailable wraps any communication failure with the store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// CheckFunc reads current state through the watching connection. It returns
// an error wrapping ErrPreconditionFailed to reject the transaction.
type CheckFunc func(ctx context.Context, tx *redis.Tx) error

// MutateFunc queues the commands to commit.
type MutateFunc func(pipe redis.Pipeliner) error

// Executor runs optimistic transactions on a Redis client.
type Executor struct {
	client *redis.Client
	log    *logrus.Entry
}

// NewExecutor creates an executor bound to client.
func NewExecutor(client *redis.Client, log logrus.FieldLogger) *Executor {
	return &Executor{
		client: client,
		log:    logger.Component(log, "txn"),
	}
}

// Run executes check and mutate atomically with respect to keys, retrying on
// watch conflicts until timeout elapses.
func (e *Executor) Run(ctx context.Context, timeout time.Duration, keys []string, check CheckFunc, mutate MutateFunc) error {
	deadline := time.Now().Add(timeout)
	attempts := 0

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempts++

		err := e.client.Watch(ctx, func(tx *redis.Tx) error {
			if err := check(ctx, tx); err != nil {
				return err
			}
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				return mutate(pipe)
			})
			return err
		}, keys...)

		switch {
		case err == nil:
			if attempts > 1 {
				e.log.WithField("attempts", attempts).Debug("committed after conflicts")
			}
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrPreconditionFailed):
			return err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}

	e.log.WithFields(logrus.Fields{"keys": keys, "attempts": attempts}).Warn("transaction timed out")
	return ErrTimeout
}
