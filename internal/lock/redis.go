package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/ledger-engine/internal/logging"
)

type RedisOptions struct {
	Prefix     string
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:     "ledger:lock:account:",
		Expiry:     10 * time.Second,
		Tries:      64,
		RetryDelay: 50 * time.Millisecond,
	}
}

// Redis is a Locker shared by every process that talks to the same Redis.
type Redis struct {
	rs   *redsync.Redsync
	opts RedisOptions
}

func NewRedis(client redis.UniversalClient, opts RedisOptions) *Redis {
	return &Redis{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
	}
}

func (r *Redis) Lock(ctx context.Context, ids ...uuid.UUID) (func(), error) {
	ordered := Ordered(ids...)
	held := make([]*redsync.Mutex, 0, len(ordered))

	for _, id := range ordered {
		m := r.rs.NewMutex(r.opts.Prefix+id.String(),
			redsync.WithExpiry(r.opts.Expiry),
			redsync.WithTries(r.opts.Tries),
			redsync.WithRetryDelay(r.opts.RetryDelay),
		)
		if err := m.LockContext(ctx); err != nil {
			unlockAll(ctx, held)
			return nil, fmt.Errorf("Lock: %s: %w", id, err)
		}
		held = append(held, m)
	}

	var once sync.Once
	return func() { once.Do(func() { unlockAll(ctx, held) }) }, nil
}

// unlockAll detaches from ctx cancellation so a cancelled caller still
// releases, but keeps its logger.
func unlockAll(ctx context.Context, held []*redsync.Mutex) {
	log := logging.FromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for i := len(held) - 1; i >= 0; i-- {
		if ok, err := held[i].UnlockContext(ctx); !ok || err != nil {
			log.Warn("failed to release account lock", "key", held[i].Name(), "error", err)
		}
	}
}
