package lock

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/logger"
)

const (
	defaultTTL       = 30 * time.Second
	defaultRetryWait = 25 * time.Millisecond
	releaseTimeout   = 5 * time.Second
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only if this holder still owns it.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a lease-based lock using SET NX PX. The lease is renewed every
// third of the TTL until released; a holder that cannot renew loses it.
type Redis struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
	log       logger.Logger
}

// NewRedis creates a Redis locker. Zero ttl selects the default lease.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration, log logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{
		client:    client,
		prefix:    prefix,
		ttl:       ttl,
		retryWait: defaultRetryWait,
		log:       log,
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := r.prefix + ":lock:" + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil {
			return nil, apperrors.Unavailable("acquire lock", err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(r.retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.renew(lockKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
				r.log.Warn("Failed to release lock",
					logger.String("key", lockKey),
					logger.Error(err),
				)
			}
		})
	}, nil
}

func (r *Redis) renew(lockKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		n, err := renewScript.Run(ctx, r.client, []string{lockKey}, token, r.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			r.log.Warn("Failed to renew lock", logger.String("key", lockKey), logger.Error(err))
			continue
		}
		if n == 0 {
			r.log.Warn("Lock lease lost", logger.String("key", lockKey))
			return
		}
	}
}
