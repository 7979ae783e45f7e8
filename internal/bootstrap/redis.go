package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"expertcheck/internal/config"
	"expertcheck/internal/events"
	"expertcheck/internal/lock"
	"expertcheck/internal/logger"
)

const redisPingTimeout = 5 * time.Second

// SetupRedis connects to Redis when any enabled component needs it. Returns
// nil, nil otherwise.
func SetupRedis(ctx context.Context, cfg *config.Config, log logger.Logger) (*redis.Client, error) {
	if !cfg.NeedsRedis() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis (%s): %w", cfg.Redis.Address, err)
	}

	log.Info("Connected to redis", logger.String("address", cfg.Redis.Address))
	return client, nil
}

// SetupEventPublisher returns the stream publisher, or nil when events are
// disabled.
func SetupEventPublisher(cfg *config.Config, client *redis.Client, log logger.Logger) *events.Publisher {
	if !cfg.Events.Enabled || client == nil {
		return nil
	}
	log.Info("Event publisher initialized", logger.String("stream", cfg.Events.Stream))
	return events.NewPublisher(client, cfg.Events.Stream, cfg.Events.MaxLen, log)
}

// SetupLocker picks the commit lock: Redis-backed when configured for
// multi-instance deployments, in-process otherwise.
func SetupLocker(cfg *config.Config, client *redis.Client, log logger.Logger) lock.Locker {
	if cfg.Commit.DistributedLock && client != nil {
		log.Info("Using distributed commit lock", logger.Duration("ttl", cfg.Commit.LockTTL))
		return lock.NewRedis(client, cfg.Redis.KeyPrefix, cfg.Commit.LockTTL, log)
	}
	return lock.NewLocal()
}
