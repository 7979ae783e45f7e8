package bootstrap

import (
	"fmt"

	"github.com/go-redis/redis/v8"

	"expertcheck/internal/config"
	"expertcheck/internal/logger"
	"expertcheck/internal/store"
	"expertcheck/internal/store/memory"
	"expertcheck/internal/store/postgres"
	"expertcheck/internal/store/redisstore"
)

// SetupStore opens the record store selected by store.driver.
func SetupStore(cfg *config.Config, redisClient *redis.Client, log logger.Logger) (*store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore(), nil

	case config.DriverRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis driver selected without a redis connection")
		}
		log.Info("Using redis store", logger.String("key_prefix", cfg.Redis.KeyPrefix))
		return redisstore.NewStore(redisClient, cfg.Redis.KeyPrefix, log), nil

	case config.DriverPostgres:
		db, err := postgres.Connect(PostgresConfig(cfg))
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.MigrateUp(db.DB, log); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		log.Info("Using postgres store",
			logger.String("host", cfg.Database.Host),
			logger.String("database", cfg.Database.DBName),
		)
		return postgres.NewStore(db, log), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// PostgresConfig maps the database section onto the store's connection config.
func PostgresConfig(cfg *config.Config) postgres.Config {
	return postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
}
