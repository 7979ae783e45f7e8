// Package config loads service configuration from an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Events   EventsConfig   `mapstructure:"events"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Commit   CommitConfig   `mapstructure:"commit"`
}

type AppConfig struct {
	Name  string `mapstructure:"name"`
	Debug bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// APIKeys is a comma-separated list of accepted Bearer tokens. Empty
	// disables authentication.
	APIKeys string `mapstructure:"api_keys"`
}

type LoggingConfig struct {
	Level       string   `mapstructure:"level"`
	Development bool     `mapstructure:"development"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type EventsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Stream  string `mapstructure:"stream"`
	MaxLen  int64  `mapstructure:"max_len"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CommitConfig controls per-content commit serialization. With
// DistributedLock set the lock lives in Redis so several instances can share
// one store.
type CommitConfig struct {
	DistributedLock bool          `mapstructure:"distributed_lock"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
}

// NeedsRedis reports whether any enabled component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Store.Driver == DriverRedis || c.Events.Enabled || c.Commit.DistributedLock
}

// APIKeySet returns the configured API keys as a set.
func (c *Config) APIKeySet() map[string]struct{} {
	return ParseAPIKeys(c.Server.APIKeys)
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address is required")
	}
	switch c.Store.Driver {
	case DriverMemory, DriverRedis, DriverPostgres:
	default:
		return fmt.Errorf("store.driver %q is not one of memory, redis, postgres", c.Store.Driver)
	}
	if c.NeedsRedis() && c.Redis.Address == "" {
		return errors.New("redis.address is required")
	}
	if c.Store.Driver == DriverPostgres {
		if c.Database.Host == "" {
			return errors.New("database.host is required")
		}
		if c.Database.Port <= 0 {
			return errors.New("database.port must be positive")
		}
		if c.Database.User == "" {
			return errors.New("database.user is required")
		}
		if c.Database.DBName == "" {
			return errors.New("database.dbname is required")
		}
	}
	return nil
}

// Load reads configuration. path may be empty, in which case ./config.yaml
// is used when present.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "expertcheck")
	v.SetDefault("app.debug", false)

	v.SetDefault("server.address", ":9090")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.api_keys", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{"stdout"})

	v.SetDefault("store.driver", DriverMemory)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "expertcheck")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "expertcheck")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.stream", "expertcheck:events")
	v.SetDefault("events.max_len", 10000)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("commit.distributed_lock", false)
	v.SetDefault("commit.lock_ttl", 30*time.Second)
}

// bindEnv maps the short environment names operators already use.
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.address":    {"HTTP_ADDR", "SERVER_ADDRESS"},
		"server.api_keys":   {"API_KEYS", "SERVER_API_KEYS"},
		"redis.address":     {"REDIS_ADDR", "REDIS_ADDRESS"},
		"redis.password":    {"REDIS_PASSWORD"},
		"database.host":     {"DB_HOST", "DATABASE_HOST"},
		"database.port":     {"DB_PORT", "DATABASE_PORT"},
		"database.user":     {"DB_USER", "DATABASE_USER"},
		"database.password": {"DB_PASSWORD", "DATABASE_PASSWORD"},
		"database.dbname":   {"DB_NAME", "DATABASE_DBNAME"},
		"logging.level":     {"LOG_LEVEL", "LOGGING_LEVEL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// ParseAPIKeys parses a comma-separated list of API keys into a set.
func ParseAPIKeys(s string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, k := range strings.Split(s, ",") {
		if v := strings.TrimSpace(k); v != "" {
			keys[v] = struct{}{}
		}
	}
	return keys
}
