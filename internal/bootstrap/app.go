// Package bootstrap assembles the service from configuration and runs it.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"expertcheck/internal/api"
	"expertcheck/internal/catalog"
	"expertcheck/internal/config"
	"expertcheck/internal/logger"
	"expertcheck/internal/metrics"
	"expertcheck/internal/query"
	"expertcheck/internal/workflow"
)

// Start builds every component from cfg and serves HTTP until ctx is done.
func Start(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	redisClient, err := SetupRedis(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	s, err := SetupStore(cfg, redisClient, log)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return fmt.Errorf("failed to set up store: %w", err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			log.Error("Failed to close store", logger.Error(closeErr))
		}
		if redisClient != nil && cfg.Store.Driver != config.DriverRedis {
			_ = redisClient.Close()
		}
	}()

	var (
		m   *metrics.Metrics
		reg *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}

	engine := workflow.NewEngine(s, log, EngineOptions(cfg, redisClient, m, log)...)

	deps := api.Deps{
		Engine:      engine,
		Queries:     query.NewService(s, log),
		Catalog:     catalog.NewService(s, log),
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		APIKeys:     cfg.APIKeySet(),
		Log:         log,
	}
	if reg != nil {
		deps.Gatherer = reg
	}
	if len(deps.APIKeys) == 0 {
		log.Warn("No API keys configured, authentication disabled")
	}

	return RunServer(ctx, cfg.Server, api.NewRouter(deps), log)
}

// EngineOptions wires the locker and, when configured, the event publisher
// and metrics recorder. Disabled components keep the engine's no-op defaults.
func EngineOptions(cfg *config.Config, client *redis.Client, m *metrics.Metrics, log logger.Logger) []workflow.Option {
	opts := []workflow.Option{workflow.WithLocker(SetupLocker(cfg, client, log))}
	if publisher := SetupEventPublisher(cfg, client, log); publisher != nil {
		opts = append(opts, workflow.WithPublisher(publisher))
	}
	if m != nil {
		opts = append(opts, workflow.WithRecorder(m))
	}
	return opts
}

// CreateLogger builds the service logger from cfg.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	level := cfg.Logging.Level
	if cfg.App.Debug {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:       level,
		Development: cfg.Logging.Development || cfg.App.Debug,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return nil, err
	}
	return log.With(logger.String("service", cfg.App.Name)), nil
}
