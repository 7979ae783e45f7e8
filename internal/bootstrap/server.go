package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"expertcheck/internal/config"
	"expertcheck/internal/logger"
)

// RunServer serves handler until ctx is done, then shuts down gracefully.
func RunServer(ctx context.Context, cfg config.ServerConfig, handler http.Handler, log logger.Logger) error {
	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server is listening", logger.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("could not listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Server is shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
