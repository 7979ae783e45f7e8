package cmd

import (
	"github.com/spf13/cobra"

	"expertcheck/internal/bootstrap"
	"expertcheck/internal/logger"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			log.Info("Starting expertcheck",
				logger.String("version", Version),
				logger.String("store_driver", cfg.Store.Driver),
			)
			if err := bootstrap.Start(cmd.Context(), cfg, log); err != nil {
				log.Error("Server error", logger.Error(err))
				return err
			}
			return nil
		},
	}
}
