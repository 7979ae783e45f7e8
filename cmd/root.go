// Package cmd implements the expertcheck command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"expertcheck/internal/bootstrap"
	"expertcheck/internal/config"
	"expertcheck/internal/logger"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug forces debug logging regardless of configuration.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "expertcheck",
		Short: "Expert content validation service",
		Long: `expertcheck accepts content submissions, collects expert reviews and
publishes validated content to a searchable library.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newVersionCommand())
}

// loadRuntime loads configuration and builds the logger shared by subcommands.
func loadRuntime() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.App.Debug = true
	}
	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
