package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"expertcheck/internal/bootstrap"
	"expertcheck/internal/store/postgres"
)

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			db, err := postgres.Connect(bootstrap.PostgresConfig(cfg))
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.MigrateUp(db.DB, log)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			db, err := postgres.Connect(bootstrap.PostgresConfig(cfg))
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.MigrateDown(db.DB, steps, log)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(down)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadRuntime()
			if err != nil {
				return err
			}
			db, err := postgres.Connect(bootstrap.PostgresConfig(cfg))
			if err != nil {
				return err
			}
			defer db.Close()
			version, dirty, err := postgres.MigrationVersion(db.DB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	return migrateCmd
}
