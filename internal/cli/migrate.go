package cli

import (
	"github.com/spf13/cobra"

	database "github.com/FACorreiaa/tournament-auth/app/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the Postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, err := database.NewDatabaseConfig(cfg, logger)
			if err != nil {
				return err
			}
			return database.RunMigrations(dbCfg.ConnectionURL, logger)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, err := database.NewDatabaseConfig(cfg, logger)
			if err != nil {
				return err
			}
			return database.RollbackMigrations(dbCfg.ConnectionURL, steps, logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}
