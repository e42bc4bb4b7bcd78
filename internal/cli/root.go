package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	appLogger "github.com/FACorreiaa/tournament-auth/app/logger"
	"github.com/FACorreiaa/tournament-auth/config"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

var (
	cfg    *config.Config
	logger *slog.Logger
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var storageDriver string

	rootCmd := &cobra.Command{
		Use:   "tournament-auth",
		Short: "Authentication and access control service for the tournament backend",
		Long: `tournament-auth issues and verifies bearer tokens, enforces the role-sensitive
password policy and answers authorization questions against the role permission matrix.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.InitConfig()
			if err != nil {
				return fmt.Errorf("error initializing config: %w", err)
			}
			if storageDriver != "" {
				loaded.Storage.Driver = storageDriver
			}
			cfg = &loaded

			logger = appLogger.SetupLogger(cfg.IsDevelopment())
			slog.SetDefault(logger)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&storageDriver, "storage", "", "Override storage.driver: postgres, redis or memory")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newHashPasswordCmd())
	rootCmd.AddCommand(newIssueTokenCmd())
	rootCmd.AddCommand(newVerifyTokenCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	})

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
