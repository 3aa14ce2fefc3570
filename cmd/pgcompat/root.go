package main

import (
	"fmt"
	"log/slog"

	"github.com/nnnkkk7/pgcompat/pkg/config"
	"github.com/spf13/cobra"
)

// rootOptions holds global flags and the configuration loaded from them.
type rootOptions struct {
	configFile string
	driver     string
	dsn        string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pgcompat",
		Short: "MySQL-to-PostgreSQL compatibility layer",
		Long: `pgcompat translates MySQL-dialect SQL into PostgreSQL-compatible SQL and
executes it with transparent recovery from aborted transactions.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if opts.driver != "" {
				cfg.Driver = opts.driver
			}
			if opts.dsn != "" {
				cfg.DSN = opts.dsn
			}
			opts.cfg = cfg
			opts.logger = cfg.NewLogger()
			slog.SetDefault(opts.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default .pgcompat.yaml)")
	cmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "database driver (postgres|duckdb)")
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "database connection string")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newTranslateCommand(opts))
	cmd.AddCommand(newInstallFunctionsCommand(opts))
	cmd.AddCommand(newVerifyFunctionsCommand(opts))
	cmd.AddCommand(newDropFunctionsCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))

	return cmd
}
