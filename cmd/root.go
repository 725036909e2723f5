// Package cmd defines and implements the CLI commands for the serp-harvester
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/searchops/serp-harvester/internal/config"
	"github.com/searchops/serp-harvester/internal/logging"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
)

// newRootCmd creates and configures the root command. Configuration and
// logging are initialized before any subcommand runs, so malformed
// configuration fails here, before any scraping begins.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serp-harvester",
		Short: "Batch search-result harvester",
		Long: `serp-harvester fetches search-engine result pages for a batch of
queries through a proxy, extracts structured result records, and persists one
document per query.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			c, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = c

			l, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (SERP_-prefixed env vars also apply)")

	cmd.AddCommand(newScrapeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
