// Package cmd holds the raffle command line
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"raffle/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configFile string

// NewRootCommand builds the raffle command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "raffle",
		Short: "Raffle round ledger and settlement engine",
		Long: `raffle runs periodic raffle rounds: it sells tickets, closes rounds,
draws a winner from oracle randomness and tracks prize claims.

Run "raffle serve" to start the HTTP API and the round worker.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
					return err
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			config.Set(cfg)
			return configureLogging(cfg, cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file (or set CONFIG_FILE)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newRoundsCommand())
	root.AddCommand(newWinningsCommand())
	return root
}

// Execute runs the command tree until ctx is cancelled
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func configureLogging(cfg *config.Config, out io.Writer) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)
	log.SetOutput(out)
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
