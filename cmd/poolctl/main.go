// Package main provides poolctl, the operator CLI for the banker pool.
package main

import (
	"context"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/banker-pool/internal/app"
	"github.com/yourusername/banker-pool/internal/config"
	"github.com/yourusername/banker-pool/internal/logger"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	verbose    bool
	timeout    time.Duration
	appLog     *logrus.Logger
	cfg        *config.Config
	pool       *app.App
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warn")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for each command")

	rootCmd.AddCommand(
		openCmd,
		wagerCmd,
		bankerCmd,
		winnerCmd,
		recomputeCmd,
		completeCmd,
		showCmd,
		currentCmd,
		indexCmd,
		leaderboardCmd,
		historyCmd,
		participantCmd,
		reconcileCmd,
	)
}

var rootCmd = &cobra.Command{
	Use:          "poolctl",
	Short:        "Operate the banker pool",
	Long:         `Opens race days, records wagers, bankers and results, completes days and reports leaderboards.`,
	Version:      Version + " (" + GitCommit + ")",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupDependencies(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pool != nil {
			pool.Close()
		}
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setupDependencies(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	level := "warn"
	if verbose {
		level = cfg.App.LogLevel
	}
	appLog = logger.NewLogger(level, cfg.App.Environment)

	pool, err = app.New(ctx, cfg, appLog)
	return err
}

// commandContext bounds a command by the --timeout flag
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
