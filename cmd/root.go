// Package cmd defines the tunnelctl command tree: the replay service itself
// plus the offline helpers for exporting runs, fetching day-ahead prices and
// generating synthetic feeds.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sukarth/wastewater-optimization/app"
	"github.com/Sukarth/wastewater-optimization/config"
	"github.com/Sukarth/wastewater-optimization/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "tunnelctl",
	Short: "Storage tunnel pump-flow optimization service",
	Long: "tunnelctl replays the plant's observation feed through the rolling-horizon\n" +
		"planner and safety agent, records every tick and serves the results.",
	RunE: runService,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func runService(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := svc.Run(ctx)
	if err := svc.Close(); err != nil {
		logger.New("main").Errorf("service close: %v", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
