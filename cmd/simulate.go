package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sukarth/wastewater-optimization/simulator"
)

var (
	simDays  int
	simSeed  int64
	simStart string
	simStorm float64
	simOut   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate a synthetic observation feed",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simDays, "days", 7, "number of days to generate")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 1, "random seed")
	simulateCmd.Flags().StringVar(&simStart, "start", "", "first timestamp (YYYY-MM-DD)")
	simulateCmd.Flags().Float64Var(&simStorm, "storms-per-day", 0.3, "daily storm probability")
	simulateCmd.Flags().StringVar(&simOut, "out", "-", "output file, - for stdout")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg := simulator.FeedConfig{Days: simDays, Seed: simSeed, StormsPerDay: simStorm}
	if simStart != "" {
		start, err := time.Parse("2006-01-02", simStart)
		if err != nil {
			return fmt.Errorf("parse start: %w", err)
		}
		cfg.Start = start
	}
	obs, err := simulator.Generate(cfg)
	if err != nil {
		return err
	}

	out := os.Stdout
	if simOut != "-" {
		f, err := os.Create(simOut)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	return simulator.WriteCSV(out, obs)
}
