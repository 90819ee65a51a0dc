package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sukarth/wastewater-optimization/config"
	"github.com/Sukarth/wastewater-optimization/core/ticklog"
	"github.com/Sukarth/wastewater-optimization/pkg/export"
)

var (
	exportRunID      string
	exportStart      string
	exportEnd        string
	exportFormat     string
	exportOut        string
	exportOverridden bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded ticks from the tick log",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "filter by run id")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "RFC3339 start of the window")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "RFC3339 end of the window")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv, json or summary")
	exportCmd.Flags().StringVar(&exportOut, "out", "-", "output file, - for stdout")
	exportCmd.Flags().BoolVar(&exportOverridden, "overridden", false, "only ticks the safety agent overrode")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := ticklog.NewStore(cfg.TickLog)
	if err != nil {
		return fmt.Errorf("tick log: %w", err)
	}
	defer func() { _ = store.Close() }()

	q := ticklog.TickQuery{RunID: exportRunID, OverriddenOnly: exportOverridden}
	if exportStart != "" {
		if q.Start, err = time.Parse(time.RFC3339, exportStart); err != nil {
			return fmt.Errorf("parse start: %w", err)
		}
	}
	if exportEnd != "" {
		if q.End, err = time.Parse(time.RFC3339, exportEnd); err != nil {
			return fmt.Errorf("parse end: %w", err)
		}
	}
	records, err := store.Query(context.Background(), q)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	out := os.Stdout
	if exportOut != "-" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	switch exportFormat {
	case "csv":
		return export.WriteCSV(out, records)
	case "json":
		return export.WriteJSON(out, records)
	case "summary":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(export.Summarize(records))
	default:
		return fmt.Errorf("unknown format %q", exportFormat)
	}
}
