package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sukarth/wastewater-optimization/auth"
	"github.com/Sukarth/wastewater-optimization/config"
	"github.com/Sukarth/wastewater-optimization/connectors/clients/dayahead"
	"github.com/Sukarth/wastewater-optimization/connectors/factory"
)

var (
	pricesDate  string
	pricesDays  int
	pricesChart string
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Fetch day-ahead electricity prices from the market API",
	RunE:  runPrices,
}

func init() {
	pricesCmd.Flags().StringVar(&pricesDate, "date", "", "window start (YYYY-MM-DD, default tomorrow)")
	pricesCmd.Flags().IntVar(&pricesDays, "days", 1, "window length in days")
	pricesCmd.Flags().StringVar(&pricesChart, "chart", "", "also write an HTML price chart to this file")
	rootCmd.AddCommand(pricesCmd)
}

func runPrices(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	start := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	if pricesDate != "" {
		if start, err = time.Parse("2006-01-02", pricesDate); err != nil {
			return fmt.Errorf("parse date: %w", err)
		}
	}
	end := start.Add(time.Duration(pricesDays) * 24 * time.Hour)

	client, err := factory.NewPriceClient(cfg.Market.Client)
	if err != nil {
		return err
	}
	authClient := auth.NewClientCred(cfg.Market.Auth)
	resp, err := client.Fetch(authClient,
		dayahead.WithBaseURL(cfg.Market.BaseURL),
		dayahead.WithStartDate(start),
		dayahead.WithEndDate(end))
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}

	points, err := resp.Series()
	if err != nil {
		return err
	}
	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"start", "end", "price_eur_per_mwh"}); err != nil {
		return err
	}
	for _, p := range points {
		rec := []string{
			p.Start.Format(time.RFC3339),
			p.End.Format(time.RFC3339),
			strconv.FormatFloat(p.PriceEURPerMWh, 'f', 2, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if pricesChart != "" {
		html, err := resp.PriceChartHTML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(pricesChart, []byte(html), 0o644); err != nil {
			return err
		}
	}
	return nil
}
