package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vitos/crypto_liquidation_zones/internal/config"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/exchange"
	"github.com/vitos/crypto_liquidation_zones/internal/usecase"
	"go.uber.org/zap"
)

func zonesCmd() *cobra.Command {
	var level int
	cmd := &cobra.Command{
		Use:   "zones",
		Short: "Print the zone table",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := usecase.BuildZoneTable(usecase.DefaultConstants)
			if err != nil {
				return err
			}

			fmt.Printf("Frame: %d values, mean %.4f, stdev %.4f\n\n", len(table.Frame()), table.Mean(), table.Stdev())
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Level\tLow\tHigh\tWidth")
			for l := usecase.SmallZoneLevel; l <= usecase.MaxLargeLevel; l++ {
				if level != 0 && l != level {
					continue
				}
				for _, z := range table.Level(l) {
					fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f\n", l, z.Low, z.High, z.Width())
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&level, "level", 0, "only print one level (1..7)")
	return cmd
}

func scanCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan SYMBOL...",
		Short: "Place symbols on the zone grid once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := zap.NewNop()

			table, err := usecase.BuildZoneTable(usecase.DefaultConstants)
			if err != nil {
				return err
			}
			binance := exchange.NewBinanceAdapter(
				cfg.Exchange.RESTEndpoint, "", cfg.Exchange.RequestsPerSecond, cfg.Exchange.Burst, log)
			worker := usecase.NewZoneWatchWorker(binance, usecase.NewZoneClassifier(table), args, 0, log)
			report := worker.Collect(cmd.Context())

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Symbol\tPrice\tScaled\tZone\tL3\tL4\tL5\tL6\tScore")
			for _, e := range report.Entries {
				if e.Error != "" {
					fmt.Fprintf(w, "%s\t-\t-\t%s\t\t\t\t\t\n", e.Symbol, e.Error)
					continue
				}
				zone := "-"
				if e.Zone != nil {
					zone = fmt.Sprintf("L%d %.2f..%.2f", e.Zone.Level, e.Zone.Boundary.Low, e.Zone.Boundary.High)
				}
				fmt.Fprintf(w, "%s\t%g\t%.4f\t%s", e.Symbol, e.Price, e.ScaledPrice, zone)
				levels := make([]int, 0, len(e.Distances))
				for l := range e.Distances {
					levels = append(levels, l)
				}
				sort.Ints(levels)
				for _, l := range levels {
					fmt.Fprintf(w, "\t%.4f", e.Distances[l])
				}
				fmt.Fprintf(w, "\t%.4f\n", e.Score)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\nTotal score: %.4f\n", report.TotalScore)
			return nil
		},
	}
}
