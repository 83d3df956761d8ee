package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/storage"
)

func main() {
	dbPath := flag.String("db", "liquidations.db", "journal path")
	limit := flag.Int("limit", 20, "rows per table")
	flag.Parse()

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	signals, err := store.ListEntrySignals(ctx, *limit)
	if err != nil {
		fmt.Printf("Failed to list entry signals: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d entry signals:\n", len(signals))
	for _, s := range signals {
		fmt.Printf("- #%d [%s] %s %s @ %.4f (x%g) %s\n",
			s.ID, s.Strategy, s.Symbol, s.Side, s.EntryPrice, s.ScaleFactor, s.Timestamp.Format("2006-01-02 15:04:05"))
	}

	history, err := store.ListPositionHistory(ctx, *limit)
	if err != nil {
		fmt.Printf("Failed to list position history: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nFound %d closed positions:\n", len(history))
	for _, h := range history {
		marker := "✅"
		if h.PercentageGain < 0 {
			marker = "❌"
		}
		fmt.Printf("- %s [%s] %s %s %.4f -> %.4f %+.2f%% (%s) held %s\n",
			marker, h.Strategy, h.Symbol, h.Side, h.EntryPrice, h.ClosePrice, h.PercentageGain,
			h.Reason, h.ClosedAt.Sub(h.OpenedAt).Round(time.Second))
	}
}
