package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/crypto_liquidation_zones/internal/config"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/exchange"
	"github.com/vitos/crypto_liquidation_zones/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	symbol := flag.String("symbol", "BTCUSDT", "symbol to check")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Testing Binance Interaction...\n")
	fmt.Printf("Endpoint: %s\n", cfg.Exchange.RESTEndpoint)

	adapter := exchange.NewBinanceAdapter(cfg.Exchange.RESTEndpoint, "", cfg.Exchange.RequestsPerSecond, cfg.Exchange.Burst, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 2. Latest candle
	candles, err := adapter.FetchCandles(ctx, *symbol, usecase.DefaultKlineInterval, 1)
	if err != nil || len(candles) == 0 {
		fmt.Printf("❌ Failed to get candle: %v\n", err)
		os.Exit(1)
	}
	c := candles[0]
	open, closePrice, factor := usecase.ScaleCandle(c.Open, c.Close)
	fmt.Printf("✅ Candle (%s): O=%g C=%g V=%g\n", *symbol, c.Open, c.Close, c.Volume)
	fmt.Printf("   Scaled: O=%.4f C=%.4f (factor %g)\n", open, closePrice, factor)

	// 3. Z-Scores
	volume := usecase.NewVolumeSignal(adapter, cfg.CacheTTL(), zap.NewNop())
	record, err := volume.ZScores(ctx, *symbol, cfg.ZScore.Lookback, cfg.ZScore.Timeframes)
	if err != nil {
		fmt.Printf("❌ Failed to get Z-scores: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Z-Scores:")
	fmt.Println(usecase.RenderZScoreTable(record))
	if record.AnyAbove(cfg.Filters.ZScore) {
		fmt.Printf("   At least one timeframe is above %.2f\n", cfg.Filters.ZScore)
	}
}
