package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vitos/crypto_liquidation_zones/internal/config"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/exchange"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/logger"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/notify"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/storage"
	"github.com/vitos/crypto_liquidation_zones/internal/usecase"
	"github.com/vitos/crypto_liquidation_zones/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "bot",
		Short:        "Liquidation zone engine",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the YAML config")

	root.AddCommand(zonesCmd())
	root.AddCommand(scanCmd(&configPath))
	return root
}

func runEngine(ctx context.Context, configPath string) error {
	// 1. Load Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	// 3. Init Storage
	var repo domain.TradeRepository = storage.NopStore{}
	if cfg.Storage.Enabled {
		store, err := storage.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			log.Error("Failed to init sqlite", zap.Error(err))
			return err
		}
		defer store.Close()
		repo = store
	}

	// 4. Init Exchange
	binance := exchange.NewBinanceAdapter(
		cfg.Exchange.RESTEndpoint, cfg.Exchange.WSEndpoint,
		cfg.Exchange.RequestsPerSecond, cfg.Exchange.Burst, log)

	// 5. Zones and strategies
	table, err := usecase.BuildZoneTable(usecase.DefaultConstants)
	if err != nil {
		log.Error("Failed to build zone table", zap.Error(err))
		return err
	}
	classifier := usecase.NewZoneClassifier(table)
	strategies, err := cfg.BuildStrategies(table.CombinedTargetZones())
	if err != nil {
		log.Error("Failed to build strategies", zap.Error(err))
		return err
	}

	// 6. Notifications
	sinks := notify.Multi{notify.NewDiscord(cfg.DiscordConfig(), log)}
	if tg := cfg.Notifications.Telegram; tg.Enabled {
		telegram, err := notify.NewTelegram(tg.Token, tg.ChatID, tg.Endpoint, log)
		if err != nil {
			log.Error("Failed to init telegram, continuing without it", zap.Error(err))
		} else {
			sinks = append(sinks, telegram)
		}
	}
	notifier := notify.NewAsync(sinks, log)
	defer notifier.Wait()

	// 7. Init Services
	book := usecase.NewPositionBook(strategies, binance, notifier, repo, log)
	volume := usecase.NewVolumeSignal(binance, cfg.CacheTTL(), log)
	evaluator := usecase.NewEntryEvaluator(cfg.EntryConfig(), binance, classifier, volume, book, binance, notifier, repo, log)
	svc := usecase.NewLiquidationService(evaluator, book, notifier, usecase.DefaultQueueSize, cfg.SnapshotEvery(), log)
	svc.Attach(binance)

	var watch *usecase.ZoneWatchWorker
	if len(cfg.Watchlist.Symbols) > 0 {
		watch = usecase.NewZoneWatchWorker(binance, classifier, cfg.Watchlist.Symbols, cfg.WatchInterval(), log)
	}

	// 8. Init Web Server
	server := web.NewServer(cfg.Server.Port, svc, table, repo, watch, log)

	log.Info("Engine starting",
		zap.Int("strategies", len(strategies)),
		zap.Strings("timeframes", cfg.ZScore.Timeframes),
		zap.Float64("liquidation_filter", cfg.Filters.Liquidation),
		zap.Float64("zscore_filter", cfg.Filters.ZScore))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return binance.Run(gctx) })
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if watch != nil {
		watch.Start(gctx)
	}

	err = g.Wait()
	log.Info("Shutting down...")
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Engine stopped", zap.Error(err))
		return err
	}
	return nil
}
