package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultZScoreTTL = 5 * time.Minute

// VolumeSignal computes per-timeframe volume Z-scores for a symbol and caches
// the whole record per symbol for a TTL.
type VolumeSignal struct {
	fetcher domain.CandleFetcher
	ttl     time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	cache   map[string]domain.ZScoreRecord
	timeNow func() time.Time // For testing
}

func NewVolumeSignal(fetcher domain.CandleFetcher, ttl time.Duration, logger *zap.Logger) *VolumeSignal {
	if ttl <= 0 {
		ttl = DefaultZScoreTTL
	}
	return &VolumeSignal{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logger,
		cache:   make(map[string]domain.ZScoreRecord),
		timeNow: time.Now,
	}
}

type timeframeResult struct {
	candles []domain.Candle
	err     error
}

// ZScores returns the cached record for symbol when it is younger than the
// TTL; otherwise it fetches lookback candles for every timeframe concurrently.
func (v *VolumeSignal) ZScores(ctx context.Context, symbol string, lookback int, timeframes []string) (domain.ZScoreRecord, error) {
	now := v.timeNow()

	v.mu.Lock()
	cached, ok := v.cache[symbol]
	v.mu.Unlock()
	if ok && now.Sub(cached.CalculatedAt) < v.ttl {
		metrics.ZScoreCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.ZScoreCache.WithLabelValues("miss").Inc()

	results := make([]timeframeResult, len(timeframes))
	var g errgroup.Group
	for i, tf := range timeframes {
		g.Go(func() error {
			candles, err := v.fetcher.FetchCandles(ctx, symbol, tf, lookback)
			// A failed timeframe degrades to a sentinel; it must not cancel the others.
			results[i] = timeframeResult{candles: candles, err: err}
			return nil
		})
	}
	// workers never return an error
	_ = g.Wait()

	record := domain.ZScoreRecord{
		Symbol:       symbol,
		Scores:       make([]domain.ZScore, len(timeframes)),
		CalculatedAt: now,
	}
	failed := 0
	for i, tf := range timeframes {
		res := results[i]
		if res.err != nil {
			failed++
			v.logger.Warn("Failed to fetch candles for Z-score",
				zap.String("symbol", symbol), zap.String("timeframe", tf), zap.Error(res.err))
			record.Scores[i] = domain.ZScore{Timeframe: tf}
			continue
		}

		score, err := volumeZScore(res.candles)
		if err != nil {
			v.logger.Debug("Z-score unavailable",
				zap.String("symbol", symbol), zap.String("timeframe", tf), zap.Error(err))
			record.Scores[i] = domain.ZScore{Timeframe: tf}
			continue
		}
		record.Scores[i] = domain.ZScore{Timeframe: tf, Value: score, Valid: true}
	}

	if len(timeframes) > 0 && failed == len(timeframes) {
		return domain.ZScoreRecord{}, fmt.Errorf("z-scores for %s: all %d fetches failed: %w", symbol, failed, domain.ErrTransientNetwork)
	}

	v.mu.Lock()
	v.cache[symbol] = record
	v.mu.Unlock()

	return record, nil
}

// Invalidate drops the cached record of a symbol.
func (v *VolumeSignal) Invalidate(symbol string) {
	v.mu.Lock()
	delete(v.cache, symbol)
	v.mu.Unlock()
}

// volumeZScore scores the last fully closed candle (second to last, the last
// one is usually still forming) against every fetched volume.
func volumeZScore(candles []domain.Candle) (float64, error) {
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}

	mean, stdev, err := meanStdev(volumes)
	if err != nil {
		return 0, err
	}
	if stdev == 0 {
		return 0, fmt.Errorf("flat volume over %d candles: %w", len(volumes), domain.ErrInsufficientHistory)
	}

	current := volumes[len(volumes)-2]
	return (current - mean) / stdev, nil
}
