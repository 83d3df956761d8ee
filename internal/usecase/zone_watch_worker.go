package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"go.uber.org/zap"
)

const DefaultWatchInterval = 5 * time.Minute

// WatchEntry is the zone position of one watchlist symbol.
type WatchEntry struct {
	Symbol      string            `json:"symbol"`
	Price       float64           `json:"price"`
	ScaledPrice float64           `json:"scaled_price"`
	Zone        *domain.ZoneMatch `json:"zone,omitempty"`
	Distances   map[int]float64   `json:"distances"` // level -> distance to nearest zone
	Score       float64           `json:"score"`     // sum of Distances
	Error       string            `json:"error,omitempty"`
}

// WatchReport is one full pass over the watchlist.
type WatchReport struct {
	Entries    []WatchEntry `json:"entries"`
	TotalScore float64      `json:"total_score"`
	UpdatedAt  time.Time    `json:"updated_at"`
	Duration   string       `json:"duration"`
}

// ZoneWatchWorker periodically places a list of symbols on the zone grid.
type ZoneWatchWorker struct {
	fetcher    domain.CandleFetcher
	classifier *ZoneClassifier
	symbols    []string
	interval   time.Duration
	logger     *zap.Logger

	mu     sync.RWMutex
	report WatchReport
}

func NewZoneWatchWorker(fetcher domain.CandleFetcher, classifier *ZoneClassifier, symbols []string, interval time.Duration, logger *zap.Logger) *ZoneWatchWorker {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &ZoneWatchWorker{
		fetcher:    fetcher,
		classifier: classifier,
		symbols:    symbols,
		interval:   interval,
		logger:     logger,
	}
}

// Start runs a pass immediately and then on every interval until ctx is done.
func (w *ZoneWatchWorker) Start(ctx context.Context) {
	if len(w.symbols) == 0 {
		return
	}
	w.logger.Info("Starting zone watch worker",
		zap.Strings("symbols", w.symbols), zap.Duration("interval", w.interval))

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.Collect(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Collect(ctx)
			}
		}
	}()
}

// Report returns a copy of the last completed pass.
func (w *ZoneWatchWorker) Report() WatchReport {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r := w.report
	r.Entries = make([]WatchEntry, len(w.report.Entries))
	copy(r.Entries, w.report.Entries)
	return r
}

// Collect scans the watchlist once and stores the result.
func (w *ZoneWatchWorker) Collect(ctx context.Context) WatchReport {
	start := time.Now()
	report := WatchReport{Entries: make([]WatchEntry, 0, len(w.symbols))}

	for _, symbol := range w.symbols {
		entry := w.Scan(ctx, symbol)
		if entry.Error == "" {
			report.TotalScore += entry.Score
		}
		report.Entries = append(report.Entries, entry)
	}
	report.UpdatedAt = time.Now()
	report.Duration = time.Since(start).String()

	w.mu.Lock()
	w.report = report
	w.mu.Unlock()

	w.logger.Info("Zone watch pass complete",
		zap.Int("symbols", len(report.Entries)),
		zap.Float64("total_score", round(report.TotalScore, 4)),
		zap.String("duration", report.Duration))
	return report
}

// Scan places the latest 1m close of symbol on the zone grid.
func (w *ZoneWatchWorker) Scan(ctx context.Context, symbol string) WatchEntry {
	entry := WatchEntry{Symbol: symbol}

	candles, err := w.fetcher.FetchCandles(ctx, symbol, entryCandleInterval, 1)
	if err != nil || len(candles) == 0 {
		if err == nil {
			err = domain.ErrTransientNetwork
		}
		w.logger.Warn("Watch: failed to fetch candle", zap.String("symbol", symbol), zap.Error(err))
		entry.Error = err.Error()
		return entry
	}

	entry.Price = candles[len(candles)-1].Close
	entry.ScaledPrice = Scale(entry.Price)
	if match, ok := w.classifier.Locate(entry.ScaledPrice); ok {
		entry.Zone = &match
	}
	entry.Distances = ZoneDistances(w.classifier.Table(), entry.ScaledPrice)
	for _, d := range entry.Distances {
		entry.Score += d
	}
	return entry
}

// ZoneDistances returns, for each target level, the distance from price to
// the nearest zone edge of that level (zero when inside a zone). Levels
// without zones are left out.
func ZoneDistances(table *ZoneTable, price float64) map[int]float64 {
	out := make(map[int]float64, maxTargetLevel-minTargetLevel+1)
	for level := minTargetLevel; level <= maxTargetLevel; level++ {
		zones := table.Level(level)
		if len(zones) == 0 {
			continue
		}
		best := math.Inf(1)
		for _, b := range zones {
			d := 0.0
			if !b.Contains(price) {
				d = math.Min(math.Abs(price-b.Low), math.Abs(price-b.High))
			}
			best = math.Min(best, d)
		}
		out[level] = best
	}
	return out
}
