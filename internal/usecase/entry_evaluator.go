package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const (
	DefaultEntryCooldown = 60 * time.Second
	DefaultLookback      = 50
	DefaultKlineInterval = "1m"

	// Interval of the candle that places a liquidation on the zone grid.
	entryCandleInterval = "1m"
)

type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeExcluded       Outcome = "excluded"
	OutcomeBelowThreshold Outcome = "below_threshold"
	OutcomeFetchFailed    Outcome = "fetch_failed"
	OutcomeOutOfZone      Outcome = "out_of_zone"
	OutcomeZScoreFailed   Outcome = "zscore_failed"
	OutcomeLowVolume      Outcome = "low_volume"
	OutcomeCooldown       Outcome = "cooldown"
	OutcomeCapacity       Outcome = "capacity"
)

type EntryConfig struct {
	LiquidationThreshold float64
	ZScoreThreshold      float64
	Lookback             int
	Timeframes           []string
	Excluded             []string
	Cooldown             time.Duration
	TradeCap             int
	GlobalTradeCap       int // 0 disables the cross-strategy cap
	KlineInterval        string
}

// Evaluation records every intermediate result of one liquidation.
type Evaluation struct {
	Liquidation domain.Liquidation
	Value       decimal.Decimal
	Candle      *domain.Candle
	ScaledOpen  float64
	ScaledClose float64
	ScaleFactor float64
	SmallZones  []domain.Boundary
	LargeZone   *domain.ZoneMatch
	ZScores     *domain.ZScoreRecord
	Outcome     Outcome
	Strategies  []string // strategies that opened a position
	Signal      *domain.EntrySignal
	At          time.Time
}

// InZone reports whether the candle crossed a small zone or closed inside a
// tradeable large zone.
func (e *Evaluation) InZone() bool {
	return len(e.SmallZones) > 0 || e.LargeZone != nil
}

// EntryEvaluator turns qualifying liquidations into positions.
type EntryEvaluator struct {
	cfg        EntryConfig
	excluded   map[string]struct{}
	fetcher    domain.CandleFetcher
	classifier *ZoneClassifier
	volume     *VolumeSignal
	book       *PositionBook
	subscriber domain.KlineSubscriber
	notifier   domain.Notifier
	tradeRepo  domain.TradeRepository
	logger     *zap.Logger

	mu        sync.Mutex
	lastEntry map[string]time.Time // symbol -> last accepted entry
	timeNow   func() time.Time     // For testing
}

func NewEntryEvaluator(
	cfg EntryConfig,
	fetcher domain.CandleFetcher,
	classifier *ZoneClassifier,
	volume *VolumeSignal,
	book *PositionBook,
	subscriber domain.KlineSubscriber,
	notifier domain.Notifier,
	tradeRepo domain.TradeRepository,
	logger *zap.Logger,
) *EntryEvaluator {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultEntryCooldown
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.KlineInterval == "" {
		cfg.KlineInterval = DefaultKlineInterval
	}

	excluded := make(map[string]struct{}, len(cfg.Excluded))
	for _, s := range cfg.Excluded {
		excluded[s] = struct{}{}
	}

	return &EntryEvaluator{
		cfg:        cfg,
		excluded:   excluded,
		fetcher:    fetcher,
		classifier: classifier,
		volume:     volume,
		book:       book,
		subscriber: subscriber,
		notifier:   notifier,
		tradeRepo:  tradeRepo,
		logger:     logger,
		lastEntry:  make(map[string]time.Time),
		timeNow:    time.Now,
	}
}

// Evaluate runs one liquidation through the filters. The returned evaluation
// is always non-nil. A non-nil error means the event was skipped on a failed
// network call.
func (e *EntryEvaluator) Evaluate(ctx context.Context, liq domain.Liquidation) (*Evaluation, error) {
	ev := &Evaluation{Liquidation: liq, Value: liq.Value(), At: e.timeNow()}

	err := e.evaluate(ctx, ev)
	metrics.Liquidations.WithLabelValues(string(ev.Outcome)).Inc()

	if ev.Candle != nil {
		e.notifyEntry(ctx, ev)
	}
	return ev, err
}

func (e *EntryEvaluator) evaluate(ctx context.Context, ev *Evaluation) error {
	liq := ev.Liquidation
	log := e.logger.With(zap.String("symbol", liq.Symbol))

	// 1. Size and exclusion filter.
	if _, ok := e.excluded[liq.Symbol]; ok {
		ev.Outcome = OutcomeExcluded
		log.Debug("Liquidation in excluded list")
		return nil
	}
	if ev.Value.InexactFloat64() <= e.cfg.LiquidationThreshold {
		ev.Outcome = OutcomeBelowThreshold
		return nil
	}

	// 2. Place the latest candle on the zone grid.
	candles, err := e.fetcher.FetchCandles(ctx, liq.Symbol, entryCandleInterval, 1)
	if err != nil {
		ev.Outcome = OutcomeFetchFailed
		return fmt.Errorf("fetch entry candle for %s: %w", liq.Symbol, err)
	}
	if len(candles) == 0 {
		ev.Outcome = OutcomeFetchFailed
		return fmt.Errorf("no entry candle for %s: %w", liq.Symbol, domain.ErrTransientNetwork)
	}
	candle := candles[len(candles)-1]
	ev.Candle = &candle
	ev.ScaledOpen, ev.ScaledClose, ev.ScaleFactor = ScaleCandle(candle.Open, candle.Close)

	// 3. Zone check.
	ev.SmallZones = e.classifier.SmallZonesCrossed(ev.ScaledOpen, ev.ScaledClose)
	if match, ok := e.classifier.ContainingLargeZone(ev.ScaledClose); ok {
		ev.LargeZone = &match
	}
	if !ev.InZone() {
		ev.Outcome = OutcomeOutOfZone
		log.Info("Liquidation outside zones", zap.Float64("scaled_close", ev.ScaledClose))
		return nil
	}

	// 4. Volume confirmation.
	record, err := e.volume.ZScores(ctx, liq.Symbol, e.cfg.Lookback, e.cfg.Timeframes)
	if err != nil {
		ev.Outcome = OutcomeZScoreFailed
		return fmt.Errorf("z-scores for %s: %w", liq.Symbol, err)
	}
	ev.ZScores = &record
	if !record.AnyAbove(e.cfg.ZScoreThreshold) {
		ev.Outcome = OutcomeLowVolume
		log.Info("Volume below Z-score threshold", zap.Float64("threshold", e.cfg.ZScoreThreshold))
		return nil
	}

	// 5. Per-symbol cooldown.
	e.mu.Lock()
	last, seen := e.lastEntry[liq.Symbol]
	e.mu.Unlock()
	if seen && ev.At.Sub(last) < e.cfg.Cooldown {
		ev.Outcome = OutcomeCooldown
		log.Info("Entry skipped: cooldown active",
			zap.Duration("remaining", e.cfg.Cooldown-ev.At.Sub(last)))
		return nil
	}

	// 6. Capacity per strategy, then register.
	signal := domain.EntrySignal{
		Symbol:      liq.Symbol,
		Side:        domain.EntrySideFor(liq.Side),
		EntryPrice:  ev.ScaledClose,
		ScaleFactor: ev.ScaleFactor,
		Timestamp:   ev.At,
	}
	for _, s := range e.book.Strategies() {
		if !e.passesOverrides(s, ev) {
			continue
		}
		if e.book.OpenCount(s.ID) >= e.cfg.TradeCap {
			log.Debug("Strategy at trade cap", zap.String("strategy", s.ID))
			continue
		}
		if e.cfg.GlobalTradeCap > 0 && e.book.TotalOpen() >= e.cfg.GlobalTradeCap {
			log.Debug("Global trade cap reached")
			break
		}
		pos := domain.Position{
			Symbol:      signal.Symbol,
			Side:        signal.Side,
			EntryPrice:  signal.EntryPrice,
			ScaleFactor: signal.ScaleFactor,
			OpenedAt:    signal.Timestamp,
		}
		if e.book.Register(s.ID, pos) {
			ev.Strategies = append(ev.Strategies, s.ID)
		}
	}
	if len(ev.Strategies) == 0 {
		ev.Outcome = OutcomeCapacity
		log.Info("Entry skipped: no strategy has capacity")
		return nil
	}

	// 7. Accept.
	e.mu.Lock()
	e.lastEntry[liq.Symbol] = ev.At
	e.mu.Unlock()

	ev.Outcome = OutcomeAccepted
	ev.Signal = &signal

	if e.subscriber != nil {
		if err := e.subscriber.SubscribeKline(liq.Symbol, e.cfg.KlineInterval); err != nil {
			log.Warn("Failed to subscribe kline", zap.Error(err))
		}
	}
	if e.tradeRepo != nil {
		for _, id := range ev.Strategies {
			if err := e.tradeRepo.SaveEntrySignal(ctx, id, &signal); err != nil {
				log.Error("Failed to save entry signal", zap.String("strategy", id), zap.Error(err))
			}
		}
	}

	log.Info("Entry accepted",
		zap.String("side", string(signal.Side)),
		zap.Float64("entry", signal.EntryPrice),
		zap.Strings("strategies", ev.Strategies))
	return nil
}

// passesOverrides applies the optional per-strategy thresholds.
func (e *EntryEvaluator) passesOverrides(s Strategy, ev *Evaluation) bool {
	if s.LiquidationThreshold > 0 && ev.Value.InexactFloat64() <= s.LiquidationThreshold {
		return false
	}
	if s.ZScoreThreshold > 0 && (ev.ZScores == nil || !ev.ZScores.AnyAbove(s.ZScoreThreshold)) {
		return false
	}
	return true
}

func (e *EntryEvaluator) notifyEntry(ctx context.Context, ev *Evaluation) {
	if e.notifier == nil {
		return
	}

	zscoreTable := ""
	if ev.ZScores != nil {
		zscoreTable = RenderZScoreTable(*ev.ZScores)
	}
	info := RenderInfoTable(InfoRows(ev)) + "\n" + Rule() + "\n" + DecisionLine(ev)

	err := e.notifier.SendEntry(ctx, zscoreTable, info, domain.EntrySideFor(ev.Liquidation.Side))
	if err != nil {
		e.logger.Warn("Failed to send entry notification",
			zap.String("symbol", ev.Liquidation.Symbol), zap.Error(err))
	}
}

// InfoRows lists the liquidation facts shown under the Z-score table.
func InfoRows(ev *Evaluation) []InfoRow {
	liq := ev.Liquidation
	rows := []InfoRow{
		{"Symbol", liq.Symbol},
		{"Side", liq.Describe()},
		{"Quantity", liq.Quantity.String()},
		{"Price", liq.Price.String()},
		{"Liquidation Value", FormatUSD(ev.Value)},
		{"Timestamp", ev.At.Format(tsLayout)},
		{"Scaled Price", fmt.Sprintf("%g", round(ev.ScaledClose, 5))},
	}
	for _, b := range ev.SmallZones {
		rows = append(rows, InfoRow{"ACME Small " + levelMarker(SmallZoneLevel), formatBoundary(b)})
	}
	if ev.LargeZone != nil {
		rows = append(rows, InfoRow{
			fmt.Sprintf("ACME Big %d %s", ev.LargeZone.Level, levelMarker(ev.LargeZone.Level)),
			formatBoundary(ev.LargeZone.Boundary),
		})
	}
	return rows
}

// DecisionLine summarises the outcome of an evaluation in one line.
func DecisionLine(ev *Evaluation) string {
	if ev.Outcome == OutcomeAccepted {
		return fmt.Sprintf("%s conditions are met (%d strategies)", ev.Signal.Side, len(ev.Strategies))
	}
	if ev.Outcome == OutcomeOutOfZone {
		return ev.Liquidation.Symbol + " Liquidation: ACME not detected."
	}
	return "Rejected: " + string(ev.Outcome)
}

func levelMarker(level int) string {
	switch level {
	case 1:
		return "⬜"
	case 3:
		return "🟨"
	case 4:
		return "🟦"
	case 5:
		return "🟩"
	case 6:
		return "🟪"
	default:
		return ""
	}
}

func formatBoundary(b domain.Boundary) string {
	return fmt.Sprintf("(%g, %g)", b.Low, b.High)
}

// IsTransient reports whether err was caused by a failed network call.
func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrTransientNetwork)
}
