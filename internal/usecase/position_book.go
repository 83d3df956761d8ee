package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// Strategy binds an exit rule and optional filter overrides to a book.
// A zero threshold falls back to the evaluator's global value.
type Strategy struct {
	ID                   string
	Label                string
	Exit                 ExitRule
	LiquidationThreshold float64
	ZScoreThreshold      float64
}

// PositionBook keeps at most one synthetic position per (strategy, symbol)
// and folds closed trades into per-strategy stats.
type PositionBook struct {
	strategies []Strategy
	index      map[string]int

	subscriber domain.KlineSubscriber
	notifier   domain.Notifier
	tradeRepo  domain.TradeRepository
	logger     *zap.Logger

	mu        sync.RWMutex
	open      map[string]map[string]*domain.Position // strategy -> symbol -> position
	stats     map[string]*domain.StrategyStats
	lastTrade map[string]*domain.ClosedPosition
	timeNow   func() time.Time // For testing
}

func NewPositionBook(
	strategies []Strategy,
	subscriber domain.KlineSubscriber,
	notifier domain.Notifier,
	tradeRepo domain.TradeRepository,
	logger *zap.Logger,
) *PositionBook {
	b := &PositionBook{
		strategies: strategies,
		index:      make(map[string]int, len(strategies)),
		subscriber: subscriber,
		notifier:   notifier,
		tradeRepo:  tradeRepo,
		logger:     logger,
		open:       make(map[string]map[string]*domain.Position, len(strategies)),
		stats:      make(map[string]*domain.StrategyStats, len(strategies)),
		lastTrade:  make(map[string]*domain.ClosedPosition, len(strategies)),
		timeNow:    time.Now,
	}
	for i, s := range strategies {
		b.index[s.ID] = i
		b.open[s.ID] = make(map[string]*domain.Position)
		b.stats[s.ID] = &domain.StrategyStats{Strategy: s.ID}
	}
	return b
}

func (b *PositionBook) Strategies() []Strategy {
	return b.strategies
}

func (b *PositionBook) Strategy(id string) (Strategy, bool) {
	i, ok := b.index[id]
	if !ok {
		return Strategy{}, false
	}
	return b.strategies[i], true
}

// Register opens pos under strategy. It returns false when the strategy is
// unknown or already holds the symbol.
func (b *PositionBook) Register(strategy string, pos domain.Position) bool {
	b.mu.Lock()
	book, ok := b.open[strategy]
	if !ok {
		b.mu.Unlock()
		return false
	}
	if _, held := book[pos.Symbol]; held {
		b.mu.Unlock()
		return false
	}

	if pos.ID == "" {
		pos.ID = uuid.NewString()
	}
	if pos.OpenedAt.IsZero() {
		pos.OpenedAt = b.timeNow()
	}
	pos.Strategy = strategy
	pos.ClosePrice = pos.EntryPrice
	pos.PercentageGain = 0
	pos.UpdatedAt = pos.OpenedAt
	book[pos.Symbol] = &pos
	count := len(book)
	b.mu.Unlock()

	metrics.PositionsOpened.WithLabelValues(strategy).Inc()
	metrics.OpenPositions.WithLabelValues(strategy).Set(float64(count))
	b.logger.Info("Position opened",
		zap.String("strategy", strategy),
		zap.String("symbol", pos.Symbol),
		zap.String("side", string(pos.Side)),
		zap.Float64("entry", pos.EntryPrice))
	return true
}

// OnTick marks every position held in symbol with price and closes those
// whose exit rule fires. When no strategy holds symbol afterwards its kline
// stream is released.
func (b *PositionBook) OnTick(ctx context.Context, symbol string, price float64) []domain.ClosedPosition {
	now := b.timeNow()

	var closed []domain.ClosedPosition
	type exitStat struct {
		label      string
		cumulative float64
		remaining  int
	}
	var exits []exitStat
	held := false

	b.mu.Lock()
	for _, s := range b.strategies {
		pos, ok := b.open[s.ID][symbol]
		if !ok {
			continue
		}

		factor := pos.ScaleFactor
		if factor <= 0 {
			factor = ScaleFactor(price)
		}
		pos.Mark(price/factor, now)

		if s.Exit == nil || !s.Exit.ShouldExit(*pos, now) {
			held = true
			continue
		}

		delete(b.open[s.ID], symbol)
		stats := b.stats[s.ID]
		stats.Record(pos.PercentageGain)

		cp := domain.ClosedPosition{Position: *pos, Reason: s.Exit.Name(), ClosedAt: now}
		last := cp
		b.lastTrade[s.ID] = &last
		closed = append(closed, cp)
		exits = append(exits, exitStat{label: s.Label, cumulative: stats.CumulativeProfit, remaining: len(b.open[s.ID])})
	}
	b.mu.Unlock()

	for i, cp := range closed {
		e := exits[i]
		metrics.PositionsClosed.WithLabelValues(cp.Strategy, metrics.TradeResult(cp.PercentageGain)).Inc()
		metrics.OpenPositions.WithLabelValues(cp.Strategy).Set(float64(e.remaining))
		metrics.StrategyProfit.WithLabelValues(cp.Strategy).Set(e.cumulative)

		b.logger.Info("Position closed",
			zap.String("strategy", cp.Strategy),
			zap.String("symbol", cp.Symbol),
			zap.String("reason", cp.Reason),
			zap.Float64("pct", round(cp.PercentageGain, 2)),
			zap.Float64("cumulative", round(e.cumulative, 2)))

		if b.tradeRepo != nil {
			history := cp
			if err := b.tradeRepo.SavePositionHistory(ctx, &history); err != nil {
				b.logger.Error("Failed to save position history", zap.String("symbol", cp.Symbol), zap.Error(err))
			}
		}
		if b.notifier != nil {
			if err := b.notifier.SendExit(ctx, e.label, cp.Symbol, round(cp.PercentageGain, 2), round(e.cumulative, 2)); err != nil {
				b.logger.Warn("Failed to send exit notification", zap.String("symbol", cp.Symbol), zap.Error(err))
			}
		}
	}

	if !held && b.subscriber != nil {
		if err := b.subscriber.UnsubscribeKline(symbol); err != nil {
			b.logger.Warn("Failed to unsubscribe kline", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return closed
}

func (b *PositionBook) OpenCount(strategy string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.open[strategy])
}

func (b *PositionBook) TotalOpen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, book := range b.open {
		total += len(book)
	}
	return total
}

// Holds reports whether any strategy has an open position in symbol.
func (b *PositionBook) Holds(symbol string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, book := range b.open {
		if _, ok := book[symbol]; ok {
			return true
		}
	}
	return false
}

// HeldSymbols returns the sorted set of symbols with at least one open position.
func (b *PositionBook) HeldSymbols() []string {
	b.mu.RLock()
	seen := make(map[string]struct{})
	for _, book := range b.open {
		for sym := range book {
			seen[sym] = struct{}{}
		}
	}
	b.mu.RUnlock()

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

func (b *PositionBook) Stats(strategy string) (domain.StrategyStats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.stats[strategy]
	if !ok {
		return domain.StrategyStats{}, false
	}
	return *s, true
}

// Snapshot copies the state of one strategy. Open positions are sorted by symbol.
func (b *PositionBook) Snapshot(strategy string) (domain.BookSnapshot, bool) {
	i, ok := b.index[strategy]
	if !ok {
		return domain.BookSnapshot{}, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked(b.strategies[i]), true
}

func (b *PositionBook) Snapshots() []domain.BookSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.BookSnapshot, 0, len(b.strategies))
	for _, s := range b.strategies {
		out = append(out, b.snapshotLocked(s))
	}
	return out
}

func (b *PositionBook) snapshotLocked(s Strategy) domain.BookSnapshot {
	snap := domain.BookSnapshot{
		Strategy: s.ID,
		Label:    s.Label,
		Stats:    *b.stats[s.ID],
		Open:     make([]domain.Position, 0, len(b.open[s.ID])),
	}
	if last := b.lastTrade[s.ID]; last != nil {
		cp := *last
		snap.LastTrade = &cp
	}
	for _, pos := range b.open[s.ID] {
		snap.Open = append(snap.Open, *pos)
		snap.OpenProfit += pos.PercentageGain
	}
	sort.Slice(snap.Open, func(i, j int) bool { return snap.Open[i].Symbol < snap.Open[j].Symbol })
	return snap
}

// BestStrategy returns the stats with the highest cumulative profit.
func (b *PositionBook) BestStrategy() (domain.StrategyStats, bool) {
	return b.pickStrategy(func(a, c float64) bool { return a > c })
}

// WorstStrategy returns the stats with the lowest cumulative profit.
func (b *PositionBook) WorstStrategy() (domain.StrategyStats, bool) {
	return b.pickStrategy(func(a, c float64) bool { return a < c })
}

func (b *PositionBook) pickStrategy(better func(a, c float64) bool) (domain.StrategyStats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var best *domain.StrategyStats
	for _, s := range b.strategies {
		st := b.stats[s.ID]
		if best == nil || better(st.CumulativeProfit, best.CumulativeProfit) {
			best = st
		}
	}
	if best == nil {
		return domain.StrategyStats{}, false
	}
	return *best, true
}

// DisplaySnapshot renders the book of one strategy for a notification.
func (b *PositionBook) DisplaySnapshot(strategy string) (string, error) {
	snap, ok := b.Snapshot(strategy)
	if !ok {
		return "", fmt.Errorf("unknown strategy %q", strategy)
	}
	return RenderBook(snap, b.timeNow()), nil
}
