package domain

import "context"

// CandleFetcher is the REST side of the exchange: recent klines for a symbol.
type CandleFetcher interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// KlineSubscriber manages the kline streams of symbols with open positions.
// Both calls are idempotent.
type KlineSubscriber interface {
	SubscribeKline(symbol, interval string) error
	UnsubscribeKline(symbol string) error
}

// Exchange defines the interface for the exchange connectivity layer.
type Exchange interface {
	CandleFetcher
	KlineSubscriber
	OnLiquidation(callback func(liq Liquidation))
	OnKline(callback func(tick KlineTick))
	Run(ctx context.Context) error
}

// Notifier forwards entry decisions, exits and book snapshots to an outside channel.
type Notifier interface {
	SendEntry(ctx context.Context, zscoreTable, infoTable string, side Side) error
	SendExit(ctx context.Context, strategyLabel, symbol string, pct, cumulativePct float64) error
	SendSnapshot(ctx context.Context, strategy, table string) error
}

// TradeRepository is the write-mostly journal of signals and closed positions.
type TradeRepository interface {
	SaveEntrySignal(ctx context.Context, strategy string, signal *EntrySignal) error
	ListEntrySignals(ctx context.Context, limit int) ([]*EntrySignalRecord, error)

	SavePositionHistory(ctx context.Context, history *ClosedPosition) error
	ListPositionHistory(ctx context.Context, limit int) ([]*ClosedPosition, error)
}
