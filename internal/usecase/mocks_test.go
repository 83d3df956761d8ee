package usecase

import (
	"context"
	"sync"

	"github.com/vitos/crypto_liquidation_zones/internal/domain"
)

type MockFetcher struct {
	mu      sync.Mutex
	Candles map[string][]domain.Candle // key: symbol + "|" + interval
	Errors  map[string]error
	Calls   int
}

func candleKey(symbol, interval string) string {
	return symbol + "|" + interval
}

func (m *MockFetcher) Set(symbol, interval string, candles []domain.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Candles == nil {
		m.Candles = make(map[string][]domain.Candle)
	}
	m.Candles[candleKey(symbol, interval)] = candles
}

func (m *MockFetcher) Fail(symbol, interval string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Errors == nil {
		m.Errors = make(map[string]error)
	}
	m.Errors[candleKey(symbol, interval)] = err
}

func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

func (m *MockFetcher) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if err := m.Errors[candleKey(symbol, interval)]; err != nil {
		return nil, err
	}
	candles := m.Candles[candleKey(symbol, interval)]
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

type MockSubscriber struct {
	mu           sync.Mutex
	Subscribed   map[string]string
	Subscribes   int
	Unsubscribes []string
}

func (m *MockSubscriber) SubscribeKline(symbol, interval string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Subscribed == nil {
		m.Subscribed = make(map[string]string)
	}
	m.Subscribes++
	m.Subscribed[symbol] = interval
	return nil
}

func (m *MockSubscriber) UnsubscribeKline(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unsubscribes = append(m.Unsubscribes, symbol)
	delete(m.Subscribed, symbol)
	return nil
}

type sentExit struct {
	Label      string
	Symbol     string
	Pct        float64
	Cumulative float64
}

type sentEntry struct {
	ZScoreTable string
	InfoTable   string
	Side        domain.Side
}

type MockNotifier struct {
	mu        sync.Mutex
	Entries   []sentEntry
	Exits     []sentExit
	Snapshots map[string]string
	Err       error
}

func (m *MockNotifier) SendEntry(ctx context.Context, zscoreTable, infoTable string, side domain.Side) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, sentEntry{zscoreTable, infoTable, side})
	return m.Err
}

func (m *MockNotifier) SendExit(ctx context.Context, strategyLabel, symbol string, pct, cumulativePct float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Exits = append(m.Exits, sentExit{strategyLabel, symbol, pct, cumulativePct})
	return m.Err
}

func (m *MockNotifier) SendSnapshot(ctx context.Context, strategy, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Snapshots == nil {
		m.Snapshots = make(map[string]string)
	}
	m.Snapshots[strategy] = table
	return m.Err
}

type MockTradeRepo struct {
	mu      sync.Mutex
	Signals []domain.EntrySignalRecord
	History []domain.ClosedPosition
}

func (m *MockTradeRepo) SaveEntrySignal(ctx context.Context, strategy string, signal *domain.EntrySignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Signals = append(m.Signals, domain.EntrySignalRecord{
		ID:          int64(len(m.Signals) + 1),
		Strategy:    strategy,
		EntrySignal: *signal,
	})
	return nil
}

func (m *MockTradeRepo) ListEntrySignals(ctx context.Context, limit int) ([]*domain.EntrySignalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.EntrySignalRecord
	for i := range m.Signals {
		out = append(out, &m.Signals[i])
	}
	return out, nil
}

func (m *MockTradeRepo) SavePositionHistory(ctx context.Context, history *domain.ClosedPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.History = append(m.History, *history)
	return nil
}

func (m *MockTradeRepo) ListPositionHistory(ctx context.Context, limit int) ([]*domain.ClosedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ClosedPosition
	for i := range m.History {
		out = append(out, &m.History[i])
	}
	return out, nil
}
