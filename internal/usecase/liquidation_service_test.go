package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"go.uber.org/zap"
)

type MockExchange struct {
	MockFetcher
	MockSubscriber
	liqHandler  func(domain.Liquidation)
	tickHandler func(domain.KlineTick)
}

func (m *MockExchange) OnLiquidation(callback func(liq domain.Liquidation)) { m.liqHandler = callback }
func (m *MockExchange) OnKline(callback func(tick domain.KlineTick))       { m.tickHandler = callback }
func (m *MockExchange) Run(ctx context.Context) error                      { <-ctx.Done(); return nil }

func TestLiquidationService_ProcessesQueueInOrder(t *testing.T) {
	f := newEvalFixture(defaultEntryConfig())
	f.inLevelFour("BTCUSDT")
	svc := NewLiquidationService(f.evaluator, f.book, f.notifier, 16, time.Hour, zap.NewNop())

	ex := &MockExchange{}
	svc.Attach(ex)
	require.NotNil(t, ex.liqHandler)
	require.NotNil(t, ex.tickHandler)

	// entry, then a tick that takes profit
	ex.liqHandler(btcSellLiquidation("BTCUSDT"))
	ex.tickHandler(domain.KlineTick{Symbol: "BTCUSDT", Interval: "1m", Close: 28000})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		stats, _ := f.book.Stats("s1")
		return stats.Trades == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	status := svc.Status()
	assert.Equal(t, uint64(2), status.Handled)
	assert.Zero(t, status.Dropped)
	assert.Zero(t, status.OpenTotal)

	recent := svc.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, OutcomeAccepted, recent[0].Outcome)
}

func TestLiquidationService_DropsWhenQueueFull(t *testing.T) {
	f := newEvalFixture(defaultEntryConfig())
	svc := NewLiquidationService(f.evaluator, f.book, f.notifier, 1, time.Hour, zap.NewNop())

	svc.HandleKline(domain.KlineTick{Symbol: "BTCUSDT"})
	svc.HandleKline(domain.KlineTick{Symbol: "BTCUSDT"})

	status := svc.Status()
	assert.Equal(t, uint64(1), status.Dropped)
	assert.Equal(t, 1, status.QueueDepth)
}

func TestLiquidationService_SendSnapshotsSkipsEmptyBooks(t *testing.T) {
	f := newEvalFixture(defaultEntryConfig(), tpsl("s1"), tpsl("s2"))
	require.True(t, f.book.Register("s2", longAt("BTCUSDT", 27.15, 1000)))
	svc := NewLiquidationService(f.evaluator, f.book, f.notifier, 0, 0, zap.NewNop())

	svc.SendSnapshots(context.Background())
	require.Len(t, f.notifier.Snapshots, 1)
	assert.Contains(t, f.notifier.Snapshots["s2"], "BTCUSDT")
}
