package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"go.uber.org/zap"
)

// Multi forwards every call to all sinks and joins their errors.
type Multi []domain.Notifier

func (m Multi) SendEntry(ctx context.Context, zscoreTable, infoTable string, side domain.Side) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.SendEntry(ctx, zscoreTable, infoTable, side))
	}
	return errors.Join(errs...)
}

func (m Multi) SendExit(ctx context.Context, strategyLabel, symbol string, pct, cumulativePct float64) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.SendExit(ctx, strategyLabel, symbol, pct, cumulativePct))
	}
	return errors.Join(errs...)
}

func (m Multi) SendSnapshot(ctx context.Context, strategy, table string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.SendSnapshot(ctx, strategy, table))
	}
	return errors.Join(errs...)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) SendEntry(context.Context, string, string, domain.Side) error { return nil }

func (Nop) SendExit(context.Context, string, string, float64, float64) error { return nil }

func (Nop) SendSnapshot(context.Context, string, string) error { return nil }

const asyncSendTimeout = 15 * time.Second

// Async sends in the background so the event loop never waits on a webhook.
// Failures are logged and not retried.
type Async struct {
	next   domain.Notifier
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewAsync(next domain.Notifier, logger *zap.Logger) *Async {
	return &Async{next: next, logger: logger}
}

func (a *Async) SendEntry(_ context.Context, zscoreTable, infoTable string, side domain.Side) error {
	a.spawn("entry", func(ctx context.Context) error {
		return a.next.SendEntry(ctx, zscoreTable, infoTable, side)
	})
	return nil
}

func (a *Async) SendExit(_ context.Context, strategyLabel, symbol string, pct, cumulativePct float64) error {
	a.spawn("exit", func(ctx context.Context) error {
		return a.next.SendExit(ctx, strategyLabel, symbol, pct, cumulativePct)
	})
	return nil
}

func (a *Async) SendSnapshot(_ context.Context, strategy, table string) error {
	a.spawn("snapshot", func(ctx context.Context) error {
		return a.next.SendSnapshot(ctx, strategy, table)
	})
	return nil
}

// Wait blocks until in-flight sends have finished.
func (a *Async) Wait() {
	a.wg.Wait()
}

// spawn detaches from the caller's context: a send must survive the event
// that triggered it.
func (a *Async) spawn(kind string, send func(ctx context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncSendTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			a.logger.Error("Failed to send notification", zap.String("kind", kind), zap.Error(err))
		}
	}()
}
