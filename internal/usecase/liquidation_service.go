package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize     = 1024
	DefaultSnapshotEvery = 300 * time.Second

	recentEvaluations = 50
)

// event is one queued item; exactly one field is set.
type event struct {
	liq  *domain.Liquidation
	tick *domain.KlineTick
}

// LiquidationService is the event loop of the engine. Exchange callbacks only
// enqueue; Run consumes the queue on a single goroutine so evaluator and book
// mutations never overlap.
type LiquidationService struct {
	evaluator     *EntryEvaluator
	book          *PositionBook
	notifier      domain.Notifier
	logger        *zap.Logger
	queue         chan event
	snapshotEvery time.Duration

	mu      sync.RWMutex
	recent  []Evaluation
	dropped uint64
	handled uint64
	started time.Time
}

func NewLiquidationService(
	evaluator *EntryEvaluator,
	book *PositionBook,
	notifier domain.Notifier,
	queueSize int,
	snapshotEvery time.Duration,
	logger *zap.Logger,
) *LiquidationService {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if snapshotEvery <= 0 {
		snapshotEvery = DefaultSnapshotEvery
	}
	return &LiquidationService{
		evaluator:     evaluator,
		book:          book,
		notifier:      notifier,
		logger:        logger,
		queue:         make(chan event, queueSize),
		snapshotEvery: snapshotEvery,
	}
}

// Attach registers the service's handlers on the exchange streams.
func (s *LiquidationService) Attach(ex domain.Exchange) {
	ex.OnLiquidation(s.HandleLiquidation)
	ex.OnKline(s.HandleKline)
}

// HandleLiquidation enqueues a liquidation without blocking the caller.
func (s *LiquidationService) HandleLiquidation(liq domain.Liquidation) {
	s.enqueue(event{liq: &liq})
}

// HandleKline enqueues a kline tick without blocking the caller.
func (s *LiquidationService) HandleKline(tick domain.KlineTick) {
	s.enqueue(event{tick: &tick})
}

func (s *LiquidationService) enqueue(ev event) {
	select {
	case s.queue <- ev:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		s.logger.Warn("Event queue full, dropping event", zap.Int("capacity", cap(s.queue)))
	}
}

// Run consumes the queue until ctx is cancelled and sends book snapshots
// every snapshot interval.
func (s *LiquidationService) Run(ctx context.Context) error {
	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	ticker := time.NewTicker(s.snapshotEvery)
	defer ticker.Stop()

	s.logger.Info("Liquidation service started", zap.Duration("snapshot_every", s.snapshotEvery))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Liquidation service stopped")
			return ctx.Err()
		case ev := <-s.queue:
			s.process(ctx, ev)
		case <-ticker.C:
			s.SendSnapshots(ctx)
		}
	}
}

func (s *LiquidationService) process(ctx context.Context, ev event) {
	s.mu.Lock()
	s.handled++
	s.mu.Unlock()

	switch {
	case ev.liq != nil:
		eval, err := s.evaluator.Evaluate(ctx, *ev.liq)
		if err != nil {
			s.logger.Error("Error evaluating liquidation",
				zap.String("symbol", ev.liq.Symbol),
				zap.Bool("transient", IsTransient(err)),
				zap.Error(err))
		}
		s.remember(eval)
	case ev.tick != nil:
		s.book.OnTick(ctx, ev.tick.Symbol, ev.tick.Close)
	}
}

func (s *LiquidationService) remember(eval *Evaluation) {
	if eval == nil || eval.Candle == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, *eval)
	if len(s.recent) > recentEvaluations {
		s.recent = s.recent[len(s.recent)-recentEvaluations:]
	}
}

// SendSnapshots posts the rendered book of every strategy with open positions.
func (s *LiquidationService) SendSnapshots(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	for _, st := range s.book.Strategies() {
		if s.book.OpenCount(st.ID) == 0 {
			continue
		}
		table, err := s.book.DisplaySnapshot(st.ID)
		if err != nil {
			s.logger.Error("Failed to render book", zap.String("strategy", st.ID), zap.Error(err))
			continue
		}
		if err := s.notifier.SendSnapshot(ctx, st.ID, table); err != nil {
			s.logger.Warn("Failed to send book snapshot", zap.String("strategy", st.ID), zap.Error(err))
		}
	}
}

// Recent returns the latest evaluations that reached the zone check, newest last.
func (s *LiquidationService) Recent() []Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Evaluation, len(s.recent))
	copy(out, s.recent)
	return out
}

type ServiceStatus struct {
	StartedAt  time.Time `json:"started_at"`
	Handled    uint64    `json:"handled"`
	Dropped    uint64    `json:"dropped"`
	QueueDepth int       `json:"queue_depth"`
	OpenTotal  int       `json:"open_total"`
	Held       []string  `json:"held_symbols"`
}

func (s *LiquidationService) Status() ServiceStatus {
	s.mu.RLock()
	st := ServiceStatus{
		StartedAt:  s.started,
		Handled:    s.handled,
		Dropped:    s.dropped,
		QueueDepth: len(s.queue),
	}
	s.mu.RUnlock()
	st.OpenTotal = s.book.TotalOpen()
	st.Held = s.book.HeldSymbols()
	return st
}

func (s *LiquidationService) Book() *PositionBook {
	return s.book
}
