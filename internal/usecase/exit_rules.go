package usecase

import (
	"fmt"
	"math"
	"time"

	"github.com/vitos/crypto_liquidation_zones/internal/domain"
)

// ExitRule decides whether an open position should be closed.
type ExitRule interface {
	Name() string
	ShouldExit(pos domain.Position, now time.Time) bool
}

// Exit rule kinds accepted in configuration.
const (
	ExitTargetStop          = "target_stop"
	ExitTargetStopMinute    = "target_stop_minute"
	ExitTimeExhaustion      = "time_exhaustion"
	ExitZoneTraversal       = "zone_traversal"
	ExitRiskRewardTraversal = "risk_reward_traversal"
)

type ExitRuleConfig struct {
	Kind       string
	TakeProfit float64
	StopLoss   float64
	MaxAge     time.Duration
	UpLevels   int
	DownLevels int
}

// NewExitRule builds the rule described by cfg. Zone rules walk zones, which
// should be the combined target zones of the zone table.
func NewExitRule(cfg ExitRuleConfig, zones []domain.Boundary) (ExitRule, error) {
	switch cfg.Kind {
	case ExitTargetStop:
		return TargetStop{TakeProfit: cfg.TakeProfit, StopLoss: cfg.StopLoss}, nil
	case ExitTargetStopMinute:
		return TargetStopAtMinuteBoundary{TakeProfit: cfg.TakeProfit, StopLoss: cfg.StopLoss}, nil
	case ExitTimeExhaustion:
		if cfg.MaxAge <= 0 {
			return nil, fmt.Errorf("exit %s needs a positive max age: %w", cfg.Kind, domain.ErrConfiguration)
		}
		return TimeExhaustion{TakeProfit: cfg.TakeProfit, StopLoss: cfg.StopLoss, MaxAge: cfg.MaxAge}, nil
	case ExitZoneTraversal, ExitRiskRewardTraversal:
		if cfg.UpLevels < 0 || cfg.DownLevels < 0 {
			return nil, fmt.Errorf("exit %s needs non-negative zone counts: %w", cfg.Kind, domain.ErrConfiguration)
		}
		zt := ZoneTraversal{Zones: zones, Up: cfg.UpLevels, Down: cfg.DownLevels}
		if cfg.Kind == ExitRiskRewardTraversal {
			return RiskRewardZoneTraversal{ZoneTraversal: zt}, nil
		}
		return zt, nil
	default:
		return nil, fmt.Errorf("unknown exit rule %q: %w", cfg.Kind, domain.ErrConfiguration)
	}
}

// TargetStop exits on the take-profit or stop-loss percentage.
type TargetStop struct {
	TakeProfit float64
	StopLoss   float64
}

func (r TargetStop) Name() string {
	return fmt.Sprintf("TP %.2f%% / SL %.2f%%", r.TakeProfit, r.StopLoss)
}

func (r TargetStop) ShouldExit(pos domain.Position, _ time.Time) bool {
	return pos.PercentageGain >= r.TakeProfit || pos.PercentageGain <= r.StopLoss
}

// TargetStopAtMinuteBoundary always honours the stop, but only takes profit
// on the first second of a minute.
type TargetStopAtMinuteBoundary struct {
	TakeProfit float64
	StopLoss   float64
}

func (r TargetStopAtMinuteBoundary) Name() string {
	return fmt.Sprintf("TP %.2f%% (top of minute) / SL %.2f%%", r.TakeProfit, r.StopLoss)
}

func (r TargetStopAtMinuteBoundary) ShouldExit(pos domain.Position, now time.Time) bool {
	if pos.PercentageGain <= r.StopLoss {
		return true
	}
	return pos.PercentageGain >= r.TakeProfit && now.Second() == 0
}

// TimeExhaustion is the minute-boundary rule plus a maximum holding time.
type TimeExhaustion struct {
	TakeProfit float64
	StopLoss   float64
	MaxAge     time.Duration
}

func (r TimeExhaustion) Name() string {
	return fmt.Sprintf("TP %.2f%% (top of minute) / SL %.2f%% / max %s", r.TakeProfit, r.StopLoss, r.MaxAge)
}

func (r TimeExhaustion) ShouldExit(pos domain.Position, now time.Time) bool {
	if pos.Age(now) > r.MaxAge {
		return true
	}
	return TargetStopAtMinuteBoundary{TakeProfit: r.TakeProfit, StopLoss: r.StopLoss}.ShouldExit(pos, now)
}

// ZoneTraversal exits once the close leaves the band spanned from Down zones
// below to Up zones above the entry zone.
type ZoneTraversal struct {
	Zones []domain.Boundary
	Up    int
	Down  int
}

func (r ZoneTraversal) Name() string {
	return fmt.Sprintf("zone traversal +%d/-%d", r.Up, r.Down)
}

func (r ZoneTraversal) ShouldExit(pos domain.Position, _ time.Time) bool {
	upper, lower, ok := r.Targets(pos.EntryPrice)
	if !ok {
		return false
	}
	return pos.ClosePrice >= upper.High || pos.ClosePrice <= lower.Low
}

// Targets returns the upper and lower exit zones for an entry price.
func (r ZoneTraversal) Targets(entry float64) (upper, lower domain.Boundary, ok bool) {
	upIdx, downIdx, ok := r.indices(entry)
	if !ok {
		return domain.Boundary{}, domain.Boundary{}, false
	}
	return r.Zones[upIdx], r.Zones[downIdx], true
}

func (r ZoneTraversal) indices(entry float64) (upIdx, downIdx int, ok bool) {
	anchor, ok := anchorZone(r.Zones, entry)
	if !ok {
		return 0, 0, false
	}
	upIdx = min(anchor+r.Up, len(r.Zones)-1)
	downIdx = max(anchor-r.Down, 0)
	return upIdx, downIdx, true
}

// anchorZone returns the index of the zone containing price, or else the zone
// whose midpoint is nearest.
func anchorZone(zones []domain.Boundary, price float64) (int, bool) {
	if len(zones) == 0 {
		return 0, false
	}
	for i, b := range zones {
		if b.Contains(price) {
			return i, true
		}
	}
	best, bestDist := 0, math.Inf(1)
	for i, b := range zones {
		if d := math.Abs(b.Mid() - price); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, true
}

// RiskRewardZoneTraversal widens the profit-side zone until the reward is at
// least as large as the risk, then applies the traversal test.
type RiskRewardZoneTraversal struct {
	ZoneTraversal
}

func (r RiskRewardZoneTraversal) Name() string {
	return fmt.Sprintf("risk/reward zone traversal +%d/-%d", r.Up, r.Down)
}

func (r RiskRewardZoneTraversal) ShouldExit(pos domain.Position, _ time.Time) bool {
	upper, lower, ok := r.Targets(pos.EntryPrice, pos.Side)
	if !ok {
		return false
	}
	return pos.ClosePrice >= upper.High || pos.ClosePrice <= lower.Low
}

// Targets returns the exit zones after the reward-side adjustment.
func (r RiskRewardZoneTraversal) Targets(entry float64, side domain.Side) (upper, lower domain.Boundary, ok bool) {
	upIdx, downIdx, ok := r.indices(entry)
	if !ok {
		return domain.Boundary{}, domain.Boundary{}, false
	}

	roomUp := func() float64 { return math.Abs(r.Zones[upIdx].High - entry) }
	roomDown := func() float64 { return math.Abs(entry - r.Zones[downIdx].Low) }

	if side == domain.SideShort {
		for rewardBelowRisk(roomDown(), roomUp()) && downIdx > 0 {
			downIdx--
		}
	} else {
		for rewardBelowRisk(roomUp(), roomDown()) && upIdx < len(r.Zones)-1 {
			upIdx++
		}
	}
	return r.Zones[upIdx], r.Zones[downIdx], true
}

func rewardBelowRisk(reward, risk float64) bool {
	if risk == 0 {
		return false
	}
	return reward/risk < 1
}
