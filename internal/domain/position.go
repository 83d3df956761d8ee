package domain

import "time"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// EntrySideFor returns the side to trade after a liquidation: the opposite of
// the forced order (a SELL liquidation flushes longs, so we buy).
func EntrySideFor(liq LiquidationSide) Side {
	if liq == LiquidationBuy {
		return SideShort
	}
	return SideLong
}

// EntrySignal is a qualified liquidation, ready to be opened as a position.
type EntrySignal struct {
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	EntryPrice  float64   `json:"entry_price"` // scaled
	ScaleFactor float64   `json:"scale_factor"`
	Timestamp   time.Time `json:"timestamp"`
}

// EntrySignalRecord is a journaled signal.
type EntrySignalRecord struct {
	ID       int64
	Strategy string
	EntrySignal
}

// Position is a synthetic trade tracked by the position book. Prices are scaled.
type Position struct {
	ID             string    `json:"id"`
	Strategy       string    `json:"strategy"`
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	EntryPrice     float64   `json:"entry_price"`
	ScaleFactor    float64   `json:"scale_factor"`
	OpenedAt       time.Time `json:"opened_at"`
	ClosePrice     float64   `json:"close_price"`
	PercentageGain float64   `json:"percentage_gain"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Mark updates the running close price and recomputes the percentage gain.
// A positive gain is always favourable to the position's side.
func (p *Position) Mark(scaledClose float64, now time.Time) {
	p.ClosePrice = scaledClose
	p.UpdatedAt = now
	if p.EntryPrice == 0 {
		p.PercentageGain = 0
		return
	}
	if p.Side == SideShort {
		p.PercentageGain = (p.EntryPrice - scaledClose) / p.EntryPrice * 100
	} else {
		p.PercentageGain = (scaledClose - p.EntryPrice) / p.EntryPrice * 100
	}
}

// Age is the time the position has been open at now.
func (p *Position) Age(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}

// ClosedPosition represents a position removed from the book by an exit rule.
type ClosedPosition struct {
	Position
	Reason   string    `json:"reason"`
	ClosedAt time.Time `json:"closed_at"`
}
