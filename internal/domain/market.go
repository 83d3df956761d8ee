package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LiquidationSide is the side of the forced order as reported by the exchange.
type LiquidationSide string

const (
	LiquidationBuy  LiquidationSide = "BUY"  // a short was liquidated
	LiquidationSell LiquidationSide = "SELL" // a long was liquidated
)

// Liquidation is one forced-order event.
type Liquidation struct {
	Symbol    string          `json:"symbol"`
	Side      LiquidationSide `json:"side"`
	OrderType string          `json:"order_type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	TradeTime time.Time       `json:"trade_time"`
}

// Value is the notional of the liquidation in quote currency, rounded to cents.
func (l Liquidation) Value() decimal.Decimal {
	return l.Quantity.Mul(l.Price).Round(2)
}

// Describe returns the human label used in notifications.
func (l Liquidation) Describe() string {
	if l.Side == LiquidationSell {
		return "Buyer Liquidated"
	}
	return "Seller Liquidated"
}

// KlineTick is a (possibly still forming) candle pushed by the kline stream.
type KlineTick struct {
	Symbol    string  `json:"symbol"`
	Interval  string  `json:"interval"`
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Closed    bool    `json:"closed"`
	EventTime int64   `json:"event_time"`
}

type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}
