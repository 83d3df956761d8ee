package domain

// StrategyStats is the running aggregate of closed trades for one strategy.
type StrategyStats struct {
	Strategy         string  `json:"strategy"`
	CumulativeProfit float64 `json:"cumulative_profit"`
	MinTradePct      float64 `json:"min_trade_pct"`
	MaxTradePct      float64 `json:"max_trade_pct"`
	Trades           int     `json:"trades"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
}

// Record folds one closed trade into the aggregate.
func (s *StrategyStats) Record(pct float64) {
	if s.Trades == 0 || pct < s.MinTradePct {
		s.MinTradePct = pct
	}
	if s.Trades == 0 || pct > s.MaxTradePct {
		s.MaxTradePct = pct
	}
	s.Trades++
	s.CumulativeProfit += pct
	switch {
	case pct > 0:
		s.Wins++
	case pct < 0:
		s.Losses++
	}
}

// BookSnapshot is a read-only view of one strategy's book.
type BookSnapshot struct {
	Strategy   string          `json:"strategy"`
	Label      string          `json:"label"`
	Stats      StrategyStats   `json:"stats"`
	LastTrade  *ClosedPosition `json:"last_trade,omitempty"`
	Open       []Position      `json:"open"`
	OpenProfit float64         `json:"open_profit"`
}
