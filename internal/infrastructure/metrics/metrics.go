// Package metrics holds the Prometheus collectors the engine updates while it runs.
//
//   - acme_liquidations_total{outcome}              evaluated liquidation events by decision
//   - acme_positions_opened_total{strategy}         positions registered in the book
//   - acme_positions_closed_total{strategy,result}  exits split by win|loss|flat
//   - acme_open_positions{strategy}                 open positions (gauge)
//   - acme_strategy_profit_pct{strategy}            cumulative closed profit in percent (gauge)
//   - acme_zscore_cache_total{result}               Z-score cache hit|miss
//   - acme_ws_reconnects_total                      websocket reconnect attempts
//
// Collectors are registered in init() and served by the web server at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Liquidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acme_liquidations_total",
			Help: "Liquidation events evaluated, by outcome",
		},
		[]string{"outcome"},
	)

	PositionsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acme_positions_opened_total",
			Help: "Synthetic positions opened",
		},
		[]string{"strategy"},
	)

	PositionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acme_positions_closed_total",
			Help: "Synthetic positions closed, by result",
		},
		[]string{"strategy", "result"},
	)

	OpenPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acme_open_positions",
			Help: "Open synthetic positions",
		},
		[]string{"strategy"},
	)

	StrategyProfit = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acme_strategy_profit_pct",
			Help: "Cumulative closed profit in percent",
		},
		[]string{"strategy"},
	)

	ZScoreCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acme_zscore_cache_total",
			Help: "Z-score cache lookups, by result",
		},
		[]string{"result"},
	)

	WSReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "acme_ws_reconnects_total",
			Help: "Websocket reconnect attempts",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Liquidations,
		PositionsOpened,
		PositionsClosed,
		OpenPositions,
		StrategyProfit,
		ZScoreCache,
		WSReconnects,
	)
}

// TradeResult labels a closed trade by the sign of its gain.
func TradeResult(pct float64) string {
	switch {
	case pct > 0:
		return "win"
	case pct < 0:
		return "loss"
	default:
		return "flat"
	}
}
