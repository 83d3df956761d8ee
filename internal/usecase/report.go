package usecase

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	reportRule  = 65
	bookRule    = 87
	tsLayout    = "2006-01-02 15:04:05"
	missingCell = "n/a"
)

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders an amount with thousands grouping, e.g. $13,575.00.
func FormatUSD(v decimal.Decimal) string {
	return usdPrinter.Sprintf("$%.2f", v.InexactFloat64())
}

// Rule is the horizontal separator used between report blocks.
func Rule() string {
	return strings.Repeat("-", reportRule)
}

// RenderZScoreTable renders one header row of timeframes and one row of scores.
func RenderZScoreTable(record domain.ZScoreRecord) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	fmt.Fprint(w, "Timeframe")
	for _, z := range record.Scores {
		fmt.Fprintf(w, "\t%s", z.Timeframe)
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "Z-Score")
	for _, z := range record.Scores {
		if z.Valid {
			fmt.Fprintf(w, "\t%.2f", z.Value)
		} else {
			fmt.Fprintf(w, "\t%s", missingCell)
		}
	}
	fmt.Fprintln(w)

	w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

// InfoRow is one label/value line of the liquidation info table.
type InfoRow struct {
	Label string
	Value string
}

// RenderInfoTable renders label/value pairs as two aligned columns.
func RenderInfoTable(rows []InfoRow) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 4, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r.Label, r.Value)
	}
	w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

// RenderBook renders the stats and open positions of one strategy.
// Prices are shown unscaled.
func RenderBook(snap domain.BookSnapshot, now time.Time) string {
	var sb strings.Builder

	title := snap.Label
	if title == "" {
		title = snap.Strategy
	}
	fmt.Fprintf(&sb, "%s  (%s)\n", title, now.Format(tsLayout))
	fmt.Fprintf(&sb, "Profit: %.2f%%  Min: %.2f%%  Max: %.2f%%  Trades: %d (W %d / L %d)\n",
		snap.Stats.CumulativeProfit, snap.Stats.MinTradePct, snap.Stats.MaxTradePct,
		snap.Stats.Trades, snap.Stats.Wins, snap.Stats.Losses)
	if snap.LastTrade != nil {
		fmt.Fprintf(&sb, "Last Trade: %s %s %.2f%%\n",
			snap.LastTrade.Symbol, snap.LastTrade.Side, snap.LastTrade.PercentageGain)
	}
	sb.WriteString(strings.Repeat("-", bookRule))
	sb.WriteString("\n")

	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Symbol\tSide\tEntry Price\tEntry Timestamp\tMarket Price\tPercent Gain")
	for _, p := range snap.Open {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\n",
			p.Symbol, p.Side,
			formatPrice(p.EntryPrice*p.ScaleFactor),
			p.OpenedAt.Format(tsLayout),
			formatPrice(p.ClosePrice*p.ScaleFactor),
			p.PercentageGain)
	}
	w.Flush()

	sb.WriteString(strings.Repeat("-", bookRule))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Open Profit: %.2f%% %s", snap.OpenProfit, profitMarker(snap.OpenProfit))
	return sb.String()
}

func profitMarker(pct float64) string {
	switch {
	case pct > 0:
		return "🟩"
	case pct < 0:
		return "🟥"
	default:
		return "🟧"
	}
}

func formatPrice(p float64) string {
	return decimal.NewFromFloat(p).Round(8).String()
}
