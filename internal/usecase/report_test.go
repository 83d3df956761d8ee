package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
)

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$13,575.00", FormatUSD(decimal.RequireFromString("13575")))
	assert.Equal(t, "$1,234,567.89", FormatUSD(decimal.RequireFromString("1234567.891")))
	assert.Equal(t, "$12.50", FormatUSD(decimal.RequireFromString("12.5")))
}

func TestRenderZScoreTable(t *testing.T) {
	out := RenderZScoreTable(domain.ZScoreRecord{Scores: []domain.ZScore{
		{Timeframe: "1m", Value: 2.346, Valid: true},
		{Timeframe: "1h"},
	}})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Timeframe"))
	assert.Contains(t, lines[0], "1m")
	assert.Contains(t, lines[1], "2.35")
	assert.Contains(t, lines[1], "n/a")
}

func TestRenderInfoTable_AlignsValues(t *testing.T) {
	out := RenderInfoTable([]InfoRow{{"Symbol", "BTCUSDT"}, {"Liquidation Value", "$1.00"}})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Index(lines[0], "BTCUSDT"), strings.Index(lines[1], "$1.00"))
}

func TestRenderBook_EmptyBook(t *testing.T) {
	out := RenderBook(domain.BookSnapshot{Strategy: "s1"}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "Entry Timestamp")
	assert.True(t, strings.HasSuffix(out, "Open Profit: 0.00% 🟧"))
}
