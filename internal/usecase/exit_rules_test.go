package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
)

func openedAt(side domain.Side, entry, close float64, opened time.Time) domain.Position {
	p := domain.Position{Symbol: "BTCUSDT", Side: side, EntryPrice: entry, ScaleFactor: 1, OpenedAt: opened}
	p.Mark(close, opened)
	return p
}

func TestTargetStop(t *testing.T) {
	rule := TargetStop{TakeProfit: 0.6, StopLoss: -0.5}
	now := time.Date(2024, 1, 1, 12, 0, 17, 0, time.UTC)

	long := openedAt(domain.SideLong, 10.0, 10.07, now)
	assert.InDelta(t, 0.7, long.PercentageGain, 1e-9)
	assert.True(t, rule.ShouldExit(long, now))

	assert.False(t, rule.ShouldExit(openedAt(domain.SideLong, 10.0, 10.03, now), now))
	assert.True(t, rule.ShouldExit(openedAt(domain.SideLong, 10.0, 9.95, now), now))

	// a short gains when price falls
	short := openedAt(domain.SideShort, 10.0, 9.93, now)
	assert.InDelta(t, 0.7, short.PercentageGain, 1e-9)
	assert.True(t, rule.ShouldExit(short, now))
}

func TestTargetStopAtMinuteBoundary(t *testing.T) {
	rule := TargetStopAtMinuteBoundary{TakeProfit: 0.6, StopLoss: -0.5}
	opened := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	winner := openedAt(domain.SideLong, 10.0, 10.1, opened)
	assert.False(t, rule.ShouldExit(winner, opened.Add(30*time.Second)))
	assert.True(t, rule.ShouldExit(winner, opened.Add(time.Minute)))

	loser := openedAt(domain.SideLong, 10.0, 9.9, opened)
	assert.True(t, rule.ShouldExit(loser, opened.Add(30*time.Second)))
}

func TestTimeExhaustion(t *testing.T) {
	rule := TimeExhaustion{TakeProfit: 5, StopLoss: -5, MaxAge: 10 * time.Minute}
	opened := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	flat := openedAt(domain.SideShort, 10.0, 10.0, opened)

	assert.False(t, rule.ShouldExit(flat, opened.Add(10*time.Minute)))
	assert.True(t, rule.ShouldExit(flat, opened.Add(10*time.Minute+time.Second)))
}

var traversalZones = []domain.Boundary{
	{Low: 10, High: 11},
	{Low: 20, High: 21},
	{Low: 30, High: 31},
	{Low: 40, High: 41},
	{Low: 80, High: 81},
}

func TestZoneTraversal_Targets(t *testing.T) {
	rule := ZoneTraversal{Zones: traversalZones, Up: 1, Down: 1}

	up, down, ok := rule.Targets(30.5)
	require.True(t, ok)
	assert.Equal(t, domain.Boundary{Low: 40, High: 41}, up)
	assert.Equal(t, domain.Boundary{Low: 20, High: 21}, down)

	// 24 is nearest to the midpoint of the second zone
	up, down, ok = rule.Targets(24)
	require.True(t, ok)
	assert.Equal(t, domain.Boundary{Low: 30, High: 31}, up)
	assert.Equal(t, domain.Boundary{Low: 10, High: 11}, down)

	// clamped at both ends
	wide := ZoneTraversal{Zones: traversalZones, Up: 10, Down: 10}
	up, down, ok = wide.Targets(30.5)
	require.True(t, ok)
	assert.Equal(t, traversalZones[len(traversalZones)-1], up)
	assert.Equal(t, traversalZones[0], down)

	_, _, ok = ZoneTraversal{Up: 1, Down: 1}.Targets(30)
	assert.False(t, ok)
}

func TestZoneTraversal_ShouldExit(t *testing.T) {
	rule := ZoneTraversal{Zones: traversalZones, Up: 1, Down: 1}
	now := time.Now()

	assert.False(t, rule.ShouldExit(openedAt(domain.SideLong, 30.5, 35, now), now))
	assert.True(t, rule.ShouldExit(openedAt(domain.SideLong, 30.5, 41, now), now))
	assert.True(t, rule.ShouldExit(openedAt(domain.SideLong, 30.5, 20, now), now))

	empty := ZoneTraversal{Up: 1, Down: 1}
	assert.False(t, empty.ShouldExit(openedAt(domain.SideLong, 30.5, 1000, now), now))
}

func TestRiskRewardZoneTraversal_WidensProfitSide(t *testing.T) {
	rule := RiskRewardZoneTraversal{ZoneTraversal{Zones: traversalZones, Up: 0, Down: 2}}

	// Entry 40.5: risk to 20 is 20.5, reward to 41 only 0.5, so LONG widens up to 81.
	up, down, ok := rule.Targets(40.5, domain.SideLong)
	require.True(t, ok)
	assert.Equal(t, domain.Boundary{Low: 80, High: 81}, up)
	assert.Equal(t, domain.Boundary{Low: 20, High: 21}, down)

	// SHORT keeps the upper stop and widens down until reward >= risk or the list ends.
	short := RiskRewardZoneTraversal{ZoneTraversal{Zones: traversalZones, Up: 2, Down: 1}}
	up, down, ok = short.Targets(30.5, domain.SideShort)
	require.True(t, ok)
	assert.Equal(t, domain.Boundary{Low: 80, High: 81}, up)
	assert.Equal(t, domain.Boundary{Low: 10, High: 11}, down)
}

func TestRiskRewardZoneTraversal_NoWideningWhenBalanced(t *testing.T) {
	rule := RiskRewardZoneTraversal{ZoneTraversal{Zones: traversalZones, Up: 1, Down: 1}}
	up, down, ok := rule.Targets(30.5, domain.SideLong)
	require.True(t, ok)
	// reward 10.5 vs risk 10.5
	assert.Equal(t, domain.Boundary{Low: 40, High: 41}, up)
	assert.Equal(t, domain.Boundary{Low: 20, High: 21}, down)

	now := time.Now()
	assert.True(t, rule.ShouldExit(openedAt(domain.SideLong, 30.5, 41.2, now), now))
	assert.False(t, rule.ShouldExit(openedAt(domain.SideLong, 30.5, 30, now), now))
}

func TestNewExitRule(t *testing.T) {
	zones := traversalZones

	r, err := NewExitRule(ExitRuleConfig{Kind: ExitTargetStop, TakeProfit: 1, StopLoss: -1}, zones)
	require.NoError(t, err)
	assert.IsType(t, TargetStop{}, r)

	r, err = NewExitRule(ExitRuleConfig{Kind: ExitTargetStopMinute, TakeProfit: 1, StopLoss: -1}, zones)
	require.NoError(t, err)
	assert.IsType(t, TargetStopAtMinuteBoundary{}, r)

	r, err = NewExitRule(ExitRuleConfig{Kind: ExitTimeExhaustion, MaxAge: time.Hour}, zones)
	require.NoError(t, err)
	assert.IsType(t, TimeExhaustion{}, r)

	r, err = NewExitRule(ExitRuleConfig{Kind: ExitZoneTraversal, UpLevels: 1, DownLevels: 1}, zones)
	require.NoError(t, err)
	assert.IsType(t, ZoneTraversal{}, r)

	r, err = NewExitRule(ExitRuleConfig{Kind: ExitRiskRewardTraversal, UpLevels: 1, DownLevels: 1}, zones)
	require.NoError(t, err)
	assert.IsType(t, RiskRewardZoneTraversal{}, r)
	assert.NotEmpty(t, r.Name())

	_, err = NewExitRule(ExitRuleConfig{Kind: ExitTimeExhaustion}, zones)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewExitRule(ExitRuleConfig{Kind: "trailing"}, zones)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
