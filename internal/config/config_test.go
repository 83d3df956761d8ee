package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"github.com/vitos/crypto_liquidation_zones/internal/usecase"
)

const sampleYAML = `
logging:
  level: debug
filters:
  liquidation: 10000
  zscore: 2.5
zscore:
  timeframes: ["1m", "5m", "15m"]
entry:
  trade_cap: 3
excluded_symbols: ["USDCUSDT"]
strategies:
  - id: s1
    label: "TP/SL"
    webhook: https://discord.example/s1
    exit:
      type: target_stop
      take_profit: 0.6
      stop_loss: -0.5
  - id: s2
    liquidation: 50000
    exit:
      type: time_exhaustion
      take_profit: 1
      stop_loss: -1
      max_age_minutes: 30
notifications:
  discord:
    entry_enabled: true
    exit_enabled: true
    snapshot_enabled: true
    snapshot_webhook: https://discord.example/book
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv(EnvDiscordEntryWebhook, "https://discord.example/entry")
	t.Setenv(EnvDiscordExitWebhook, "https://discord.example/exit")
	t.Setenv(EnvTelegramChatID, "12345")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, usecase.DefaultLookback, cfg.ZScore.Lookback)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 300*time.Second, cfg.SnapshotEvery())
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "https://discord.example/entry", cfg.Notifications.Discord.EntryWebhook)
	assert.Equal(t, int64(12345), cfg.Notifications.Telegram.ChatID)
	assert.Equal(t, "s2", cfg.Strategies[1].Label, "label falls back to id")

	entry := cfg.EntryConfig()
	assert.Equal(t, 10000.0, entry.LiquidationThreshold)
	assert.Equal(t, 60*time.Second, entry.Cooldown)
	assert.Equal(t, "1m", entry.KlineInterval)
	assert.Equal(t, []string{"USDCUSDT"}, entry.Excluded)
}

func TestLoad_EnvChatIDMustBeNumeric(t *testing.T) {
	t.Setenv(EnvDiscordEntryWebhook, "https://discord.example/entry")
	t.Setenv(EnvDiscordExitWebhook, "https://discord.example/exit")
	t.Setenv(EnvTelegramChatID, "not-a-number")

	_, err := Load(writeConfig(t, sampleYAML))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoad_UnknownKeyIsConfigurationError(t *testing.T) {
	_, err := Load(writeConfig(t, "filterz: {}\n"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func validConfig() *Config {
	var c Config
	c.Filters.Liquidation = 1000
	c.Filters.ZScore = 2
	c.ZScore.Timeframes = []string{"1m"}
	c.Entry.TradeCap = 1
	c.Strategies = []StrategyConfig{{ID: "s1", Exit: ExitRuleConfig{Type: usecase.ExitTargetStop, TakeProfit: 1, StopLoss: -1}}}
	c.applyDefaults()
	return &c
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing liquidation threshold", func(c *Config) { c.Filters.Liquidation = 0 }},
		{"missing zscore threshold", func(c *Config) { c.Filters.ZScore = 0 }},
		{"empty timeframes", func(c *Config) { c.ZScore.Timeframes = nil }},
		{"lookback too short", func(c *Config) { c.ZScore.Lookback = 1 }},
		{"zero trade cap", func(c *Config) { c.Entry.TradeCap = 0 }},
		{"no strategies", func(c *Config) { c.Strategies = nil }},
		{"duplicate ids", func(c *Config) { c.Strategies = append(c.Strategies, c.Strategies[0]) }},
		{"unknown exit", func(c *Config) { c.Strategies[0].Exit.Type = "moon" }},
		{"time exhaustion without age", func(c *Config) { c.Strategies[0].Exit.Type = usecase.ExitTimeExhaustion }},
		{"entry webhook missing", func(c *Config) { c.Notifications.Discord.EntryEnabled = true }},
		{"exit webhook missing", func(c *Config) { c.Notifications.Discord.ExitEnabled = true }},
		{"telegram without token", func(c *Config) { c.Notifications.Telegram.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), domain.ErrConfiguration)
		})
	}
}

func TestBuildStrategies(t *testing.T) {
	c := validConfig()
	c.Strategies = append(c.Strategies, StrategyConfig{
		ID: "zones", Label: "Zones", ZScore: 3,
		Exit: ExitRuleConfig{Type: usecase.ExitZoneTraversal, UpLevels: 1, DownLevels: 1},
	})
	zones := []domain.Boundary{{Low: 10, High: 11}, {Low: 20, High: 21}}

	strategies, err := c.BuildStrategies(zones)
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.IsType(t, usecase.TargetStop{}, strategies[0].Exit)
	zt, ok := strategies[1].Exit.(usecase.ZoneTraversal)
	require.True(t, ok)
	assert.Equal(t, zones, zt.Zones)
	assert.Equal(t, 3.0, strategies[1].ZScoreThreshold)
}

func TestDiscordConfig_StrategyWebhooks(t *testing.T) {
	c := validConfig()
	c.Strategies[0].Webhook = "https://discord.example/s1"
	c.Strategies = append(c.Strategies, StrategyConfig{ID: "s2"})

	d := c.DiscordConfig()
	assert.Equal(t, map[string]string{"s1": "https://discord.example/s1"}, d.StrategyWebhooks)
}
