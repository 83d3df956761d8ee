package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/notify"
	"github.com/vitos/crypto_liquidation_zones/internal/usecase"
	"gopkg.in/yaml.v3"
)

// Environment overrides for secrets.
const (
	EnvDiscordEntryWebhook = "ACME_DISCORD_ENTRY_WEBHOOK"
	EnvDiscordExitWebhook  = "ACME_DISCORD_EXIT_WEBHOOK"
	EnvTelegramToken       = "ACME_TELEGRAM_TOKEN"
	EnvTelegramChatID      = "ACME_TELEGRAM_CHAT_ID"
)

const (
	DefaultCacheTTLSeconds = 300
	DefaultTradeBookWait   = 300
	DefaultPort            = 8080
	DefaultStoragePath     = "liquidations.db"
)

type Config struct {
	Logging struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"logging"`
	Exchange struct {
		RESTEndpoint      string  `yaml:"rest_endpoint"`
		WSEndpoint        string  `yaml:"ws_endpoint"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"exchange"`
	Filters struct {
		Liquidation float64 `yaml:"liquidation"`
		ZScore      float64 `yaml:"zscore"`
	} `yaml:"filters"`
	ZScore struct {
		Lookback        int      `yaml:"lookback"`
		Timeframes      []string `yaml:"timeframes"`
		CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	} `yaml:"zscore"`
	Entry struct {
		CooldownSeconds int    `yaml:"cooldown_seconds"`
		TradeCap        int    `yaml:"trade_cap"`
		GlobalTradeCap  int    `yaml:"global_trade_cap"`
		KlineInterval   string `yaml:"kline_interval"`
	} `yaml:"entry"`
	ExcludedSymbols []string         `yaml:"excluded_symbols"`
	TradeBookWait   int              `yaml:"trade_book_wait"`
	Strategies      []StrategyConfig `yaml:"strategies"`
	Notifications   struct {
		Discord struct {
			EntryEnabled    bool   `yaml:"entry_enabled"`
			EntryWebhook    string `yaml:"entry_webhook"`
			ExitEnabled     bool   `yaml:"exit_enabled"`
			ExitWebhook     string `yaml:"exit_webhook"`
			SnapshotEnabled bool   `yaml:"snapshot_enabled"`
			SnapshotWebhook string `yaml:"snapshot_webhook"`
		} `yaml:"discord"`
		Telegram struct {
			Enabled  bool   `yaml:"enabled"`
			Token    string `yaml:"token"`
			ChatID   int64  `yaml:"chat_id"`
			Endpoint string `yaml:"endpoint"`
		} `yaml:"telegram"`
	} `yaml:"notifications"`
	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Watchlist struct {
		Symbols         []string `yaml:"symbols"`
		IntervalSeconds int      `yaml:"interval_seconds"`
	} `yaml:"watchlist"`
}

type StrategyConfig struct {
	ID          string         `yaml:"id"`
	Label       string         `yaml:"label"`
	Webhook     string         `yaml:"webhook"`
	Liquidation float64        `yaml:"liquidation"`
	ZScore      float64        `yaml:"zscore"`
	Exit        ExitRuleConfig `yaml:"exit"`
}

type ExitRuleConfig struct {
	Type          string  `yaml:"type"`
	TakeProfit    float64 `yaml:"take_profit"`
	StopLoss      float64 `yaml:"stop_loss"`
	MaxAgeMinutes int     `yaml:"max_age_minutes"`
	UpLevels      int     `yaml:"up_levels"`
	DownLevels    int     `yaml:"down_levels"`
}

// Load reads the YAML file at path, a .env file next to the working directory
// if there is one, applies defaults and env overrides, then validates.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConfiguration, path, err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.ZScore.Lookback == 0 {
		c.ZScore.Lookback = usecase.DefaultLookback
	}
	if c.ZScore.CacheTTLSeconds == 0 {
		c.ZScore.CacheTTLSeconds = DefaultCacheTTLSeconds
	}
	if c.Entry.CooldownSeconds == 0 {
		c.Entry.CooldownSeconds = int(usecase.DefaultEntryCooldown / time.Second)
	}
	if c.Entry.KlineInterval == "" {
		c.Entry.KlineInterval = usecase.DefaultKlineInterval
	}
	if c.TradeBookWait == 0 {
		c.TradeBookWait = DefaultTradeBookWait
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
	}
	for i := range c.Strategies {
		if c.Strategies[i].Label == "" {
			c.Strategies[i].Label = c.Strategies[i].ID
		}
	}
}

func (c *Config) applyEnv() error {
	d := &c.Notifications.Discord
	if v := os.Getenv(EnvDiscordEntryWebhook); v != "" {
		d.EntryWebhook = v
	}
	if v := os.Getenv(EnvDiscordExitWebhook); v != "" {
		d.ExitWebhook = v
	}
	tg := &c.Notifications.Telegram
	if v := os.Getenv(EnvTelegramToken); v != "" {
		tg.Token = v
	}
	if v := os.Getenv(EnvTelegramChatID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a chat id", domain.ErrConfiguration, EnvTelegramChatID, v)
		}
		tg.ChatID = id
	}
	return nil
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, fmt.Sprintf(format, args...))
	}

	if c.Filters.Liquidation <= 0 {
		return fail("filters.liquidation must be positive")
	}
	if c.Filters.ZScore <= 0 {
		return fail("filters.zscore must be positive")
	}
	if len(c.ZScore.Timeframes) == 0 {
		return fail("zscore.timeframes is empty")
	}
	if c.ZScore.Lookback <= 1 {
		return fail("zscore.lookback must be greater than 1")
	}
	if c.Entry.TradeCap <= 0 {
		return fail("entry.trade_cap must be positive")
	}
	if c.Entry.GlobalTradeCap < 0 {
		return fail("entry.global_trade_cap must not be negative")
	}
	if len(c.Strategies) == 0 {
		return fail("no strategies configured")
	}

	seen := make(map[string]bool, len(c.Strategies))
	for _, s := range c.Strategies {
		if s.ID == "" {
			return fail("strategy without id")
		}
		if seen[s.ID] {
			return fail("duplicate strategy id %q", s.ID)
		}
		seen[s.ID] = true
		if _, err := usecase.NewExitRule(s.Exit.toUsecase(), nil); err != nil {
			return fmt.Errorf("strategy %q: %w", s.ID, err)
		}
	}

	d := c.Notifications.Discord
	if d.EntryEnabled && d.EntryWebhook == "" {
		return fail("discord entry webhook enabled without url")
	}
	if d.ExitEnabled && d.ExitWebhook == "" {
		return fail("discord exit webhook enabled without url")
	}
	tg := c.Notifications.Telegram
	if tg.Enabled && (tg.Token == "" || tg.ChatID == 0) {
		return fail("telegram enabled without token or chat id")
	}
	return nil
}

func (e ExitRuleConfig) toUsecase() usecase.ExitRuleConfig {
	return usecase.ExitRuleConfig{
		Kind:       e.Type,
		TakeProfit: e.TakeProfit,
		StopLoss:   e.StopLoss,
		MaxAge:     time.Duration(e.MaxAgeMinutes) * time.Minute,
		UpLevels:   e.UpLevels,
		DownLevels: e.DownLevels,
	}
}

func (c *Config) EntryConfig() usecase.EntryConfig {
	return usecase.EntryConfig{
		LiquidationThreshold: c.Filters.Liquidation,
		ZScoreThreshold:      c.Filters.ZScore,
		Lookback:             c.ZScore.Lookback,
		Timeframes:           c.ZScore.Timeframes,
		Excluded:             c.ExcludedSymbols,
		Cooldown:             time.Duration(c.Entry.CooldownSeconds) * time.Second,
		TradeCap:             c.Entry.TradeCap,
		GlobalTradeCap:       c.Entry.GlobalTradeCap,
		KlineInterval:        c.Entry.KlineInterval,
	}
}

// BuildStrategies binds every configured strategy to its exit rule. Zone
// rules walk the given zones.
func (c *Config) BuildStrategies(zones []domain.Boundary) ([]usecase.Strategy, error) {
	out := make([]usecase.Strategy, 0, len(c.Strategies))
	for _, s := range c.Strategies {
		rule, err := usecase.NewExitRule(s.Exit.toUsecase(), zones)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", s.ID, err)
		}
		out = append(out, usecase.Strategy{
			ID:                   s.ID,
			Label:                s.Label,
			Exit:                 rule,
			LiquidationThreshold: s.Liquidation,
			ZScoreThreshold:      s.ZScore,
		})
	}
	return out, nil
}

func (c *Config) DiscordConfig() notify.DiscordConfig {
	d := c.Notifications.Discord
	hooks := make(map[string]string, len(c.Strategies))
	for _, s := range c.Strategies {
		if s.Webhook != "" {
			hooks[s.ID] = s.Webhook
		}
	}
	return notify.DiscordConfig{
		EntryEnabled:     d.EntryEnabled,
		EntryWebhook:     d.EntryWebhook,
		ExitEnabled:      d.ExitEnabled,
		ExitWebhook:      d.ExitWebhook,
		SnapshotEnabled:  d.SnapshotEnabled,
		SnapshotWebhook:  d.SnapshotWebhook,
		StrategyWebhooks: hooks,
	}
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.ZScore.CacheTTLSeconds) * time.Second
}

func (c *Config) SnapshotEvery() time.Duration {
	return time.Duration(c.TradeBookWait) * time.Second
}

func (c *Config) WatchInterval() time.Duration {
	return time.Duration(c.Watchlist.IntervalSeconds) * time.Second
}
