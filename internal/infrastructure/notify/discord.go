package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"go.uber.org/zap"
)

const (
	discordUsername = "ACME"
	// Discord rejects message content above 2000 characters.
	discordMaxContent = 2000
)

type DiscordConfig struct {
	EntryEnabled    bool
	EntryWebhook    string
	ExitEnabled     bool
	ExitWebhook     string
	SnapshotEnabled bool
	// SnapshotWebhook receives book snapshots of strategies without their own webhook.
	SnapshotWebhook  string
	StrategyWebhooks map[string]string
}

// Discord posts notifications to Discord webhooks.
type Discord struct {
	cfg    DiscordConfig
	client *http.Client
	logger *zap.Logger
}

func NewDiscord(cfg DiscordConfig, logger *zap.Logger) *Discord {
	return &Discord{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

func (d *Discord) SendEntry(ctx context.Context, zscoreTable, infoTable string, side domain.Side) error {
	if !d.cfg.EntryEnabled {
		return nil
	}
	banner := "🟩 🟩 🟩 BUY 🟩 🟩 🟩"
	if side == domain.SideShort {
		banner = "🟥 🟥 🟥 SELL 🟥 🟥 🟥"
	}
	content := fmt.Sprintf("**New Entry**\n```%s\n\n%s\n\n%s```", zscoreTable, infoTable, banner)
	return d.post(ctx, d.cfg.EntryWebhook, content)
}

func (d *Discord) SendExit(ctx context.Context, strategyLabel, symbol string, pct, cumulativePct float64) error {
	if !d.cfg.ExitEnabled {
		return nil
	}
	content := fmt.Sprintf("**Exit**\n```%s\n```", ExitTable(strategyLabel, symbol, pct, cumulativePct))
	return d.post(ctx, d.cfg.ExitWebhook, content)
}

func (d *Discord) SendSnapshot(ctx context.Context, strategy, table string) error {
	if !d.cfg.SnapshotEnabled {
		return nil
	}
	url := d.cfg.StrategyWebhooks[strategy]
	if url == "" {
		url = d.cfg.SnapshotWebhook
	}
	if url == "" {
		d.logger.Debug("No snapshot webhook for strategy", zap.String("strategy", strategy))
		return nil
	}
	return d.post(ctx, url, fmt.Sprintf("\n```\n%s\n```", table))
}

func (d *Discord) post(ctx context.Context, url, content string) error {
	if url == "" {
		return fmt.Errorf("%w: empty webhook url", domain.ErrConfiguration)
	}
	body, err := json.Marshal(webhookPayload{Content: truncate(content), Username: discordUsername})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: discord webhook: %v", domain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: discord returned status: %d", domain.ErrTransientNetwork, resp.StatusCode)
	}
	return nil
}

// truncate keeps the closing code fence when content must be cut.
func truncate(content string) string {
	if len(content) <= discordMaxContent {
		return content
	}
	const fence = "\n...```"
	cut := content[:discordMaxContent-len(fence)]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + fence
}

// ExitTable renders the body of an exit notification.
func ExitTable(strategyLabel, symbol string, pct, cumulativePct float64) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 4, ' ', 0)
	fmt.Fprintf(w, "Strategy\t%s\n", strategyLabel)
	fmt.Fprintf(w, "Symbol\t%s\n", symbol)
	fmt.Fprintf(w, "Trade\t%.2f%%\n", pct)
	fmt.Fprintf(w, "Cumulative\t%.2f%%\n", cumulativePct)
	w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}
