package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"go.uber.org/zap"
)

// Telegram mirrors entries, exits and snapshots into a single chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegram connects the bot. An empty endpoint uses the public Bot API.
func NewTelegram(token string, chatID int64, endpoint string, logger *zap.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("%w: telegram token and chat id are required", domain.ErrConfiguration)
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	logger.Info("Telegram bot connected", zap.String("username", api.Self.UserName))

	return &Telegram{api: api, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) SendEntry(ctx context.Context, zscoreTable, infoTable string, side domain.Side) error {
	return t.send(fmt.Sprintf("*New Entry* (%s)\n```\n%s\n\n%s\n```", side, zscoreTable, infoTable))
}

func (t *Telegram) SendExit(ctx context.Context, strategyLabel, symbol string, pct, cumulativePct float64) error {
	return t.send(fmt.Sprintf("*Exit*\n```\n%s\n```", ExitTable(strategyLabel, symbol, pct, cumulativePct)))
}

func (t *Telegram) SendSnapshot(ctx context.Context, strategy, table string) error {
	return t.send(fmt.Sprintf("*Book %s*\n```\n%s\n```", strategy, table))
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("%w: telegram: %v", domain.ErrTransientNetwork, err)
	}
	return nil
}
