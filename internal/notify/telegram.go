// Package notify holds outbound alert sinks.
package notify

import (
	"context"
	"fmt"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/alerts"
)

// Telegram delivers alerts to a Telegram chat. Credentials come from the
// environment so the config file stays free of secrets.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramFromEnv builds a Telegram notifier from TELEGRAM_BOT_TOKEN and
// the chat-id environment variable named in config.
func NewTelegramFromEnv(chatEnv string) (*Telegram, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	rawChat := os.Getenv(chatEnv)
	if rawChat == "" {
		return nil, fmt.Errorf("%s not set", chatEnv)
	}
	chatID, err := strconv.ParseInt(rawChat, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id in %s: %w", chatEnv, err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth failed: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("Telegram notifier connected")
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Send posts the rendered alert text to the configured chat.
func (t *Telegram) Send(ctx context.Context, payload alerts.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, payload.Text())
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Console logs alerts locally; the default sink when Telegram is not
// configured.
type Console struct{}

func (Console) Name() string { return "console" }

func (Console) Send(_ context.Context, payload alerts.Payload) error {
	log.Info().
		Str("mint", payload.Mint).
		Str("symbol", payload.Symbol).
		Float64("score", payload.Score).
		Str("tier", payload.Tier).
		Str("pump_fun", payload.Links.PumpFun).
		Msg("🚨 " + payload.Text())
	return nil
}
