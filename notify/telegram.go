package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/pkg/errors"
)

type TelegramConfig struct {
	Token  string
	ChatID string

	// ServerURL overrides the Bot API endpoint.
	ServerURL string
}

// Telegram sends notifications to a single chat through the Bot API.
type Telegram struct {
	bot    *bot.Bot
	chatID string
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == "" {
		return nil, errors.New("telegram: token and chat id are required")
	}

	opts := []bot.Option{bot.WithSkipGetMe()}
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.ServerURL))
	}
	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "telegram: create bot")
	}
	return &Telegram{bot: b, chatID: cfg.ChatID}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Notify(ctx context.Context, subject, body string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   fmt.Sprintf("%s\n\n%s", subject, body),
	})
	if err != nil {
		return errors.Wrap(err, "telegram: send message")
	}
	return nil
}
