package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

type TelegramConfig struct {
	Token   string
	ChatID  int64
	Timeout time.Duration
}

// TelegramChannel mirrors the reminder into a Telegram chat.
type TelegramChannel struct {
	bot    *tele.Bot
	chatID int64
}

func NewTelegramChannel(cfg TelegramConfig) (*TelegramChannel, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram: token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram: chat id is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	// Offline skips the getMe probe so construction never touches the network.
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	return &TelegramChannel{bot: bot, chatID: cfg.ChatID}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, msg Message) (string, error) {
	text := "<b>" + msg.Subject + "</b>\n\n" + msg.HTML
	sent, err := c.bot.Send(&tele.Chat{ID: c.chatID}, text, tele.ModeHTML)
	if err != nil {
		return "", fmt.Errorf("telegram: send failed: %w", err)
	}
	return strconv.Itoa(sent.ID), nil
}
