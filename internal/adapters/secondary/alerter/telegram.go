package alerter

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/telegram"
)

// Client доставляет операторские алерты платёжного контура в отдельный
// Telegram-чат или топик форума. Транспорт переиспользует соседний
// telegram-адаптер: свой HTTP-клиент ради одного метода Bot API не нужен.
type Client struct {
	tg       *telegram.Client
	chatID   int64
	threadID *int64
	log      *slog.Logger
}

// NewClient создаёт клиент канала алертов. Без конфигурации возвращает nil:
// алерты молча выключены, платёжный контур работает без них.
func NewClient(cfg *Config, log *slog.Logger) *Client {
	if cfg == nil || cfg.BotToken == "" {
		return nil
	}

	return &Client{
		tg:       telegram.NewClient(cfg.BotToken, log),
		chatID:   cfg.ChatID,
		threadID: cfg.MessageThreadID,
		log:      log,
	}
}

// SendAlert отправляет сообщение оператору с единым префиксом канала
func (c *Client) SendAlert(ctx context.Context, message string) error {
	if c == nil || c.tg == nil {
		return fmt.Errorf("alerter client is not initialized")
	}

	_, err := c.tg.SendMessageWithRequest(ctx, telegram.SendMessageRequest{
		ChatID:          c.chatID,
		Text:            "🚨 " + message,
		MessageThreadID: c.threadID,
	})
	if err != nil {
		c.log.Warn("failed to send alert",
			"error", err,
			"chat_id", c.chatID,
			"message_thread_id", c.threadID,
		)
		return fmt.Errorf("failed to send alert: %w", err)
	}

	return nil
}
