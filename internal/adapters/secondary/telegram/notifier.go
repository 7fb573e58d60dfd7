package telegram

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
)

// Notifier уведомления покупателю через Telegram.
// Реализует service.INotifierService.
type Notifier struct {
	client *Client
}

// NewNotifier создаёт новый нотификатор поверх Telegram-клиента
func NewNotifier(client *Client) service.INotifierService {
	return &Notifier{client: client}
}

// Notify отправляет покупателю текстовое сообщение с HTML-разметкой
func (n *Notifier) Notify(ctx context.Context, userID int64, message string) error {
	return n.client.SendMessageHTML(ctx, userID, message)
}

// NotifyMedia отправляет файл методом по его типу.
// Неизвестный тип уходит как фото.
func (n *Notifier) NotifyMedia(ctx context.Context, userID int64, mediaType string, data []byte, caption string) error {
	switch mediaType {
	case "video":
		return n.client.SendVideo(ctx, userID, data, caption)
	case "gif":
		return n.client.SendAnimation(ctx, userID, data, caption)
	default:
		return n.client.SendPhoto(ctx, userID, data, caption)
	}
}
