package service

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// IEventProducer публикация событий платёжного контура для внешних потребителей
// (аналитика, сверка). Потеря события не фатальна для оплаты: публикация
// best-effort, после коммита.
type IEventProducer interface {
	PublishPurchaseConfirmed(ctx context.Context, intent *domain.PaymentIntent, signature string) error
	PublishForwardCompleted(ctx context.Context, entry *domain.ForwardingLogEntry) error
}
