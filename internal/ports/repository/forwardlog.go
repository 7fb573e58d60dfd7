package repository

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// IForwardLogRepo append-only журнал попыток сплит-форвардинга
type IForwardLogRepo interface {
	Append(ctx context.Context, entry *domain.ForwardingLogEntry) error
	ListByPaymentID(ctx context.Context, paymentID string) ([]domain.ForwardingLogEntry, error)
}
