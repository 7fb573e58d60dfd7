package repository

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// IProcessedTxRepo журнал использованных подписей транзакций
type IProcessedTxRepo interface {
	Exists(ctx context.Context, signature string) (bool, error)
	GetBySignature(ctx context.Context, signature string) (*domain.ProcessedTransaction, error)
}
