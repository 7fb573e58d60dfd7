package service

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// IChainScanner чтение цепочки: входящие переводы и точечная проверка подписи
type IChainScanner interface {
	// RecentIncoming последние входящие переводы на кошелёк.
	// Перевод входящий строго когда баланс кошелька вырос в этой транзакции;
	// упавшие на цепочке транзакции отфильтрованы до детального разбора.
	RecentIncoming(ctx context.Context, wallet string, limit int) ([]domain.Transfer, error)

	// Verify возвращает подтверждение транзакции либо nil, если её нет или она упала
	Verify(ctx context.Context, signature string) (*domain.TransferConfirmation, error)
}

// ITransferSender исходящие переводы с общего кошелька
type ITransferSender interface {
	// Balance текущий баланс кошелька в SOL
	Balance(ctx context.Context, wallet string) (decimal.Decimal, error)

	// Send отправляет amount SOL на адрес, ждёт подтверждения ограниченное время.
	// Возвращает подпись транзакции.
	Send(ctx context.Context, to string, amount decimal.Decimal) (string, error)
}
