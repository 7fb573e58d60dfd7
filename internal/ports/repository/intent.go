package repository

import (
	"context"
	"time"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// IIntentRepo хранилище платёжных интентов
type IIntentRepo interface {
	Create(ctx context.Context, intent *domain.PaymentIntent) error
	GetByID(ctx context.Context, paymentID string) (*domain.PaymentIntent, error)
	ListByStatus(ctx context.Context, status domain.IntentStatus) ([]domain.PaymentIntent, error)

	// TransitionStatus условный переход статуса: применяется только если текущий
	// статус равен from. Возвращает применился ли переход — это единственный
	// механизм взаимного исключения на уровне интента.
	TransitionStatus(ctx context.Context, paymentID string, from, to domain.IntentStatus) (bool, error)

	// ConfirmProcessed атомарно записывает подпись в журнал обработанных транзакций
	// и переводит интент processing→confirmed в одной транзакции БД.
	// Возвращает false без изменений, если подпись уже занята другим интентом.
	ConfirmProcessed(ctx context.Context, paymentID, signature string, amount decimal.Decimal) (bool, error)

	// RevertStale возвращает в pending интенты, застрявшие в processing дольше
	// порога (упавший воркер не должен навсегда заклинить интент).
	RevertStale(ctx context.Context, olderThan time.Time) (int64, error)

	// Delete удаляет интент; только после полного успеха финализации
	Delete(ctx context.Context, paymentID string) error
}
