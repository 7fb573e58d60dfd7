package repository

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// ProductMedia артефакт товара в объектном хранилище
type ProductMedia struct {
	ProductID int64  `db:"product_id"`
	MediaType string `db:"media_type"` // photo | video | gif
	ObjectKey string `db:"object_key"`
}

// FinalizeResult итог транзакции финализации покупки
type FinalizeResult struct {
	ProductIDs []int64
	TotalPaid  decimal.Decimal // EUR, после реселлерских скидок
}

// IInventoryRepo склад, покупки, промокоды и корзины — всё, чего касается оплата
type IInventoryRepo interface {
	// Finalize одна транзакция БД: перепроверяет остатки всех позиций (всё или
	// ничего), списывает по штуке на позицию, пишет строки покупок, условно
	// инкрементирует счётчик промокода (никогда не выше max_uses), чистит корзину.
	Finalize(ctx context.Context, userID int64, basket domain.BasketSnapshot, discountCode *string) (*FinalizeResult, error)

	// Unreserve возвращает зарезервированный остаток позиций корзины.
	// Безопасно к повторам: резерв не уходит в минус.
	Unreserve(ctx context.Context, basket domain.BasketSnapshot) error

	// ProductMedia артефакты товаров для доставки покупателю
	ProductMedia(ctx context.Context, productIDs []int64) ([]ProductMedia, error)

	// DeleteProducts удаляет проданные товары и их медиа-записи.
	// Вызывается только после успешной доставки: товар потреблён.
	DeleteProducts(ctx context.Context, productIDs []int64) error
}
