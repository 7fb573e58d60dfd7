package inventoryRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/shop-bot/internal/ports/repository"
	"github.com/shopspring/decimal"
)

var hundred = decimal.New(100, 0)

type Repository struct {
	db  persistence.Persistence
	Log *slog.Logger
}

// New создаёт новый репозиторий склада и покупок
func New(db persistence.Persistence, log *slog.Logger) ports.IInventoryRepo {
	return &Repository{
		db:  db,
		Log: log,
	}
}

// Finalize списывает товары корзины и записывает покупки в одной транзакции БД.
// Всё или ничего: если хотя бы одна позиция кончилась, транзакция откатывается
// целиком и остатки не трогаются.
func (r *Repository) Finalize(ctx context.Context, userID int64, basket domain.BasketSnapshot, discountCode *string) (*ports.FinalizeResult, error) {
	result := &ports.FinalizeResult{
		ProductIDs: make([]int64, 0, len(basket)),
		TotalPaid:  decimal.Zero,
	}

	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		codePercent, err := r.lockDiscountCode(ctx, tx, discountCode)
		if err != nil {
			return err
		}

		for _, item := range basket {
			decrementQuery := `
				UPDATE products
				SET available = available - 1,
				    reserved = GREATEST(reserved - 1, 0)
				WHERE id = $1 AND available > 0
			`
			affected, err := tx.ExecWithResult(ctx, decrementQuery, item.ProductID)
			if err != nil {
				return fmt.Errorf("failed to decrement stock for product %d: %w", item.ProductID, err)
			}
			if affected == 0 {
				r.Log.Warn("basket item out of stock at finalize",
					"user_id", userID,
					"product_id", item.ProductID,
				)
				return domain.ErrOutOfStock
			}

			resellerPercent, err := r.resellerPercent(ctx, tx, userID, item.ProductType)
			if err != nil {
				return err
			}

			pricePaid := item.Price
			if resellerPercent.IsPositive() {
				pricePaid = pricePaid.Mul(hundred.Sub(resellerPercent)).Div(hundred)
			}
			if codePercent.IsPositive() {
				pricePaid = pricePaid.Mul(hundred.Sub(codePercent)).Div(hundred)
			}
			pricePaid = pricePaid.Round(2)

			purchaseQuery := `
				INSERT INTO purchases (user_id, product_id, product_name, product_type, product_size, price_paid, city, district, purchase_date)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			`
			err = tx.Exec(ctx, purchaseQuery,
				userID,
				item.ProductID,
				item.Name,
				item.ProductType,
				item.Size,
				pricePaid,
				item.City,
				item.District,
			)
			if err != nil {
				return fmt.Errorf("failed to record purchase for product %d: %w", item.ProductID, err)
			}

			result.ProductIDs = append(result.ProductIDs, item.ProductID)
			result.TotalPaid = result.TotalPaid.Add(pricePaid)
		}

		if discountCode != nil {
			if err := r.consumeDiscountCode(ctx, tx, *discountCode); err != nil {
				return err
			}
		}

		userQuery := `
			UPDATE users
			SET basket = '', total_purchases = total_purchases + $1
			WHERE user_id = $2
		`
		if err := tx.Exec(ctx, userQuery, len(basket), userID); err != nil {
			return fmt.Errorf("failed to update user after purchase: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOutOfStock) {
			return nil, err
		}
		r.Log.Error("failed to finalize purchase",
			"error", err,
			"user_id", userID,
		)
		return nil, err
	}

	r.Log.Info("purchase finalized",
		"user_id", userID,
		"products", len(result.ProductIDs),
		"total_paid", result.TotalPaid,
	)
	return result, nil
}

// lockDiscountCode читает процент промокода с блокировкой строки.
// Исчерпанный промокод не роняет оплату, просто не даёт скидку.
func (r *Repository) lockDiscountCode(ctx context.Context, tx persistence.Transaction, code *string) (decimal.Decimal, error) {
	if code == nil {
		return decimal.Zero, nil
	}

	var percent decimal.Decimal
	query := `
		SELECT percent FROM discount_codes
		WHERE code = $1 AND (max_uses IS NULL OR uses_count < max_uses)
		FOR UPDATE
	`
	err := tx.Get(ctx, &percent, query, *code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("discount code invalid or exhausted", "code", *code)
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get discount code: %w", err)
	}

	return percent, nil
}

// consumeDiscountCode инкрементирует счётчик использований, не превышая max_uses
func (r *Repository) consumeDiscountCode(ctx context.Context, tx persistence.Transaction, code string) error {
	query := `
		UPDATE discount_codes
		SET uses_count = uses_count + 1
		WHERE code = $1 AND (max_uses IS NULL OR uses_count < max_uses)
	`
	if err := tx.Exec(ctx, query, code); err != nil {
		return fmt.Errorf("failed to consume discount code: %w", err)
	}
	return nil
}

// resellerPercent возвращает персональную скидку пользователя на тип товара
func (r *Repository) resellerPercent(ctx context.Context, tx persistence.Transaction, userID int64, productType string) (decimal.Decimal, error) {
	var percent decimal.Decimal
	query := `
		SELECT percent FROM reseller_discounts
		WHERE user_id = $1 AND product_type = $2
	`
	err := tx.Get(ctx, &percent, query, userID, productType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get reseller discount: %w", err)
	}
	return percent, nil
}

// Unreserve возвращает зарезервированный остаток позиций корзины.
// GREATEST не даёт резерву уйти в минус при повторном вызове.
func (r *Repository) Unreserve(ctx context.Context, basket domain.BasketSnapshot) error {
	query := `
		UPDATE products
		SET reserved = GREATEST(reserved - 1, 0)
		WHERE id = $1
	`

	for _, item := range basket {
		if err := r.db.Exec(ctx, query, item.ProductID); err != nil {
			r.Log.Error("failed to unreserve product",
				"error", err,
				"product_id", item.ProductID,
			)
			return fmt.Errorf("failed to unreserve product %d: %w", item.ProductID, err)
		}
	}

	return nil
}

// ProductMedia получает артефакты товаров для доставки покупателю
func (r *Repository) ProductMedia(ctx context.Context, productIDs []int64) ([]ports.ProductMedia, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	var media []ports.ProductMedia
	query := `
		SELECT product_id, media_type, object_key
		FROM product_media
		WHERE product_id = ANY($1)
		ORDER BY product_id, id
	`

	err := r.db.Select(ctx, &media, query, productIDs)
	if err != nil {
		r.Log.Error("failed to get product media", "error", err)
		return nil, fmt.Errorf("failed to get product media: %w", err)
	}

	return media, nil
}

// DeleteProducts удаляет проданные товары, медиа-записи каскадом.
// Только после успешной доставки покупателю.
func (r *Repository) DeleteProducts(ctx context.Context, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}

	err := r.db.Exec(ctx, `DELETE FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		r.Log.Error("failed to delete sold products", "error", err)
		return fmt.Errorf("failed to delete sold products: %w", err)
	}

	r.Log.Debug("sold products deleted", "count", len(productIDs))
	return nil
}
