package processedTxRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/shop-bot/internal/ports/repository"
)

type processedTxColumns struct {
	TableName   string
	Signature   string
	PaymentID   string
	Amount      string
	ProcessedAt string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns processedTxColumns
}

// New создаёт новый репозиторий журнала обработанных транзакций.
// Запись в журнал идёт только через IIntentRepo.ConfirmProcessed, здесь только чтение.
func New(db persistence.Persistence, log *slog.Logger) ports.IProcessedTxRepo {
	cols := processedTxColumns{
		TableName:   "processed_transactions",
		Signature:   "signature",
		PaymentID:   "payment_id",
		Amount:      "amount",
		ProcessedAt: "processed_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// Exists проверяет, занята ли подпись транзакции
func (r *Repository) Exists(ctx context.Context, signature string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)`,
		r.columns.TableName,
		r.columns.Signature,
	)

	var exists bool
	err := r.db.Get(ctx, &exists, query, signature)
	if err != nil {
		r.Log.Error("failed to check processed transaction",
			"error", err,
			"signature", signature,
		)
		return false, fmt.Errorf("failed to check processed transaction: %w", err)
	}

	return exists, nil
}

// GetBySignature получает запись об обработанной транзакции
func (r *Repository) GetBySignature(ctx context.Context, signature string) (*domain.ProcessedTransaction, error) {
	var tx domain.ProcessedTransaction

	query := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s WHERE %s = $1`,
		r.columns.Signature,
		r.columns.PaymentID,
		r.columns.Amount,
		r.columns.ProcessedAt,
		r.columns.TableName,
		r.columns.Signature,
	)

	err := r.db.Get(ctx, &tx, query, signature)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.Log.Error("failed to get processed transaction",
			"error", err,
			"signature", signature,
		)
		return nil, fmt.Errorf("failed to get processed transaction: %w", err)
	}

	return &tx, nil
}
