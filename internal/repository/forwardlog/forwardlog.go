package forwardLogRepo

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/shop-bot/internal/ports/repository"
)

type forwardLogColumns struct {
	TableName        string
	ID               string
	PaymentID        string
	SourceSignature  string
	WalletAAmount    string
	WalletASignature string
	WalletBAmount    string
	WalletBSignature string
	Success          string
	ForwardedAt      string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns forwardLogColumns
}

// New создаёт новый репозиторий журнала форвардинга
func New(db persistence.Persistence, log *slog.Logger) ports.IForwardLogRepo {
	cols := forwardLogColumns{
		TableName:        "forwarding_log",
		ID:               "id",
		PaymentID:        "payment_id",
		SourceSignature:  "source_signature",
		WalletAAmount:    "wallet_a_amount",
		WalletASignature: "wallet_a_signature",
		WalletBAmount:    "wallet_b_amount",
		WalletBSignature: "wallet_b_signature",
		Success:          "success",
		ForwardedAt:      "forwarded_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (9 полей)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.PaymentID,
		r.columns.SourceSignature,
		r.columns.WalletAAmount,
		r.columns.WalletASignature,
		r.columns.WalletBAmount,
		r.columns.WalletBSignature,
		r.columns.Success,
		r.columns.ForwardedAt,
	)
}

// Append добавляет запись о попытке форвардинга.
// Журнал append-only: записи не обновляются и не удаляются.
func (r *Repository) Append(ctx context.Context, entry *domain.ForwardingLogEntry) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.columns.TableName,
		r.allColumns(),
	)

	err := r.db.Exec(ctx, query,
		entry.ID,
		entry.PaymentID,
		entry.SourceSignature,
		entry.WalletAAmount,
		entry.WalletASignature,
		entry.WalletBAmount,
		entry.WalletBSignature,
		entry.Success,
		entry.ForwardedAt,
	)
	if err != nil {
		r.Log.Error("failed to append forwarding log entry",
			"error", err,
			"payment_id", entry.PaymentID,
			"source_signature", entry.SourceSignature,
		)
		return fmt.Errorf("failed to append forwarding log entry: %w", err)
	}

	r.Log.Debug("forwarding log entry appended",
		"payment_id", entry.PaymentID,
		"success", entry.Success,
	)
	return nil
}

// ListByPaymentID получает все попытки форвардинга по платежу
func (r *Repository) ListByPaymentID(ctx context.Context, paymentID string) ([]domain.ForwardingLogEntry, error) {
	var entries []domain.ForwardingLogEntry

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s ASC`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.PaymentID,
		r.columns.ForwardedAt,
	)

	err := r.db.Select(ctx, &entries, query, paymentID)
	if err != nil {
		r.Log.Error("failed to list forwarding log entries",
			"error", err,
			"payment_id", paymentID,
		)
		return nil, fmt.Errorf("failed to list forwarding log entries: %w", err)
	}

	return entries, nil
}
