package intentRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/shop-bot/internal/ports/repository"
	"github.com/shopspring/decimal"
)

type intentColumns struct {
	TableName      string
	PaymentID      string
	UserID         string
	ExpectedAmount string
	Destination    string
	BasketSnapshot string
	DiscountCode   string
	Status         string
	TxSignature    string
	CreatedAt      string
	ExpiresAt      string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns intentColumns
}

// New создаёт новый репозиторий платёжных интентов
func New(db persistence.Persistence, log *slog.Logger) ports.IIntentRepo {
	cols := intentColumns{
		TableName:      "pending_payments",
		PaymentID:      "payment_id",
		UserID:         "user_id",
		ExpectedAmount: "expected_amount",
		Destination:    "destination",
		BasketSnapshot: "basket_snapshot",
		DiscountCode:   "discount_code",
		Status:         "status",
		TxSignature:    "tx_signature",
		CreatedAt:      "created_at",
		ExpiresAt:      "expires_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (10 полей)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.PaymentID,
		r.columns.UserID,
		r.columns.ExpectedAmount,
		r.columns.Destination,
		r.columns.BasketSnapshot,
		r.columns.DiscountCode,
		r.columns.Status,
		r.columns.TxSignature,
		r.columns.CreatedAt,
		r.columns.ExpiresAt,
	)
}

// Create создаёт новый платёжный интент
func (r *Repository) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	basketValue, err := intent.Basket.Value()
	if err != nil {
		r.Log.Error("failed to marshal basket snapshot",
			"error", err,
			"payment_id", intent.PaymentID,
		)
		return fmt.Errorf("failed to marshal basket snapshot: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.columns.TableName,
		r.allColumns(),
	)

	err = r.db.Exec(ctx, query,
		intent.PaymentID,
		intent.UserID,
		intent.ExpectedAmount,
		string(intent.Destination),
		basketValue,
		intent.DiscountCode,
		string(intent.Status),
		intent.TxSignature,
		intent.CreatedAt,
		intent.ExpiresAt,
	)
	if err != nil {
		r.Log.Error("failed to create payment intent",
			"error", err,
			"payment_id", intent.PaymentID,
			"user_id", intent.UserID,
		)
		return fmt.Errorf("failed to create payment intent: %w", err)
	}

	r.Log.Debug("payment intent created",
		"payment_id", intent.PaymentID,
		"user_id", intent.UserID,
		"expected_amount", intent.ExpectedAmount,
	)
	return nil
}

// GetByID получает интент по payment_id
func (r *Repository) GetByID(ctx context.Context, paymentID string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.PaymentID,
	)

	err := r.db.Get(ctx, &intent, query, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIntentNotFound
		}
		r.Log.Error("failed to get payment intent",
			"error", err,
			"payment_id", paymentID,
		)
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	return &intent, nil
}

// ListByStatus получает все интенты в заданном статусе, от старых к новым
func (r *Repository) ListByStatus(ctx context.Context, status domain.IntentStatus) ([]domain.PaymentIntent, error) {
	var intents []domain.PaymentIntent

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s ASC`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.Status,
		r.columns.CreatedAt,
	)

	err := r.db.Select(ctx, &intents, query, string(status))
	if err != nil {
		r.Log.Error("failed to list payment intents",
			"error", err,
			"status", status,
		)
		return nil, fmt.Errorf("failed to list payment intents: %w", err)
	}

	return intents, nil
}

// TransitionStatus условный переход статуса интента.
// UPDATE применяется только если текущий статус равен from, результат читается
// по количеству затронутых строк. Проигравший гонку воркер получает false.
func (r *Repository) TransitionStatus(ctx context.Context, paymentID string, from, to domain.IntentStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("illegal status transition %s -> %s", from, to)
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $1, updated_at = NOW() WHERE %s = $2 AND %s = $3`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.PaymentID,
		r.columns.Status,
	)

	affected, err := r.db.ExecWithResult(ctx, query, string(to), paymentID, string(from))
	if err != nil {
		r.Log.Error("failed to transition intent status",
			"error", err,
			"payment_id", paymentID,
			"from", from,
			"to", to,
		)
		return false, fmt.Errorf("failed to transition intent status: %w", err)
	}

	if affected == 0 {
		r.Log.Debug("intent status transition skipped",
			"payment_id", paymentID,
			"from", from,
			"to", to,
		)
		return false, nil
	}

	r.Log.Debug("intent status transitioned",
		"payment_id", paymentID,
		"from", from,
		"to", to,
	)
	return true, nil
}

// ConfirmProcessed атомарно занимает подпись транзакции и подтверждает интент.
// Вставка в processed_transactions и переход processing→confirmed идут в одной
// транзакции БД: либо подпись записана и интент подтверждён, либо ничего.
func (r *Repository) ConfirmProcessed(ctx context.Context, paymentID, signature string, amount decimal.Decimal) (bool, error) {
	confirmed := false

	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		insertQuery := `
			INSERT INTO processed_transactions (signature, payment_id, amount, processed_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (signature) DO NOTHING
		`
		inserted, err := tx.ExecWithResult(ctx, insertQuery, signature, paymentID, amount)
		if err != nil {
			return fmt.Errorf("failed to record processed transaction: %w", err)
		}
		if inserted == 0 {
			// Подпись уже занята: двойного зачисления не будет
			return domain.ErrAlreadyProcessed
		}

		updateQuery := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, updated_at = NOW() WHERE %s = $3 AND %s = $4`,
			r.columns.TableName,
			r.columns.Status,
			r.columns.TxSignature,
			r.columns.PaymentID,
			r.columns.Status,
		)
		updated, err := tx.ExecWithResult(ctx, updateQuery,
			string(domain.IntentStatusConfirmed),
			signature,
			paymentID,
			string(domain.IntentStatusProcessing),
		)
		if err != nil {
			return fmt.Errorf("failed to confirm intent: %w", err)
		}
		if updated == 0 {
			return fmt.Errorf("intent %s is not in processing status", paymentID)
		}

		confirmed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			r.Log.Warn("transaction signature already processed",
				"payment_id", paymentID,
				"signature", signature,
			)
			return false, nil
		}
		r.Log.Error("failed to confirm processed transaction",
			"error", err,
			"payment_id", paymentID,
			"signature", signature,
		)
		return false, err
	}

	r.Log.Info("payment intent confirmed",
		"payment_id", paymentID,
		"signature", signature,
		"amount", amount,
	)
	return confirmed, nil
}

// RevertStale возвращает в pending интенты, застрявшие в processing или failed.
// Страховка от упавшего посреди цикла воркера: без неё интент заклинило бы навсегда.
func (r *Repository) RevertStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $1, updated_at = NOW()
		WHERE %s IN ($2, $3) AND updated_at < $4
	`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.Status,
	)

	affected, err := r.db.ExecWithResult(ctx, query,
		string(domain.IntentStatusPending),
		string(domain.IntentStatusProcessing),
		string(domain.IntentStatusFailed),
		olderThan,
	)
	if err != nil {
		r.Log.Error("failed to revert stale intents", "error", err)
		return 0, fmt.Errorf("failed to revert stale intents: %w", err)
	}

	if affected > 0 {
		r.Log.Warn("stale intents reverted to pending", "count", affected)
	}
	return affected, nil
}

// Delete удаляет интент
func (r *Repository) Delete(ctx context.Context, paymentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		r.columns.TableName,
		r.columns.PaymentID,
	)

	err := r.db.Exec(ctx, query, paymentID)
	if err != nil {
		r.Log.Error("failed to delete payment intent",
			"error", err,
			"payment_id", paymentID,
		)
		return fmt.Errorf("failed to delete payment intent: %w", err)
	}

	r.Log.Debug("payment intent deleted", "payment_id", paymentID)
	return nil
}
