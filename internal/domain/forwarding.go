package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ForwardingLogEntry запись одной попытки сплит-форвардинга с общего кошелька.
// Append-only журнал: пишется вне зависимости от исхода обеих ног.
type ForwardingLogEntry struct {
	ID               uuid.UUID       `db:"id"`
	PaymentID        string          `db:"payment_id"`
	SourceSignature  string          `db:"source_signature"`
	WalletAAmount    decimal.Decimal `db:"wallet_a_amount"`
	WalletASignature *string         `db:"wallet_a_signature"`
	WalletBAmount    decimal.Decimal `db:"wallet_b_amount"`
	WalletBSignature *string         `db:"wallet_b_signature"`
	Success          bool            `db:"success"`
	ForwardedAt      time.Time       `db:"forwarded_at"`
}

// ForwardResult исход форвардинга по обеим ногам.
// Форвард успешен только когда обе ноги прошли.
type ForwardResult struct {
	WalletA bool
	WalletB bool
}

// Complete обе ноги прошли
func (r ForwardResult) Complete() bool {
	return r.WalletA && r.WalletB
}

// Partial ровно одна нога прошла: худший исход, требует ручной сверки
func (r ForwardResult) Partial() bool {
	return r.WalletA != r.WalletB
}
