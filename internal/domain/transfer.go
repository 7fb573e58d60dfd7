package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lamports в одном SOL
const LamportsPerSOL = 1_000_000_000

// Transfer входящий перевод на отслеживаемый кошелёк.
// Перевод считается входящим строго когда баланс кошелька вырос
// между pre- и post-состоянием транзакции.
type Transfer struct {
	Signature string
	Amount    decimal.Decimal // SOL
	BlockTime time.Time
	Confirmed bool
}

// TransferConfirmation результат точечной проверки транзакции по подписи
type TransferConfirmation struct {
	Signature string
	Slot      uint64
	BlockTime time.Time
}

// ProcessedTransaction запись об использованной подписи транзакции.
// Подпись встречается во всей системе не более одного раза: это главная
// защита от двойного зачисления одного перевода.
type ProcessedTransaction struct {
	Signature   string          `db:"signature"`
	PaymentID   string          `db:"payment_id"`
	Amount      decimal.Decimal `db:"amount"`
	ProcessedAt time.Time       `db:"processed_at"`
}

// SOLToLamports переводит сумму SOL в lamports с округлением вниз
func SOLToLamports(amount decimal.Decimal) uint64 {
	lamports := amount.Mul(decimal.New(LamportsPerSOL, 0)).Truncate(0)
	if lamports.Sign() <= 0 {
		return 0
	}
	return uint64(lamports.IntPart())
}

// LamportsToSOL переводит lamports в SOL
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.New(int64(lamports), -9)
}
