package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// IntentStatus статус платёжного интента
type IntentStatus string

const (
	IntentStatusPending    IntentStatus = "pending"    // создан, ждём перевод на кошелёк
	IntentStatusProcessing IntentStatus = "processing" // транзитный лок: интент захвачен воркером
	IntentStatusConfirmed  IntentStatus = "confirmed"  // перевод найден и записан
	IntentStatusFailed     IntentStatus = "failed"     // форвардинг не прошёл, вернётся в pending свипом
	IntentStatusExpired    IntentStatus = "expired"    // истёк срок оплаты
	IntentStatusCancelled  IntentStatus = "cancelled"  // отменён пользователем
)

// CanTransition проверяет допустимость перехода статуса.
// Машина статусов строгая: pending→processing→confirmed,
// processing→failed→pending (восстановление свипом), pending→expired, pending→cancelled.
func (s IntentStatus) CanTransition(to IntentStatus) bool {
	switch s {
	case IntentStatusPending:
		return to == IntentStatusProcessing || to == IntentStatusExpired || to == IntentStatusCancelled
	case IntentStatusProcessing:
		return to == IntentStatusConfirmed || to == IntentStatusFailed || to == IntentStatusPending
	case IntentStatusFailed:
		return to == IntentStatusPending
	default:
		return false
	}
}

// WalletTag тег выплаты на позиции корзины
type WalletTag string

const (
	WalletTagA     WalletTag = "walletA"
	WalletTagB     WalletTag = "walletB"
	WalletTagSplit WalletTag = "split" // выручка делится между A и B через общий кошелёк
)

// WalletDest кошелёк-получатель всего заказа
type WalletDest string

const (
	WalletDestA      WalletDest = "walletA"
	WalletDestB      WalletDest = "walletB"
	WalletDestShared WalletDest = "shared" // промежуточный кошелёк с автофорвардингом
)

// BasketItem неизменяемая копия позиции корзины на момент создания платежа.
// Снимок, не живая ссылка: правки каталога не влияют на идущую оплату.
type BasketItem struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"name"`
	ProductType  string          `json:"product_type"`
	Size         string          `json:"size"`
	City         string          `json:"city"`
	District     string          `json:"district"`
	Price        decimal.Decimal `json:"price"` // цена в EUR на момент снимка
	PayoutWallet WalletTag       `json:"payout_wallet"`
	PickupText   string          `json:"pickup_text,omitempty"`
}

// BasketSnapshot снимок корзины (JSONB) с поддержкой sql.Scanner
type BasketSnapshot []BasketItem

// Scan реализует sql.Scanner для сканирования JSONB из БД
func (b *BasketSnapshot) Scan(value interface{}) error {
	if value == nil {
		*b = BasketSnapshot{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*b = BasketSnapshot{}
		return nil
	}

	if len(bytes) == 0 {
		*b = BasketSnapshot{}
		return nil
	}

	return json.Unmarshal(bytes, b)
}

// Value реализует driver.Valuer для сохранения в БД
func (b BasketSnapshot) Value() (driver.Value, error) {
	if len(b) == 0 {
		return "[]", nil
	}
	return json.Marshal(b)
}

// ProductIDs возвращает ID всех товаров снимка
func (b BasketSnapshot) ProductIDs() []int64 {
	ids := make([]int64, 0, len(b))
	for _, item := range b {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// PaymentIntent ожидаемый платёж: конкретная сумма SOL на конкретный кошелёк за снимок корзины
type PaymentIntent struct {
	PaymentID      string          `json:"payment_id" db:"payment_id"`
	UserID         int64           `json:"user_id" db:"user_id"`
	ExpectedAmount decimal.Decimal `json:"expected_amount" db:"expected_amount"` // SOL, 6 знаков после запятой
	Destination    WalletDest      `json:"destination" db:"destination"`
	Basket         BasketSnapshot  `json:"basket_snapshot" db:"basket_snapshot"`
	DiscountCode   *string         `json:"discount_code,omitempty" db:"discount_code"`
	Status         IntentStatus    `json:"status" db:"status"`
	TxSignature    *string         `json:"tx_signature,omitempty" db:"tx_signature"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at" db:"expires_at"`
}

// Expired истёк ли срок оплаты
func (p *PaymentIntent) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// NewPaymentID генерирует ID интента: SOL_<user>_<unix>_<hex6>.
// Владелец и время вшиты в ID для отладки по логам.
func NewPaymentID(userID int64, now time.Time) string {
	micros := now.UnixMicro()
	return fmt.Sprintf("SOL_%d_%d_%06x", userID, now.Unix(), micros&0xffffff)
}

// AmountOffset возвращает случайную субъединичную добавку к сумме интента,
// равномерно из [0.000001, 0.000099] SOL. Добавка делает суммы одновременных
// покупателей одного товара различимыми на цепочке; допуск матчинга (0.1%)
// рассчитан на этот диапазон и должен меняться вместе с ним.
func AmountOffset() decimal.Decimal {
	n := rand.Intn(99) + 1
	return decimal.New(int64(n), -6)
}
