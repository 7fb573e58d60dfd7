package payment

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/repository"
	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
)

// Matcher цикл сверки: по каждому ожидающему интенту ищет на цепочке входящий
// перевод ожидаемой суммы и доводит совпавший платёж до финализации.
type Matcher struct {
	IntentRepo    repository.IIntentRepo
	ProcessedRepo repository.IProcessedTxRepo
	InventoryRepo repository.IInventoryRepo
	Scanner       service.IChainScanner
	Forwarder     *Forwarder
	Finalizer     *Finalizer
	Notifier      service.INotifierService
	Alerter       service.IAlerterService
	Events        service.IEventProducer
	Cfg           *Config
	Log           *slog.Logger
}

func NewMatcher(
	intentRepo repository.IIntentRepo,
	processedRepo repository.IProcessedTxRepo,
	inventoryRepo repository.IInventoryRepo,
	scanner service.IChainScanner,
	forwarder *Forwarder,
	finalizer *Finalizer,
	notifier service.INotifierService,
	alerter service.IAlerterService,
	events service.IEventProducer,
	cfg *Config,
	log *slog.Logger,
) *Matcher {
	return &Matcher{
		IntentRepo:    intentRepo,
		ProcessedRepo: processedRepo,
		InventoryRepo: inventoryRepo,
		Scanner:       scanner,
		Forwarder:     forwarder,
		Finalizer:     finalizer,
		Notifier:      notifier,
		Alerter:       alerter,
		Events:        events,
		Cfg:           cfg,
		Log:           log,
	}
}

// RunCycle один проход сверки: свип застрявших, затем все ожидающие интенты.
// Ошибка одного интента не прерывает обработку остальных.
func (m *Matcher) RunCycle(ctx context.Context) error {
	if _, err := m.IntentRepo.RevertStale(ctx, time.Now().UTC().Add(-m.Cfg.StallThreshold())); err != nil {
		m.Log.Error("stale intent sweep failed", "error", err)
	}

	pending, err := m.IntentRepo.ListByStatus(ctx, domain.IntentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to list pending intents: %w", err)
	}

	for i := range pending {
		intent := &pending[i]
		if err := m.processIntent(ctx, intent); err != nil {
			m.Log.Error("failed to process payment intent",
				"error", err,
				"payment_id", intent.PaymentID,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}

// processIntent обрабатывает один ожидающий интент
func (m *Matcher) processIntent(ctx context.Context, intent *domain.PaymentIntent) error {
	now := time.Now().UTC()

	if intent.Expired(now) {
		return m.expireIntent(ctx, intent)
	}

	wallet := m.Cfg.AddressFor(intent.Destination)
	transfers, err := m.Scanner.RecentIncoming(ctx, wallet, m.Cfg.ScanLimit)
	if err != nil {
		return fmt.Errorf("failed to scan wallet %s: %w", wallet, err)
	}

	// Переводы, отправленные задолго до создания интента, не могут быть его
	// оплатой, какой бы ни была сумма
	cutoff := intent.CreatedAt.Add(-m.Cfg.TransferCutoff())

	for _, transfer := range transfers {
		if transfer.BlockTime.Before(cutoff) {
			continue
		}
		if !m.amountMatches(transfer.Amount, intent.ExpectedAmount) {
			continue
		}

		processed, err := m.ProcessedRepo.Exists(ctx, transfer.Signature)
		if err != nil {
			return err
		}
		if processed {
			continue
		}

		return m.settle(ctx, intent, &transfer)
	}

	return nil
}

// amountMatches проверяет сумму с относительным допуском, границы включительно
func (m *Matcher) amountMatches(received, expected decimal.Decimal) bool {
	tolerance := expected.Mul(m.Cfg.MatchTolerance)
	diff := received.Sub(expected).Abs()
	return diff.LessThanOrEqual(tolerance)
}

// settle доводит совпавший перевод до финализации.
// Захват интента переходом pending→processing: проигравший гонку воркер
// просто выходит.
func (m *Matcher) settle(ctx context.Context, intent *domain.PaymentIntent, transfer *domain.Transfer) error {
	ok, err := m.IntentRepo.TransitionStatus(ctx, intent.PaymentID, domain.IntentStatusPending, domain.IntentStatusProcessing)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	m.Log.Info("matched incoming transfer",
		"payment_id", intent.PaymentID,
		"signature", transfer.Signature,
		"amount", transfer.Amount,
		"expected", intent.ExpectedAmount,
	)

	// Сплит расходится до подтверждения: не удалась пересылка, платёж уходит
	// в failed и вернётся в pending свипом для повторной попытки
	if intent.Destination == domain.WalletDestShared {
		if _, err := m.Forwarder.Forward(ctx, intent.PaymentID, transfer.Signature, transfer.Amount); err != nil {
			if _, terr := m.IntentRepo.TransitionStatus(ctx, intent.PaymentID, domain.IntentStatusProcessing, domain.IntentStatusFailed); terr != nil {
				m.Log.Error("failed to mark intent failed", "error", terr, "payment_id", intent.PaymentID)
			}
			m.alert(ctx, fmt.Sprintf(
				"ФОРВАРД НЕ ВЫПОЛНЕН %s: %v. Интент переведён в failed, повтор свипом.",
				intent.PaymentID, err,
			))
			return fmt.Errorf("forward failed: %w", err)
		}
	}

	confirmed, err := m.IntentRepo.ConfirmProcessed(ctx, intent.PaymentID, transfer.Signature, transfer.Amount)
	if err != nil {
		return err
	}
	if !confirmed {
		// Подпись увёл другой интент между проверкой и подтверждением
		if _, terr := m.IntentRepo.TransitionStatus(ctx, intent.PaymentID, domain.IntentStatusProcessing, domain.IntentStatusPending); terr != nil {
			m.Log.Error("failed to release intent", "error", terr, "payment_id", intent.PaymentID)
		}
		return nil
	}

	if err := m.Events.PublishPurchaseConfirmed(ctx, intent, transfer.Signature); err != nil {
		m.Log.Warn("failed to publish purchase event",
			"error", err,
			"payment_id", intent.PaymentID,
		)
	}

	delivered, err := m.Finalizer.Finalize(ctx, intent, transfer.Signature)
	if err != nil || !delivered {
		// Оплата подтверждена, но покупка не доведена: интент остаётся
		// confirmed для ручного разбора, деньги уже приняты
		m.alert(ctx, fmt.Sprintf(
			"ФИНАЛИЗАЦИЯ НЕ ЗАВЕРШЕНА %s: tx %s подтверждён, но покупка не доведена. Интент сохранён.",
			intent.PaymentID, transfer.Signature,
		))
		return err
	}

	// Полный успех: интент больше не нужен
	if err := m.IntentRepo.Delete(ctx, intent.PaymentID); err != nil {
		m.Log.Error("failed to delete settled intent",
			"error", err,
			"payment_id", intent.PaymentID,
		)
	}

	return nil
}

// expireIntent закрывает просроченный интент и возвращает резерв позиций
func (m *Matcher) expireIntent(ctx context.Context, intent *domain.PaymentIntent) error {
	ok, err := m.IntentRepo.TransitionStatus(ctx, intent.PaymentID, domain.IntentStatusPending, domain.IntentStatusExpired)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := m.InventoryRepo.Unreserve(ctx, intent.Basket); err != nil {
		m.Log.Error("failed to unreserve expired basket",
			"error", err,
			"payment_id", intent.PaymentID,
		)
	}

	if err := m.Notifier.Notify(ctx, intent.UserID,
		"⌛ Время оплаты истекло. Заказ отменён, позиции возвращены в каталог."); err != nil {
		m.Log.Warn("failed to notify about expiry",
			"error", err,
			"payment_id", intent.PaymentID,
		)
	}

	m.Log.Info("payment intent expired",
		"payment_id", intent.PaymentID,
		"user_id", intent.UserID,
	)
	return nil
}

func (m *Matcher) alert(ctx context.Context, message string) {
	if m.Alerter == nil {
		return
	}
	if err := m.Alerter.SendAlert(ctx, message); err != nil {
		m.Log.Warn("failed to send alert", "error", err)
	}
}
