package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/repository"
	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
)

// Forwarder раскладывает выручку общего кошелька по кошелькам продавцов.
//
// Мьютекс сериализует форвардинги целиком: проверка баланса и обе ноги сплита
// должны пройти без вклинившегося соседнего форварда, иначе проверка врёт.
type Forwarder struct {
	Sender     service.ITransferSender
	ForwardLog repository.IForwardLogRepo
	Events     service.IEventProducer
	Alerter    service.IAlerterService
	Cfg        *Config
	Log        *slog.Logger

	mu sync.Mutex
}

func NewForwarder(
	sender service.ITransferSender,
	forwardLog repository.IForwardLogRepo,
	events service.IEventProducer,
	alerter service.IAlerterService,
	cfg *Config,
	log *slog.Logger,
) *Forwarder {
	return &Forwarder{
		Sender:     sender,
		ForwardLog: forwardLog,
		Events:     events,
		Alerter:    alerter,
		Cfg:        cfg,
		Log:        log,
	}
}

// Forward пересылает сумму платежа с общего кошелька двумя ногами: сперва
// мажоритарная доля на кошелёк B, затем остаток на кошелёк A. Сумма к
// пересылке ограничена фактическим балансом за вычетом несгораемого остатка
// и запаса на комиссии.
//
// Запись в журнал форвардинга пишется при любом исходе.
func (f *Forwarder) Forward(ctx context.Context, paymentID, sourceSignature string, amount decimal.Decimal) (*domain.ForwardingLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	balance, err := f.Sender.Balance(ctx, f.Cfg.CollectionAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection balance: %w", err)
	}

	// Две ноги, два запаса на комиссию
	available := balance.Sub(f.Cfg.BalanceReserve).Sub(f.Cfg.FeeBuffer.Mul(decimal.New(2, 0)))
	if !available.IsPositive() {
		f.Log.Error("collection wallet cannot cover forward",
			"payment_id", paymentID,
			"balance", balance,
			"amount", amount,
		)
		f.alert(ctx, fmt.Sprintf(
			"НЕДОСТАТОЧНО СРЕДСТВ для форварда %s: баланс общего кошелька %s SOL, к пересылке %s SOL. Пополните кошелёк.",
			paymentID, balance, amount,
		))
		return nil, domain.WrapBusinessError(domain.ErrInsufficientFunds)
	}

	sendable := amount
	if sendable.GreaterThan(available) {
		f.Log.Warn("forward amount capped by collection balance",
			"payment_id", paymentID,
			"amount", amount,
			"available", available,
		)
		sendable = available
	}

	// Доля A округляется вниз, остаток уходит в B: сумма ног никогда не
	// превышает sendable
	shareA := sendable.Mul(f.Cfg.SplitRatioA).RoundFloor(9)
	shareB := sendable.Sub(shareA)

	if shareA.LessThan(f.Cfg.DustThreshold) || shareB.LessThan(f.Cfg.DustThreshold) {
		f.Log.Error("forward share below dust threshold",
			"payment_id", paymentID,
			"share_a", shareA,
			"share_b", shareB,
		)
		return nil, domain.WrapBusinessError(domain.ErrDustAmount)
	}

	entry := &domain.ForwardingLogEntry{
		ID:              uuid.New(),
		PaymentID:       paymentID,
		SourceSignature: sourceSignature,
		WalletAAmount:   shareA,
		WalletBAmount:   shareB,
		ForwardedAt:     time.Now().UTC(),
	}

	var result domain.ForwardResult

	// Мажоритарная нога первой: если что-то пойдёт не так после неё,
	// зависшей останется меньшая сумма
	sigB, err := f.Sender.Send(ctx, f.Cfg.WalletBAddress, shareB)
	if err != nil {
		f.Log.Error("forward leg to wallet B failed",
			"error", err,
			"payment_id", paymentID,
			"amount", shareB,
		)
	} else {
		entry.WalletBSignature = &sigB
		result.WalletB = true
	}

	if result.WalletB {
		// Свежая проверка перед второй ногой: баланс мог измениться
		balance, err = f.Sender.Balance(ctx, f.Cfg.CollectionAddress)
		if err == nil && balance.Sub(f.Cfg.BalanceReserve).Sub(f.Cfg.FeeBuffer).LessThan(shareA) {
			f.Log.Error("collection balance dropped below wallet A share",
				"payment_id", paymentID,
				"balance", balance,
				"share_a", shareA,
			)
		} else {
			sigA, err := f.Sender.Send(ctx, f.Cfg.WalletAAddress, shareA)
			if err != nil {
				f.Log.Error("forward leg to wallet A failed",
					"error", err,
					"payment_id", paymentID,
					"amount", shareA,
				)
			} else {
				entry.WalletASignature = &sigA
				result.WalletA = true
			}
		}
	}

	entry.Success = result.Complete()

	if err := f.ForwardLog.Append(ctx, entry); err != nil {
		f.Log.Error("failed to append forwarding log",
			"error", err,
			"payment_id", paymentID,
		)
	}

	if err := f.Events.PublishForwardCompleted(ctx, entry); err != nil {
		f.Log.Warn("failed to publish forward event",
			"error", err,
			"payment_id", paymentID,
		)
	}

	if result.Partial() {
		// Худший исход: одна нога прошла, деньги разъехались. Только руками.
		f.alert(ctx, fmt.Sprintf(
			"ЧАСТИЧНЫЙ ФОРВАРД %s: walletA=%v walletB=%v, source=%s. Требуется ручная сверка.",
			paymentID, result.WalletA, result.WalletB, sourceSignature,
		))
	}

	if !entry.Success {
		return entry, fmt.Errorf("forward incomplete for %s: walletA=%v walletB=%v",
			paymentID, result.WalletA, result.WalletB)
	}

	f.Log.Info("forward completed",
		"payment_id", paymentID,
		"share_a", shareA,
		"share_b", shareB,
	)
	return entry, nil
}

func (f *Forwarder) alert(ctx context.Context, message string) {
	if f.Alerter == nil {
		return
	}
	if err := f.Alerter.SendAlert(ctx, message); err != nil {
		f.Log.Warn("failed to send alert", "error", err)
	}
}
