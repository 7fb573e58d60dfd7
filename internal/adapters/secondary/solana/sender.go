package solana

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/pkg/retry"
	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
)

const confirmPollInterval = 2 * time.Second

// Sender отправляет переводы SOL с общего кошелька.
// Реализует service.ITransferSender.
//
// Мьютекс сериализует отправки: переводы с одного кошелька идут строго по
// одному, иначе параллельные ноги сплита могут разойтись с проверкой баланса.
type Sender struct {
	client         *rpc.Client
	key            solanago.PrivateKey
	confirmTimeout time.Duration
	Log            *slog.Logger

	mu sync.Mutex
}

// NewSender создаёт новый отправитель переводов
func NewSender(client *rpc.Client, key solanago.PrivateKey, confirmTimeout time.Duration, log *slog.Logger) service.ITransferSender {
	return &Sender{
		client:         client,
		key:            key,
		confirmTimeout: confirmTimeout,
		Log:            log,
	}
}

// Balance текущий баланс кошелька в SOL
func (s *Sender) Balance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	pubkey, err := solanago.PublicKeyFromBase58(wallet)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid wallet address %s: %w", wallet, err)
	}

	result, err := s.client.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance of %s: %w", wallet, err)
	}

	return domain.LamportsToSOL(result.Value), nil
}

// Send отправляет amount SOL на адрес и ждёт подтверждения ограниченное время.
// Возвращает подпись транзакции.
func (s *Sender) Send(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	toPubkey, err := solanago.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address %s: %w", to, err)
	}

	lamports := domain.SOLToLamports(amount)
	if lamports == 0 {
		return "", fmt.Errorf("transfer amount %s is below one lamport", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.key.PublicKey()

	var sig solanago.Signature
	err = retry.Do(ctx, retry.DefaultConfig, retryableSendError, func() error {
		// Blockhash берём внутри ретрая: при повторе старый мог протухнуть
		bh, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			return fmt.Errorf("failed to get latest blockhash: %w", err)
		}

		tx, err := solanago.NewTransaction(
			[]solanago.Instruction{
				system.NewTransferInstruction(lamports, from, toPubkey).Build(),
			},
			bh.Value.Blockhash,
			solanago.TransactionPayer(from),
		)
		if err != nil {
			return fmt.Errorf("failed to build transaction: %w", err)
		}

		_, err = tx.Sign(func(pk solanago.PublicKey) *solanago.PrivateKey {
			if pk.Equals(from) {
				return &s.key
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to sign transaction: %w", err)
		}

		sig, err = s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			return fmt.Errorf("failed to broadcast transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		s.Log.Error("failed to send transfer",
			"error", err,
			"to", to,
			"amount", amount,
		)
		return "", err
	}

	if err := s.awaitConfirmation(ctx, sig); err != nil {
		s.Log.Error("transfer confirmation failed",
			"error", err,
			"signature", sig.String(),
			"to", to,
		)
		return "", err
	}

	s.Log.Info("transfer sent",
		"signature", sig.String(),
		"to", to,
		"amount", amount,
	)
	return sig.String(), nil
}

// awaitConfirmation ждёт подтверждения транзакции, опрашивая статус подписи
func (s *Sender) awaitConfirmation(ctx context.Context, sig solanago.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s not confirmed in time: %w", sig.String(), ctx.Err())
		case <-ticker.C:
		}

		statuses, err := s.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			s.Log.Warn("failed to get signature status", "error", err, "signature", sig.String())
			continue
		}
		if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
			continue
		}

		status := statuses.Value[0]
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed on chain: %v", sig.String(), status.Err)
		}

		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return nil
		}
	}
}

// retryableSendError решает, имеет ли смысл повторять отправку.
// Протухший blockhash и лимиты RPC лечатся повтором, остальное нет.
func retryableSendError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Blockhash not found") ||
		strings.Contains(msg, "BlockhashNotFound") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests")
}
