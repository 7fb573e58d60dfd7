package solana

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/pkg/retry"
	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
)

// Версии транзакций выше legacy (v0) тоже должны разбираться
var maxTxVersion = uint64(0)

// Scanner читает входящие переводы через Solana RPC.
// Реализует service.IChainScanner.
type Scanner struct {
	client *rpc.Client
	Log    *slog.Logger
}

// NewScanner создаёт новый сканер цепочки
func NewScanner(client *rpc.Client, log *slog.Logger) service.IChainScanner {
	return &Scanner{
		client: client,
		Log:    log,
	}
}

// RecentIncoming последние входящие переводы на кошелёк.
// Входящим считается строго рост баланса кошелька между pre- и post-состоянием
// транзакции: memo и инструкции не разбираются.
func (s *Scanner) RecentIncoming(ctx context.Context, wallet string, limit int) ([]domain.Transfer, error) {
	pubkey, err := solanago.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address %s: %w", wallet, err)
	}

	var signatures []*rpc.TransactionSignature
	err = retry.Do(ctx, retry.DefaultConfig, retryableScanError, func() error {
		var rpcErr error
		signatures, rpcErr = s.client.GetSignaturesForAddressWithOpts(ctx, pubkey, &rpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Commitment: rpc.CommitmentConfirmed,
		})
		return rpcErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get signatures for %s: %w", wallet, err)
	}

	transfers := make([]domain.Transfer, 0, len(signatures))

	for _, sigInfo := range signatures {
		// Упавшие на цепочке транзакции отсекаются до детального запроса
		if sigInfo.Err != nil {
			continue
		}

		transfer, err := s.incomingAmount(ctx, pubkey, sigInfo.Signature)
		if err != nil {
			// Одна нечитаемая транзакция не должна ронять весь скан
			s.Log.Warn("failed to inspect transaction",
				"error", err,
				"signature", sigInfo.Signature.String(),
			)
			continue
		}
		if transfer == nil {
			continue
		}

		if sigInfo.BlockTime != nil {
			transfer.BlockTime = sigInfo.BlockTime.Time()
		}
		transfers = append(transfers, *transfer)
	}

	return transfers, nil
}

// incomingAmount возвращает перевод, если баланс кошелька вырос в транзакции
func (s *Scanner) incomingAmount(ctx context.Context, wallet solanago.PublicKey, signature solanago.Signature) (*domain.Transfer, error) {
	result, err := s.getTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if result == nil || result.Meta == nil {
		return nil, nil
	}
	if result.Meta.Err != nil {
		return nil, nil
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	walletIndex := -1
	for i, key := range tx.Message.AccountKeys {
		if key.Equals(wallet) {
			walletIndex = i
			break
		}
	}
	if walletIndex < 0 {
		return nil, nil
	}
	if walletIndex >= len(result.Meta.PreBalances) || walletIndex >= len(result.Meta.PostBalances) {
		return nil, nil
	}

	pre := result.Meta.PreBalances[walletIndex]
	post := result.Meta.PostBalances[walletIndex]
	if post <= pre {
		return nil, nil
	}

	transfer := &domain.Transfer{
		Signature: signature.String(),
		Amount:    domain.LamportsToSOL(post - pre),
		Confirmed: true,
	}
	if result.BlockTime != nil {
		transfer.BlockTime = result.BlockTime.Time()
	} else {
		transfer.BlockTime = time.Now().UTC()
	}

	return transfer, nil
}

// getTransaction детали транзакции с повтором при rate-limit узла
func (s *Scanner) getTransaction(ctx context.Context, signature solanago.Signature) (*rpc.GetTransactionResult, error) {
	var result *rpc.GetTransactionResult
	err := retry.Do(ctx, retry.DefaultConfig, retryableScanError, func() error {
		var rpcErr error
		result, rpcErr = s.client.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
			Encoding:                       solanago.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxTxVersion,
		})
		return rpcErr
	})
	return result, err
}

// retryableScanError лимиты RPC-узла лечатся повтором, остальное нет
func retryableScanError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(msg, "rate limit")
}

// Verify возвращает подтверждение транзакции либо nil, если её нет или она упала
func (s *Scanner) Verify(ctx context.Context, signature string) (*domain.TransferConfirmation, error) {
	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %s: %w", signature, err)
	}

	result, err := s.getTransaction(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if result == nil || result.Meta == nil || result.Meta.Err != nil {
		return nil, nil
	}

	confirmation := &domain.TransferConfirmation{
		Signature: signature,
		Slot:      result.Slot,
	}
	if result.BlockTime != nil {
		confirmation.BlockTime = result.BlockTime.Time()
	}

	return confirmation, nil
}
