package payment

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

func newTestForwarder(sender *fakeSender) (*Forwarder, *fakeForwardLog, *fakeEvents, *fakeAlerter) {
	forwardLog := &fakeForwardLog{}
	events := &fakeEvents{}
	alerter := &fakeAlerter{}
	return NewForwarder(sender, forwardLog, events, alerter, testConfig(), testLogger()), forwardLog, events, alerter
}

func TestForwardSplitsAndSendsMajorityFirst(t *testing.T) {
	sender := &fakeSender{balance: decimal.RequireFromString("10")}
	forwarder, forwardLog, events, alerter := newTestForwarder(sender)
	cfg := forwarder.Cfg

	amount := decimal.RequireFromString("1.5")
	entry, err := forwarder.Forward(context.Background(), "SOL_1_1_abc", "src-sig", amount)
	require.NoError(t, err)
	require.True(t, entry.Success)

	require.Len(t, sender.sent, 2)
	// мажоритарная нога B уходит первой
	require.Equal(t, cfg.WalletBAddress, sender.sent[0].To)
	require.Equal(t, cfg.WalletAAddress, sender.sent[1].To)

	shareA := sender.sent[1].Amount
	shareB := sender.sent[0].Amount
	require.True(t, shareA.Add(shareB).Equal(amount), "legs must add up to the full amount")
	require.True(t, shareA.Equal(amount.Mul(cfg.SplitRatioA).RoundFloor(9)))
	require.True(t, shareB.GreaterThan(shareA), "wallet B share is the majority")

	require.Len(t, forwardLog.entries, 1)
	require.NotNil(t, forwardLog.entries[0].WalletASignature)
	require.NotNil(t, forwardLog.entries[0].WalletBSignature)
	require.Len(t, events.forwards, 1)
	require.Empty(t, alerter.alerts)
}

func TestForwardCappedByBalance(t *testing.T) {
	// Баланс покрывает меньше суммы платежа
	sender := &fakeSender{balance: decimal.RequireFromString("1.0")}
	forwarder, _, _, _ := newTestForwarder(sender)
	cfg := forwarder.Cfg

	entry, err := forwarder.Forward(context.Background(), "SOL_1_1_abc", "src-sig", decimal.RequireFromString("5"))
	require.NoError(t, err)
	require.True(t, entry.Success)

	available := decimal.RequireFromString("1.0").
		Sub(cfg.BalanceReserve).
		Sub(cfg.FeeBuffer.Mul(decimal.New(2, 0)))

	total := sender.sent[0].Amount.Add(sender.sent[1].Amount)
	require.True(t, total.LessThanOrEqual(available),
		"legs %s must not exceed available %s", total, available)
}

func TestForwardInsufficientFunds(t *testing.T) {
	sender := &fakeSender{balance: decimal.RequireFromString("0.002")}
	forwarder, forwardLog, _, alerter := newTestForwarder(sender)

	_, err := forwarder.Forward(context.Background(), "SOL_1_1_abc", "src-sig", decimal.RequireFromString("1"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.True(t, domain.IsBusinessError(err))
	require.Empty(t, sender.sent)
	require.Empty(t, forwardLog.entries)

	// нехватка средств не решается повтором, оператор узнаёт сразу
	require.Len(t, alerter.alerts, 1)
	require.Contains(t, alerter.alerts[0], "НЕДОСТАТОЧНО СРЕДСТВ")
	require.Contains(t, alerter.alerts[0], "SOL_1_1_abc")
}

func TestForwardDustShare(t *testing.T) {
	sender := &fakeSender{balance: decimal.RequireFromString("10")}
	forwarder, forwardLog, _, _ := newTestForwarder(sender)

	// 0.000004 SOL: доля A получается 0.0000008, ниже порога пыли
	_, err := forwarder.Forward(context.Background(), "SOL_1_1_abc", "src-sig", decimal.RequireFromString("0.000004"))
	require.ErrorIs(t, err, domain.ErrDustAmount)
	require.Empty(t, sender.sent)
	require.Empty(t, forwardLog.entries)
}

func TestForwardPartialLegBFailed(t *testing.T) {
	sender := &fakeSender{
		balance: decimal.RequireFromString("10"),
		failFor: map[string]error{},
	}
	forwarder, forwardLog, _, alerter := newTestForwarder(sender)
	sender.failFor[forwarder.Cfg.WalletBAddress] = fmt.Errorf("rpc unavailable")

	entry, err := forwarder.Forward(context.Background(), "SOL_1_1_abc", "src-sig", decimal.RequireFromString("1"))
	require.Error(t, err)
	require.NotNil(t, entry)
	require.False(t, entry.Success)

	// Нога A не отправляется, если мажоритарная нога не прошла
	require.Empty(t, sender.sent)
	require.Len(t, forwardLog.entries, 1)
	require.Nil(t, forwardLog.entries[0].WalletBSignature)
	// Обе ноги не прошли: это не частичный форвард, алерт не нужен
	require.Empty(t, alerter.alerts)
}

func TestForwardPartialLegAFailed(t *testing.T) {
	sender := &fakeSender{
		balance: decimal.RequireFromString("10"),
		failFor: map[string]error{},
	}
	forwarder, forwardLog, _, alerter := newTestForwarder(sender)
	sender.failFor[forwarder.Cfg.WalletAAddress] = fmt.Errorf("rpc unavailable")

	entry, err := forwarder.Forward(context.Background(), "SOL_1_1_abc", "src-sig", decimal.RequireFromString("1"))
	require.Error(t, err)
	require.False(t, entry.Success)

	// Мажоритарная нога прошла, деньги разъехались: запись и алерт обязательны
	require.Len(t, sender.sent, 1)
	require.Equal(t, forwarder.Cfg.WalletBAddress, sender.sent[0].To)
	require.Len(t, forwardLog.entries, 1)
	require.NotNil(t, forwardLog.entries[0].WalletBSignature)
	require.Nil(t, forwardLog.entries[0].WalletASignature)
	require.Len(t, alerter.alerts, 1)
}

func TestForwardSkipsLegAWhenBalanceDropped(t *testing.T) {
	// Первая проверка видит достаточно, после ноги B баланс падает в ноль
	sender := &fakeSender{
		balances: []decimal.Decimal{
			decimal.RequireFromString("10"),
			decimal.RequireFromString("0.002"),
		},
	}
	forwarder, forwardLog, _, _ := newTestForwarder(sender)

	entry, err := forwarder.Forward(context.Background(), "SOL_1_1_abc", "src-sig", decimal.RequireFromString("1"))
	require.Error(t, err)
	require.False(t, entry.Success)

	require.Len(t, sender.sent, 1)
	require.Equal(t, forwarder.Cfg.WalletBAddress, sender.sent[0].To)
	require.Len(t, forwardLog.entries, 1)
}
