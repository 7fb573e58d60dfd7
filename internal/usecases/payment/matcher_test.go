package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

type matcherFixture struct {
	matcher    *Matcher
	intents    *fakeIntentRepo
	processed  *fakeProcessedRepo
	inventory  *fakeInventoryRepo
	scanner    *fakeScanner
	sender     *fakeSender
	forwardLog *fakeForwardLog
	notifier   *fakeNotifier
	alerter    *fakeAlerter
	events     *fakeEvents
	cfg        *Config
}

func newMatcherFixture() *matcherFixture {
	cfg := testConfig()
	log := testLogger()

	intents := newFakeIntentRepo()
	processed := &fakeProcessedRepo{known: map[string]bool{}}
	inventory := &fakeInventoryRepo{}
	scanner := &fakeScanner{transfers: map[string][]domain.Transfer{}}
	sender := &fakeSender{balance: decimal.RequireFromString("10")}
	forwardLog := &fakeForwardLog{}
	notifier := &fakeNotifier{}
	alerter := &fakeAlerter{}
	events := &fakeEvents{}

	forwarder := NewForwarder(sender, forwardLog, events, alerter, cfg, log)
	finalizer := NewFinalizer(inventory, &fakeS3{}, notifier, alerter, log)
	matcher := NewMatcher(intents, processed, inventory, scanner, forwarder, finalizer,
		notifier, alerter, events, cfg, log)

	return &matcherFixture{
		matcher:    matcher,
		intents:    intents,
		processed:  processed,
		inventory:  inventory,
		scanner:    scanner,
		sender:     sender,
		forwardLog: forwardLog,
		notifier:   notifier,
		alerter:    alerter,
		events:     events,
		cfg:        cfg,
	}
}

func (f *matcherFixture) addIntent(dest domain.WalletDest, amount string) *domain.PaymentIntent {
	now := time.Now().UTC()
	intent := &domain.PaymentIntent{
		PaymentID:      domain.NewPaymentID(42, now),
		UserID:         42,
		ExpectedAmount: decimal.RequireFromString(amount),
		Destination:    dest,
		Basket: domain.BasketSnapshot{
			{ProductID: 7, Name: "item", Price: decimal.RequireFromString("100"), PayoutWallet: domain.WalletTagSplit},
		},
		Status:    domain.IntentStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(f.cfg.IntentTTL()),
	}
	_ = f.intents.Create(context.Background(), intent)
	return intent
}

func (f *matcherFixture) addTransfer(dest domain.WalletDest, signature, amount string, blockTime time.Time) {
	wallet := f.cfg.AddressFor(dest)
	f.scanner.transfers[wallet] = append(f.scanner.transfers[wallet], domain.Transfer{
		Signature: signature,
		Amount:    decimal.RequireFromString(amount),
		BlockTime: blockTime,
		Confirmed: true,
	})
}

func TestRunCycleSettlesSharedIntent(t *testing.T) {
	f := newMatcherFixture()
	intent := f.addIntent(domain.WalletDestShared, "1.000050")
	f.addTransfer(domain.WalletDestShared, "tx-1", "1.000050", time.Now().UTC())

	require.NoError(t, f.matcher.RunCycle(context.Background()))

	// форвардинг прошёл обеими ногами
	require.Len(t, f.sender.sent, 2)
	require.Len(t, f.forwardLog.entries, 1)
	require.True(t, f.forwardLog.entries[0].Success)

	// событие опубликовано, покупка финализирована, интент удалён
	require.Equal(t, []string{intent.PaymentID}, f.events.purchases)
	require.Equal(t, 1, f.inventory.finalized)
	require.Equal(t, []string{intent.PaymentID}, f.intents.deleted)
	require.True(t, f.intents.revertCalled)

	_, err := f.intents.GetByID(context.Background(), intent.PaymentID)
	require.ErrorIs(t, err, domain.ErrIntentNotFound)
}

func TestRunCycleDirectIntentSkipsForwarding(t *testing.T) {
	f := newMatcherFixture()
	intent := f.addIntent(domain.WalletDestB, "2")
	f.addTransfer(domain.WalletDestB, "tx-1", "2", time.Now().UTC())

	require.NoError(t, f.matcher.RunCycle(context.Background()))

	// прямой платёж продавцу: с общего кошелька ничего не уходит
	require.Empty(t, f.sender.sent)
	require.Empty(t, f.forwardLog.entries)
	require.Equal(t, []string{intent.PaymentID}, f.intents.deleted)
}

func TestAmountMatchesToleranceBoundaries(t *testing.T) {
	f := newMatcherFixture()
	expected := decimal.RequireFromString("1")

	tests := []struct {
		name     string
		received string
		want     bool
	}{
		{"exact", "1", true},
		{"upper boundary inclusive", "1.001", true},
		{"lower boundary inclusive", "0.999", true},
		{"just above upper", "1.0011", false},
		{"just below lower", "0.9989", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.matcher.amountMatches(decimal.RequireFromString(tt.received), expected)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRunCycleIgnoresTransferBeforeCutoff(t *testing.T) {
	f := newMatcherFixture()
	intent := f.addIntent(domain.WalletDestShared, "1")
	// перевод на 31 минуту раньше создания интента
	old := intent.CreatedAt.Add(-31 * time.Minute)
	f.addTransfer(domain.WalletDestShared, "tx-old", "1", old)

	require.NoError(t, f.matcher.RunCycle(context.Background()))

	stored, err := f.intents.GetByID(context.Background(), intent.PaymentID)
	require.NoError(t, err)
	require.Equal(t, domain.IntentStatusPending, stored.Status)
	require.Empty(t, f.sender.sent)
}

func TestRunCycleSkipsProcessedSignature(t *testing.T) {
	f := newMatcherFixture()
	intent := f.addIntent(domain.WalletDestShared, "1")
	f.addTransfer(domain.WalletDestShared, "tx-used", "1", time.Now().UTC())
	f.processed.known["tx-used"] = true

	require.NoError(t, f.matcher.RunCycle(context.Background()))

	stored, err := f.intents.GetByID(context.Background(), intent.PaymentID)
	require.NoError(t, err)
	require.Equal(t, domain.IntentStatusPending, stored.Status)
	require.Equal(t, 0, f.inventory.finalized)
}

func TestSettleSignatureRaceReleasesIntent(t *testing.T) {
	f := newMatcherFixture()
	intent := f.addIntent(domain.WalletDestB, "1")
	f.addTransfer(domain.WalletDestB, "tx-race", "1", time.Now().UTC())

	// подпись уводит другой интент между Exists и ConfirmProcessed
	f.intents.signatures["tx-race"] = "SOL_other"

	require.NoError(t, f.matcher.RunCycle(context.Background()))

	// интент отпущен обратно в pending, не confirmed и не удалён
	stored, err := f.intents.GetByID(context.Background(), intent.PaymentID)
	require.NoError(t, err)
	require.Equal(t, domain.IntentStatusPending, stored.Status)
	require.Empty(t, f.intents.deleted)
	require.Equal(t, 0, f.inventory.finalized)
}

func TestSettleForwardFailureMarksFailed(t *testing.T) {
	f := newMatcherFixture()
	intent := f.addIntent(domain.WalletDestShared, "1")
	f.addTransfer(domain.WalletDestShared, "tx-1", "1", time.Now().UTC())
	// общий кошелёк пуст, форвардить нечем
	f.sender.balance = decimal.RequireFromString("0.001")

	require.NoError(t, f.matcher.RunCycle(context.Background()))

	stored, err := f.intents.GetByID(context.Background(), intent.PaymentID)
	require.NoError(t, err)
	require.Equal(t, domain.IntentStatusFailed, stored.Status)
	require.Equal(t, 0, f.inventory.finalized)
	require.Empty(t, f.events.purchases)

	var found bool
	for _, alert := range f.alerter.alerts {
		if strings.Contains(alert, "ФОРВАРД НЕ ВЫПОЛНЕН") && strings.Contains(alert, intent.PaymentID) {
			found = true
		}
	}
	require.True(t, found, "forward failure alert expected, got %v", f.alerter.alerts)
}

func TestSettleFinalizeFailureKeepsConfirmedIntent(t *testing.T) {
	f := newMatcherFixture()
	intent := f.addIntent(domain.WalletDestShared, "1")
	f.addTransfer(domain.WalletDestShared, "tx-1", "1", time.Now().UTC())
	f.inventory.finalizeErr = domain.ErrOutOfStock

	_ = f.matcher.RunCycle(context.Background())

	// деньги приняты, но покупка не доведена: интент остаётся confirmed
	stored, err := f.intents.GetByID(context.Background(), intent.PaymentID)
	require.NoError(t, err)
	require.Equal(t, domain.IntentStatusConfirmed, stored.Status)
	require.Empty(t, f.intents.deleted)

	var found bool
	for _, alert := range f.alerter.alerts {
		if strings.Contains(alert, "ФИНАЛИЗАЦИЯ НЕ ЗАВЕРШЕНА") && strings.Contains(alert, intent.PaymentID) {
			found = true
		}
	}
	require.True(t, found, "finalization alert expected, got %v", f.alerter.alerts)
}

func TestRunCycleExpiresStaleIntent(t *testing.T) {
	f := newMatcherFixture()
	intent := f.addIntent(domain.WalletDestShared, "1")

	// интент просрочен
	f.intents.intents[intent.PaymentID].ExpiresAt = time.Now().UTC().Add(-time.Minute)

	require.NoError(t, f.matcher.RunCycle(context.Background()))

	stored, err := f.intents.GetByID(context.Background(), intent.PaymentID)
	require.NoError(t, err)
	require.Equal(t, domain.IntentStatusExpired, stored.Status)
	require.Len(t, f.inventory.unreserved, 1)

	require.Len(t, f.notifier.sent, 1)
	require.Contains(t, f.notifier.sent[0].Message, "истекло")
}
