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

func newTestService(repo *fakeIntentRepo, inventory *fakeInventoryRepo, price string) *Service {
	return New(repo, inventory, &fakeOracle{price: decimal.RequireFromString(price)}, testConfig(), testLogger())
}

func priceBasket(tag domain.WalletTag, prices ...string) domain.BasketSnapshot {
	basket := make(domain.BasketSnapshot, 0, len(prices))
	for i, p := range prices {
		basket = append(basket, domain.BasketItem{
			ProductID:    int64(i + 1),
			Price:        decimal.RequireFromString(p),
			PayoutWallet: tag,
		})
	}
	return basket
}

func TestCreateIntentAmount(t *testing.T) {
	repo := newFakeIntentRepo()
	svc := newTestService(repo, &fakeInventoryRepo{}, "135")

	// 270 EUR / 135 EUR = 2 SOL, наценка 1.01
	intent, err := svc.CreateIntent(context.Background(), 42, priceBasket(domain.WalletTagSplit, "150", "120"), nil)
	require.NoError(t, err)

	base := decimal.RequireFromString("2.02")
	offset := intent.ExpectedAmount.Sub(base)
	require.True(t, offset.IsPositive(), "offset must be positive, got %s", offset)
	require.True(t, offset.LessThanOrEqual(decimal.RequireFromString("0.000099")),
		"offset must not exceed 0.000099, got %s", offset)

	require.Equal(t, domain.IntentStatusPending, intent.Status)
	require.Equal(t, domain.WalletDestShared, intent.Destination)
	require.True(t, strings.HasPrefix(intent.PaymentID, "SOL_42_"))
	require.WithinDuration(t, intent.CreatedAt.Add(20*time.Minute), intent.ExpiresAt, time.Second)

	stored, err := repo.GetByID(context.Background(), intent.PaymentID)
	require.NoError(t, err)
	require.True(t, stored.ExpectedAmount.Equal(intent.ExpectedAmount))
}

func TestCreateIntentRejectsBelowMinimum(t *testing.T) {
	repo := newFakeIntentRepo()
	svc := newTestService(repo, &fakeInventoryRepo{}, "135")

	// 0.5 EUR при курсе 135 — сильно меньше минимума 0.01 SOL:
	// платёж отклоняется, а не дотягивается до минимума за счёт покупателя
	intent, err := svc.CreateIntent(context.Background(), 1, priceBasket(domain.WalletTagA, "0.5"), nil)
	require.ErrorIs(t, err, domain.ErrAmountTooLow)
	require.True(t, domain.IsBusinessError(err))
	require.Nil(t, intent)
	require.Empty(t, repo.intents)
}

func TestCreateIntentRoutesDirect(t *testing.T) {
	repo := newFakeIntentRepo()
	svc := newTestService(repo, &fakeInventoryRepo{}, "135")

	intent, err := svc.CreateIntent(context.Background(), 1, priceBasket(domain.WalletTagB, "270"), nil)
	require.NoError(t, err)
	require.Equal(t, domain.WalletDestB, intent.Destination)
}

func TestCreateIntentEmptyBasket(t *testing.T) {
	svc := newTestService(newFakeIntentRepo(), &fakeInventoryRepo{}, "135")

	_, err := svc.CreateIntent(context.Background(), 1, domain.BasketSnapshot{}, nil)
	require.Error(t, err)
}

func TestCancelIntent(t *testing.T) {
	repo := newFakeIntentRepo()
	inventory := &fakeInventoryRepo{}
	svc := newTestService(repo, inventory, "135")

	intent, err := svc.CreateIntent(context.Background(), 42, priceBasket(domain.WalletTagA, "100"), nil)
	require.NoError(t, err)

	require.NoError(t, svc.CancelIntent(context.Background(), intent.PaymentID, 42))

	stored, err := repo.GetByID(context.Background(), intent.PaymentID)
	require.NoError(t, err)
	require.Equal(t, domain.IntentStatusCancelled, stored.Status)
	require.Len(t, inventory.unreserved, 1)
}

func TestCancelIntentWrongOwner(t *testing.T) {
	repo := newFakeIntentRepo()
	svc := newTestService(repo, &fakeInventoryRepo{}, "135")

	intent, err := svc.CreateIntent(context.Background(), 42, priceBasket(domain.WalletTagA, "100"), nil)
	require.NoError(t, err)

	err = svc.CancelIntent(context.Background(), intent.PaymentID, 999)
	require.ErrorIs(t, err, domain.ErrIntentNotFound)

	stored, err := repo.GetByID(context.Background(), intent.PaymentID)
	require.NoError(t, err)
	require.Equal(t, domain.IntentStatusPending, stored.Status)
}

func TestCancelIntentNotPending(t *testing.T) {
	repo := newFakeIntentRepo()
	svc := newTestService(repo, &fakeInventoryRepo{}, "135")

	intent, err := svc.CreateIntent(context.Background(), 42, priceBasket(domain.WalletTagA, "100"), nil)
	require.NoError(t, err)

	ok, err := repo.TransitionStatus(context.Background(), intent.PaymentID, domain.IntentStatusPending, domain.IntentStatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)

	err = svc.CancelIntent(context.Background(), intent.PaymentID, 42)
	require.ErrorIs(t, err, domain.ErrIntentNotPending)
	require.True(t, domain.IsBusinessError(err))
}
