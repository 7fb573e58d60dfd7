package payment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

func basketWithTags(tags ...domain.WalletTag) domain.BasketSnapshot {
	basket := make(domain.BasketSnapshot, 0, len(tags))
	for i, tag := range tags {
		basket = append(basket, domain.BasketItem{
			ProductID:    int64(i + 1),
			PayoutWallet: tag,
		})
	}
	return basket
}

func TestRouteWallet(t *testing.T) {
	tests := []struct {
		name   string
		basket domain.BasketSnapshot
		want   domain.WalletDest
	}{
		{
			name:   "empty basket goes to default wallet",
			basket: domain.BasketSnapshot{},
			want:   domain.WalletDestA,
		},
		{
			name:   "all walletA goes direct",
			basket: basketWithTags(domain.WalletTagA, domain.WalletTagA),
			want:   domain.WalletDestA,
		},
		{
			name:   "all walletB goes direct",
			basket: basketWithTags(domain.WalletTagB),
			want:   domain.WalletDestB,
		},
		{
			name:   "single split item forces shared",
			basket: basketWithTags(domain.WalletTagSplit),
			want:   domain.WalletDestShared,
		},
		{
			name:   "split item among direct items forces shared",
			basket: basketWithTags(domain.WalletTagA, domain.WalletTagSplit, domain.WalletTagA),
			want:   domain.WalletDestShared,
		},
		{
			name:   "mixed direct tags force shared",
			basket: basketWithTags(domain.WalletTagA, domain.WalletTagB),
			want:   domain.WalletDestShared,
		},
		{
			name:   "unknown tag falls back to shared",
			basket: basketWithTags(domain.WalletTag("legacy")),
			want:   domain.WalletDestShared,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RouteWallet(tt.basket))
		})
	}
}

func TestAddressFor(t *testing.T) {
	cfg := testConfig()

	require.Equal(t, cfg.WalletAAddress, cfg.AddressFor(domain.WalletDestA))
	require.Equal(t, cfg.WalletBAddress, cfg.AddressFor(domain.WalletDestB))
	require.Equal(t, cfg.CollectionAddress, cfg.AddressFor(domain.WalletDestShared))
}
