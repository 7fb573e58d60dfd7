package payment

import (
	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// RouteWallet выбирает кошелёк-получатель заказа по тегам выплат его позиций.
// Однородная корзина walletA или walletB платится напрямую продавцу; любая
// позиция split или смешанные теги уводят весь заказ на общий кошелёк,
// откуда выручка расходится форвардингом.
func RouteWallet(basket domain.BasketSnapshot) domain.WalletDest {
	// Пустая корзина недостижима из создания интента; кошелёк по
	// умолчанию walletA
	if len(basket) == 0 {
		return domain.WalletDestA
	}

	first := basket[0].PayoutWallet
	for _, item := range basket {
		if item.PayoutWallet == domain.WalletTagSplit {
			return domain.WalletDestShared
		}
		if item.PayoutWallet != first {
			return domain.WalletDestShared
		}
	}

	switch first {
	case domain.WalletTagA:
		return domain.WalletDestA
	case domain.WalletTagB:
		return domain.WalletDestB
	default:
		return domain.WalletDestShared
	}
}

// AddressFor адрес кошелька-получателя по назначению интента
func (c *Config) AddressFor(dest domain.WalletDest) string {
	switch dest {
	case domain.WalletDestA:
		return c.WalletAAddress
	case domain.WalletDestB:
		return c.WalletBAddress
	default:
		return c.CollectionAddress
	}
}
