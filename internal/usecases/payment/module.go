package payment

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/repository"
	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
)

// Service создание и отмена платёжных интентов
type Service struct {
	IntentRepo    repository.IIntentRepo
	InventoryRepo repository.IInventoryRepo
	Oracle        service.IPriceOracle
	Cfg           *Config
	Log           *slog.Logger
}

func New(
	intentRepo repository.IIntentRepo,
	inventoryRepo repository.IInventoryRepo,
	oracle service.IPriceOracle,
	cfg *Config,
	log *slog.Logger,
) *Service {
	return &Service{
		IntentRepo:    intentRepo,
		InventoryRepo: inventoryRepo,
		Oracle:        oracle,
		Cfg:           cfg,
		Log:           log,
	}
}

// CreateIntent создаёт платёжный интент по снимку корзины.
// Сумма в SOL считается по текущему курсу с наценкой и случайной добавкой,
// чтобы одновременные покупатели одного товара различались на цепочке.
func (s *Service) CreateIntent(ctx context.Context, userID int64, basket domain.BasketSnapshot, discountCode *string) (*domain.PaymentIntent, error) {
	if len(basket) == 0 {
		return nil, fmt.Errorf("cannot create payment intent for empty basket")
	}

	totalEUR := basket[0].Price
	for _, item := range basket[1:] {
		totalEUR = totalEUR.Add(item.Price)
	}
	if !totalEUR.IsPositive() {
		return nil, fmt.Errorf("basket total must be positive, got %s", totalEUR)
	}

	price := s.Oracle.GetPrice(ctx)

	// Округление вверх до 6 знаков: покупатель никогда не платит меньше эквивалента
	amount := totalEUR.Div(price).RoundCeil(6)
	amount = amount.Mul(s.Cfg.Markup).RoundCeil(6)
	if amount.LessThan(s.Cfg.MinIntentSOL) {
		// Слишком дешёвая корзина: комиссии и пыль съедят такой платёж
		s.Log.Warn("basket total below minimum payment",
			"user_id", userID,
			"total_eur", totalEUR,
			"amount_sol", amount,
		)
		return nil, domain.WrapBusinessError(domain.ErrAmountTooLow)
	}
	amount = amount.Add(domain.AmountOffset())

	now := time.Now().UTC()
	intent := &domain.PaymentIntent{
		PaymentID:      domain.NewPaymentID(userID, now),
		UserID:         userID,
		ExpectedAmount: amount,
		Destination:    RouteWallet(basket),
		Basket:         basket,
		DiscountCode:   discountCode,
		Status:         domain.IntentStatusPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.Cfg.IntentTTL()),
	}

	if err := s.IntentRepo.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	s.Log.Info("payment intent created",
		"payment_id", intent.PaymentID,
		"user_id", userID,
		"expected_amount", amount,
		"destination", intent.Destination,
		"total_eur", totalEUR,
		"price_eur", price,
	)

	return intent, nil
}

// CancelIntent отменяет ожидающий интент по запросу покупателя.
// Отменить можно только pending и только свой; резерв позиций возвращается.
func (s *Service) CancelIntent(ctx context.Context, paymentID string, userID int64) error {
	intent, err := s.IntentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if intent.UserID != userID {
		return domain.ErrIntentNotFound
	}

	ok, err := s.IntentRepo.TransitionStatus(ctx, paymentID, domain.IntentStatusPending, domain.IntentStatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return domain.WrapBusinessError(domain.ErrIntentNotPending)
	}

	if err := s.InventoryRepo.Unreserve(ctx, intent.Basket); err != nil {
		s.Log.Error("failed to unreserve basket after cancel",
			"error", err,
			"payment_id", paymentID,
		)
	}

	s.Log.Info("payment intent cancelled",
		"payment_id", paymentID,
		"user_id", userID,
	)
	return nil
}
