package intentsController

import (
	"fmt"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	paymentUsecase "github.com/admin/tg-bots/shop-bot/internal/usecases/payment"
)

// IntentsController создание и отмена платёжных интентов по запросу бота
type IntentsController struct {
	PaymentService *paymentUsecase.Service
	Log            *slog.Logger
}

func New(
	paymentService *paymentUsecase.Service,
	log *slog.Logger,
) *IntentsController {
	return &IntentsController{
		PaymentService: paymentService,
		Log:            log,
	}
}

func (c *IntentsController) RegisterRoutes(router *gin.Engine) {
	intents := router.Group("/api/intents")
	{
		intents.POST("", c.createIntent)
		intents.POST("/:id/cancel", c.cancelIntent)
	}
}

// CreateIntentRequest запрос на создание платёжного интента
type CreateIntentRequest struct {
	UserID       int64              `json:"user_id" binding:"required"`
	Basket       []CreateIntentItem `json:"basket" binding:"required,min=1"`
	DiscountCode *string            `json:"discount_code,omitempty"`
}

// CreateIntentItem позиция корзины в запросе
type CreateIntentItem struct {
	ProductID    int64  `json:"product_id" binding:"required"`
	Name         string `json:"name"`
	ProductType  string `json:"product_type"`
	Size         string `json:"size"`
	City         string `json:"city"`
	District     string `json:"district"`
	Price        string `json:"price" binding:"required"` // EUR, строкой во избежание потери точности
	PayoutWallet string `json:"payout_wallet" binding:"required"`
	PickupText   string `json:"pickup_text,omitempty"`
}

// CreateIntentResponse ответ с реквизитами оплаты
type CreateIntentResponse struct {
	PaymentID      string `json:"payment_id"`
	ExpectedAmount string `json:"expected_amount"` // SOL
	Address        string `json:"address"`
	ExpiresAt      string `json:"expires_at"`
}

// createIntent создаёт интент по снимку корзины и возвращает реквизиты оплаты
func (c *IntentsController) createIntent(ctx *gin.Context) {
	var req CreateIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.Log.Warn("failed to bind create intent request", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	basket, err := toBasketSnapshot(req.Basket)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent, err := c.PaymentService.CreateIntent(ctx.Request.Context(), req.UserID, basket, req.DiscountCode)
	switch {
	case err == nil:
	case domain.IsBusinessError(err):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	default:
		c.Log.Error("failed to create payment intent", "error", err, "user_id", req.UserID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment intent"})
		return
	}

	ctx.JSON(http.StatusOK, CreateIntentResponse{
		PaymentID:      intent.PaymentID,
		ExpectedAmount: intent.ExpectedAmount.String(),
		Address:        c.PaymentService.Cfg.AddressFor(intent.Destination),
		ExpiresAt:      intent.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// CancelIntentRequest запрос на отмену интента
type CancelIntentRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// cancelIntent отменяет ожидающий интент по запросу покупателя
func (c *IntentsController) cancelIntent(ctx *gin.Context) {
	paymentID := ctx.Param("id")

	var req CancelIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.Log.Warn("failed to bind cancel intent request", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	err := c.PaymentService.CancelIntent(ctx.Request.Context(), paymentID, req.UserID)
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, gin.H{"cancelled": true, "payment_id": paymentID})
	case domain.IsBusinessError(err):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.Log.Error("failed to cancel payment intent", "error", err, "payment_id", paymentID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel payment intent"})
	}
}

// toBasketSnapshot переводит позиции запроса в доменный снимок корзины
func toBasketSnapshot(items []CreateIntentItem) (domain.BasketSnapshot, error) {
	basket := make(domain.BasketSnapshot, 0, len(items))
	for _, item := range items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price for product %d: %w", item.ProductID, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price for product %d must be positive", item.ProductID)
		}

		tag := domain.WalletTag(item.PayoutWallet)
		switch tag {
		case domain.WalletTagA, domain.WalletTagB, domain.WalletTagSplit:
		default:
			return nil, fmt.Errorf("unknown payout wallet for product %d: %s", item.ProductID, item.PayoutWallet)
		}

		basket = append(basket, domain.BasketItem{
			ProductID:    item.ProductID,
			Name:         item.Name,
			ProductType:  item.ProductType,
			Size:         item.Size,
			City:         item.City,
			District:     item.District,
			Price:        price,
			PayoutWallet: tag,
			PickupText:   item.PickupText,
		})
	}
	return basket, nil
}
