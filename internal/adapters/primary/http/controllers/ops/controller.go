package opsController

import (
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/repository"
)

// statuses, по которым оператору разрешено листать интенты
var listableStatuses = map[string]domain.IntentStatus{
	"pending":    domain.IntentStatusPending,
	"processing": domain.IntentStatusProcessing,
	"confirmed":  domain.IntentStatusConfirmed,
	"failed":     domain.IntentStatusFailed,
	"expired":    domain.IntentStatusExpired,
	"cancelled":  domain.IntentStatusCancelled,
}

// OpsController операторские ручки: просмотр зависших интентов и журнала
// форвардинга для ручной сверки
type OpsController struct {
	intentRepo     repository.IIntentRepo
	forwardLogRepo repository.IForwardLogRepo
	log            *slog.Logger
}

func New(intentRepo repository.IIntentRepo, forwardLogRepo repository.IForwardLogRepo, log *slog.Logger) *OpsController {
	return &OpsController{
		intentRepo:     intentRepo,
		forwardLogRepo: forwardLogRepo,
		log:            log,
	}
}

func (c *OpsController) RegisterRoutes(r *gin.Engine) {
	ops := r.Group("/ops")
	{
		ops.GET("/intents", c.listIntents)
		ops.GET("/intents/:id/forwards", c.listForwards)
	}
}

// listIntents список интентов в заданном статусе (по умолчанию confirmed:
// это зависшие после сбоя финализации платежи)
func (c *OpsController) listIntents(ctx *gin.Context) {
	statusParam := ctx.DefaultQuery("status", "confirmed")
	status, ok := listableStatuses[statusParam]
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + statusParam})
		return
	}

	intents, err := c.intentRepo.ListByStatus(ctx.Request.Context(), status)
	if err != nil {
		c.log.Error("failed to list intents", "error", err, "status", status)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list intents"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":  statusParam,
		"count":   len(intents),
		"intents": intents,
	})
}

// listForwards журнал попыток форвардинга по платежу
func (c *OpsController) listForwards(ctx *gin.Context) {
	paymentID := ctx.Param("id")

	entries, err := c.forwardLogRepo.ListByPaymentID(ctx.Request.Context(), paymentID)
	if err != nil {
		c.log.Error("failed to list forwarding log", "error", err, "payment_id", paymentID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list forwarding log"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"payment_id": paymentID,
		"count":      len(entries),
		"forwards":   entries,
	})
}
