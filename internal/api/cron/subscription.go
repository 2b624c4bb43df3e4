package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/service"
)

// SubscriptionHandler handles subscription related cron jobs
type SubscriptionHandler struct {
	billingService service.BillingService
	logger         *logger.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(
	billingService service.BillingService,
	logger *logger.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		billingService: billingService,
		logger:         logger,
	}
}

// ReconcileSubscriptions runs the daily reconciliation sweep: expiry alerts,
// deferred downgrades, and forced lapses to the free tier
func (h *SubscriptionHandler) ReconcileSubscriptions(c *gin.Context) {
	h.logger.Infow("starting subscription reconciliation cron job")

	response, err := h.billingService.RunReconciliation(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("failed to reconcile subscriptions",
			"error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed subscription reconciliation cron job",
		"processed", response.Processed,
		"failed", response.TotalFailed)
	c.JSON(http.StatusOK, response)
}
