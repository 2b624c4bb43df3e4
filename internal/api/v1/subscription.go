package v1

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streamkey/streamkey/internal/api/dto"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/service"
)

type SubscriptionHandler struct {
	service       service.SubscriptionService
	changeService service.SubscriptionChangeService
	log           *logger.Logger
}

func NewSubscriptionHandler(
	service service.SubscriptionService,
	changeService service.SubscriptionChangeService,
	log *logger.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		service:       service,
		changeService: changeService,
		log:           log,
	}
}

// bindStrictJSON decodes the request body rejecting unknown fields, so a
// misspelled attribute fails loudly instead of being silently dropped.
func bindStrictJSON(c *gin.Context, out any) error {
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// @Summary Create a subscription
// @Description Create the single subscription of a user; paid plans require a payment method token
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.CreateSubscriptionRequest true "Subscription configuration"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 402 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := bindStrictJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.CreateSubscription(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a user's subscription
// @Description Get the subscription owned by a user
// @Tags Subscriptions
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions/{user_id} [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	resp, err := h.service.GetSubscription(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel a subscription
// @Description Mark the user's subscription inactive; the record is kept
// @Tags Subscriptions
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions/{user_id}/cancel [post]
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	resp, err := h.service.CancelSubscription(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Request a plan change
// @Description Classify and, for downgrades, commit a plan change; upgrades return a requires_payment verdict
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Param change body dto.PlanChangeRequest true "Requested plan change"
// @Success 200 {object} dto.PlanChangeResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions/{user_id}/change [post]
func (h *SubscriptionHandler) RequestPlanChange(c *gin.Context) {
	var req dto.PlanChangeRequest
	if err := bindStrictJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.changeService.RequestPlanChange(c.Request.Context(), c.Param("user_id"), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Confirm payment for an upgrade
// @Description Settle the charge for a classified upgrade and apply it with a fresh billing window
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Param payment body dto.ConfirmPaymentRequest true "Payment confirmation"
// @Success 200 {object} dto.PlanChangeResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 402 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions/{user_id}/change/payment [post]
func (h *SubscriptionHandler) ConfirmPayment(c *gin.Context) {
	var req dto.ConfirmPaymentRequest
	if err := bindStrictJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.changeService.ConfirmPayment(c.Request.Context(), c.Param("user_id"), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel a pending plan change
// @Description Clear a deferred downgrade before the billing period ends
// @Tags Subscriptions
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions/{user_id}/change/pending [delete]
func (h *SubscriptionHandler) CancelPendingPlanChange(c *gin.Context) {
	resp, err := h.changeService.CancelPendingPlanChange(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
