package dto

import (
	"time"

	"github.com/streamkey/streamkey/internal/domain/subscription"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/types"
	"github.com/streamkey/streamkey/internal/validator"
)

// CreateSubscriptionRequest creates the single subscription of a user.
// Paid plans require a payment method token; the free tier activates
// without one.
type CreateSubscriptionRequest struct {
	UserID             string       `json:"user_id" validate:"required"`
	PlanID             types.PlanID `json:"plan_id" validate:"required"`
	IsYearly           bool         `json:"is_yearly"`
	PaymentMethodToken string       `json:"payment_method_token"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.PlanID.Validate() {
		return ierr.NewErrorf("unknown plan %s", r.PlanID).
			WithHint("Choose one of the published plans").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PlanChangeRequest asks to move the subscription to a different plan
type PlanChangeRequest struct {
	TargetPlanID types.PlanID `json:"target_plan_id" validate:"required"`
	IsYearly     bool         `json:"is_yearly"`
}

func (r *PlanChangeRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.TargetPlanID.Validate() {
		return ierr.NewErrorf("unknown plan %s", r.TargetPlanID).
			WithHint("Choose one of the published plans").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ConfirmPaymentRequest settles the payment for a previously classified
// upgrade and applies it
type ConfirmPaymentRequest struct {
	TargetPlanID       types.PlanID `json:"target_plan_id" validate:"required"`
	IsYearly           bool         `json:"is_yearly"`
	PaymentMethodToken string       `json:"payment_method_token" validate:"required"`
}

func (r *ConfirmPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.TargetPlanID.Validate() {
		return ierr.NewErrorf("unknown plan %s", r.TargetPlanID).
			WithHint("Choose one of the published plans").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionResponse is the public shape of a subscription record
type SubscriptionResponse struct {
	ID                 string                   `json:"id"`
	UserID             string                   `json:"user_id"`
	PlanID             types.PlanID             `json:"plan_id"`
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	ExpiresAt          time.Time                `json:"expires_at"`
	IsYearly           bool                     `json:"is_yearly"`
	PreviousPlanID     *types.PlanID            `json:"previous_plan_id,omitempty"`
	PendingPlanID      *types.PlanID            `json:"pending_plan_id,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

func NewSubscriptionResponse(s *subscription.Subscription) *SubscriptionResponse {
	if s == nil {
		return nil
	}
	return &SubscriptionResponse{
		ID:                 s.ID,
		UserID:             s.UserID,
		PlanID:             s.PlanID,
		SubscriptionStatus: s.SubscriptionStatus,
		ExpiresAt:          s.ExpiresAt,
		IsYearly:           s.IsYearly,
		PreviousPlanID:     s.PreviousPlanID,
		PendingPlanID:      s.PendingPlanID,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// PlanChangeResponse is returned by the change endpoints. For upgrades the
// first call returns only the verdict; the subscription is included once the
// change has been committed.
type PlanChangeResponse struct {
	ChangeType      types.PlanChangeType  `json:"change_type"`
	RequiresPayment bool                  `json:"requires_payment"`
	Deferred        bool                  `json:"deferred"`
	EffectiveDate   *time.Time            `json:"effective_date,omitempty"`
	Subscription    *SubscriptionResponse `json:"subscription,omitempty"`
}

func NewPlanChangeResponse(result *subscription.PlanChangeResult) *PlanChangeResponse {
	if result == nil {
		return nil
	}
	effective := result.EffectiveDate
	return &PlanChangeResponse{
		ChangeType:    result.ChangeType,
		Deferred:      result.Deferred,
		EffectiveDate: &effective,
		Subscription:  NewSubscriptionResponse(result.Subscription),
	}
}

// ReconciliationItem reports the outcome of one subscription in a sweep
type ReconciliationItem struct {
	SubscriptionID string       `json:"subscription_id"`
	UserID         string       `json:"user_id"`
	PlanID         types.PlanID `json:"plan_id"`
	Action         string       `json:"action"`
	Error          string       `json:"error,omitempty"`
}

// ReconciliationResponse summarises one reconciliation sweep
type ReconciliationResponse struct {
	StartedAt    time.Time             `json:"started_at"`
	Processed    int                   `json:"processed"`
	TotalSuccess int                   `json:"total_success"`
	TotalFailed  int                   `json:"total_failed"`
	Items        []*ReconciliationItem `json:"items"`
}

// Reconciliation sweep actions
const (
	ReconcileActionNone              = "none"
	ReconcileActionExpiringAlert     = "expiring_alert"
	ReconcileActionAppliedPending    = "applied_pending_downgrade"
	ReconcileActionForcedLapse       = "forced_lapse"
	ReconcileActionRenewedFreePeriod = "renewed_free_period"
)
