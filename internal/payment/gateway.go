package payment

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/streamkey/streamkey/internal/types"
)

// ConfirmRequest describes a single charge attempt for a plan upgrade or
// a paid first-time activation.
type ConfirmRequest struct {
	UserID             string          `json:"user_id"`
	PlanID             types.PlanID    `json:"plan_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	IsYearly           bool            `json:"is_yearly"`
	PaymentMethodToken string          `json:"payment_method_token"`
}

// ConfirmResult is the gateway's answer to a charge attempt
type ConfirmResult struct {
	PaymentID     string `json:"payment_id"`
	Succeeded     bool   `json:"succeeded"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Gateway is the payment provider boundary. The provider is a black box:
// the workflow only cares about success, failure, or timeout. A timed-out
// or cancelled confirmation must leave no subscription mutation behind.
type Gateway interface {
	Confirm(ctx context.Context, req *ConfirmRequest) (*ConfirmResult, error)
}
