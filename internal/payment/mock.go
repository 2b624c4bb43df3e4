package payment

import (
	"context"
	"strings"
	"time"

	"github.com/streamkey/streamkey/internal/config"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/types"
)

// Tokens the mock gateway reacts to deterministically. Anything else is
// approved after the simulated processing latency.
const (
	TokenDeclinedPrefix = "tok_declined"
	TokenTimeoutPrefix  = "tok_timeout"
)

// mockGateway simulates the external payment provider. It approves every
// charge after a configurable latency, except for the well-known decline
// and timeout tokens used by tests and local development.
type mockGateway struct {
	latency time.Duration
	logger  *logger.Logger
}

// NewMockGateway creates the mocked payment provider
func NewMockGateway(cfg *config.Configuration, logger *logger.Logger) Gateway {
	return &mockGateway{
		latency: cfg.Payment.SimulatedLatency,
		logger:  logger,
	}
}

func (g *mockGateway) Confirm(ctx context.Context, req *ConfirmRequest) (*ConfirmResult, error) {
	if req.PaymentMethodToken == "" {
		return nil, ierr.NewError("payment method token is required").
			WithHint("Please provide a payment method").
			Mark(ierr.ErrValidation)
	}

	latency := g.latency
	if strings.HasPrefix(req.PaymentMethodToken, TokenTimeoutPrefix) {
		// Simulate a provider that never answers; the caller's context
		// deadline decides when to give up.
		latency = 24 * time.Hour
	}

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ierr.WithError(ctx.Err()).
				WithHint("Payment confirmation timed out").
				Mark(ierr.ErrPaymentFailed)
		case <-timer.C:
		}
	}

	if strings.HasPrefix(req.PaymentMethodToken, TokenDeclinedPrefix) {
		g.logger.Infow("mock gateway declined charge",
			"user_id", req.UserID,
			"plan_id", req.PlanID,
			"amount", req.Amount)
		return &ConfirmResult{
			PaymentID:     types.GenerateShortIDWithPrefix("pay_"),
			Succeeded:     false,
			FailureReason: "card_declined",
		}, nil
	}

	g.logger.Infow("mock gateway approved charge",
		"user_id", req.UserID,
		"plan_id", req.PlanID,
		"amount", req.Amount,
		"currency", req.Currency,
		"is_yearly", req.IsYearly)

	return &ConfirmResult{
		PaymentID: types.GenerateShortIDWithPrefix("pay_"),
		Succeeded: true,
	}, nil
}
