package payment

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/streamkey/streamkey/internal/config"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) Gateway {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Payment.SimulatedLatency = 0

	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)
	return NewMockGateway(cfg, log)
}

func confirmReq(token string) *ConfirmRequest {
	return &ConfirmRequest{
		UserID:             "user-1",
		PlanID:             types.PlanPremium,
		Amount:             decimal.RequireFromString("19.99"),
		Currency:           "EUR",
		PaymentMethodToken: token,
	}
}

func TestMockGatewayApproves(t *testing.T) {
	gw := newTestGateway(t)

	result, err := gw.Confirm(context.Background(), confirmReq("tok_visa"))
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.NotEmpty(t, result.PaymentID)
}

func TestMockGatewayDeclines(t *testing.T) {
	gw := newTestGateway(t)

	result, err := gw.Confirm(context.Background(), confirmReq("tok_declined_visa"))
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Equal(t, "card_declined", result.FailureReason)
}

func TestMockGatewayRequiresToken(t *testing.T) {
	gw := newTestGateway(t)

	_, err := gw.Confirm(context.Background(), confirmReq(""))
	assert.True(t, ierr.IsValidation(err))
}

func TestMockGatewayHonoursContextDeadline(t *testing.T) {
	gw := newTestGateway(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := gw.Confirm(ctx, confirmReq("tok_timeout"))
	assert.True(t, ierr.IsPaymentFailed(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}
