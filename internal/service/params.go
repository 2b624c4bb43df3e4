package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/streamkey/streamkey/internal/cache"
	"github.com/streamkey/streamkey/internal/config"
	"github.com/streamkey/streamkey/internal/domain/plan"
	"github.com/streamkey/streamkey/internal/domain/subscription"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/mysql"
	"github.com/streamkey/streamkey/internal/payment"
	"github.com/streamkey/streamkey/internal/types"
	webhookPublisher "github.com/streamkey/streamkey/internal/webhook/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     mysql.IClient
	Cache  cache.Cache

	// Repositories
	PlanRepo plan.Repository
	SubRepo  subscription.Repository

	// Collaborators
	PaymentGateway   payment.Gateway
	WebhookPublisher webhookPublisher.WebhookPublisher
}

// NewServiceParams assembles the shared service dependencies
func NewServiceParams(
	logger *logger.Logger,
	cfg *config.Configuration,
	db mysql.IClient,
	c cache.Cache,
	planRepo plan.Repository,
	subRepo subscription.Repository,
	gateway payment.Gateway,
	publisher webhookPublisher.WebhookPublisher,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           cfg,
		DB:               db,
		Cache:            c,
		PlanRepo:         planRepo,
		SubRepo:          subRepo,
		PaymentGateway:   gateway,
		WebhookPublisher: publisher,
	}
}

// withTx runs fn inside a database transaction when a database client is
// configured; in-memory mode runs fn directly.
func (p ServiceParams) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.DB == nil {
		return fn(ctx)
	}
	return p.DB.WithTx(ctx, fn)
}

// retryOnConflict re-runs fn with exponential backoff while it fails with a
// version conflict. Conflicts happen when a concurrent request or the
// reconciliation sweep committed first; fn must re-read its snapshot on
// every attempt.
func (p ServiceParams) retryOnConflict(ctx context.Context, fn func(ctx context.Context) error) error {
	retries := 3
	if p.Config != nil && p.Config.Billing.CommitRetries > 0 {
		retries = p.Config.Billing.CommitRetries
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond

	return backoff.Retry(func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ierr.IsVersionConflict(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx))
}

// publishNotification fires a notification event without blocking the
// workflow. Failures are logged and swallowed: a lost notification never
// rolls back a subscription mutation.
func (p ServiceParams) publishNotification(
	ctx context.Context,
	eventName string,
	channel types.NotificationChannel,
	userID string,
	payload any,
) {
	if p.WebhookPublisher == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.Logger.Errorw("failed to marshal notification payload",
			"event_name", eventName,
			"error", err)
		return
	}

	event := &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: eventName,
		Channel:   channel,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   json.RawMessage(body),
	}

	if err := p.WebhookPublisher.PublishWebhook(ctx, event); err != nil {
		p.Logger.Errorw("failed to publish notification event",
			"event_name", eventName,
			"user_id", userID,
			"error", err)
	}
}
