package webhook

import (
	"context"
	"fmt"

	"github.com/streamkey/streamkey/internal/config"
	"github.com/streamkey/streamkey/internal/logger"
	pubsubRouter "github.com/streamkey/streamkey/internal/pubsub/router"
	"github.com/streamkey/streamkey/internal/webhook/handler"
	"github.com/streamkey/streamkey/internal/webhook/publisher"
)

// WebhookService orchestrates the notification pipeline
type WebhookService struct {
	config    *config.Configuration
	publisher publisher.WebhookPublisher
	handler   handler.Handler
	logger    *logger.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	cfg *config.Configuration,
	publisher publisher.WebhookPublisher,
	h handler.Handler,
	l *logger.Logger,
) *WebhookService {
	return &WebhookService{
		config:    cfg,
		publisher: publisher,
		handler:   h,
		logger:    l,
	}
}

// Start registers the delivery handler on the message router
func (s *WebhookService) Start(ctx context.Context, router *pubsubRouter.Router) error {
	if !s.config.Webhook.Enabled {
		s.logger.Info("notification service disabled")
		return nil
	}

	s.handler.RegisterHandler(router)
	s.logger.Info("notification service started")
	return nil
}

// Stop stops the notification pipeline
func (s *WebhookService) Stop() error {
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close notification publisher: %w", err)
	}
	s.logger.Info("notification service stopped")
	return nil
}
