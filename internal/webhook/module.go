package webhook

import (
	"github.com/streamkey/streamkey/internal/config"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/pubsub"
	"github.com/streamkey/streamkey/internal/pubsub/memory"
	"github.com/streamkey/streamkey/internal/types"
	"github.com/streamkey/streamkey/internal/webhook/handler"
	"github.com/streamkey/streamkey/internal/webhook/publisher"
	"go.uber.org/fx"
)

// Module provides all notification-related dependencies
var Module = fx.Options(
	fx.Provide(
		providePubSub,
		publisher.NewPublisher,
		handler.NewHandler,
		NewWebhookService,
	),
)

func providePubSub(
	cfg *config.Configuration,
	logger *logger.Logger,
) pubsub.PubSub {
	switch cfg.Webhook.PubSub {
	case types.MemoryPubSub:
		return memory.NewPubSub(cfg, logger)
	}
	panic("unsupported pubsub type")
}
