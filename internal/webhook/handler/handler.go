package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/streamkey/streamkey/internal/config"
	"github.com/streamkey/streamkey/internal/httpclient"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/pubsub"
	pubsubRouter "github.com/streamkey/streamkey/internal/pubsub/router"
	"github.com/streamkey/streamkey/internal/types"
)

// Handler interface for processing notification events
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

type handler struct {
	pubSub pubsub.PubSub
	config *config.WebhookConfig
	client httpclient.Client
	logger *logger.Logger
}

// NewHandler creates the notification delivery handler
func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	client httpclient.Client,
	logger *logger.Logger,
) (Handler, error) {
	return &handler{
		pubSub: pubSub,
		config: &cfg.Webhook,
		client: client,
		logger: logger,
	}, nil
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"notification_handler",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// outboundNotification is the body posted to the admin notification API,
// matching the shape its dashboard consumes.
type outboundNotification struct {
	Type    string                    `json:"type"`
	Channel types.NotificationChannel `json:"channel"`
	UserID  string                    `json:"userId"`
	Data    json.RawMessage           `json:"data,omitempty"`
}

// processMessage delivers a single notification event
func (h *handler) processMessage(msg *message.Message) error {
	ctx := msg.Context()

	var event types.WebhookEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal notification event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil // Don't retry on unmarshal errors
	}

	if h.config.Endpoint == "" {
		// No collaborator configured; log for local visibility and ack
		h.logger.Infow("notification",
			"event_name", event.EventName,
			"channel", event.Channel,
			"user_id", event.UserID,
			"payload", string(event.Payload),
		)
		return nil
	}

	body, err := json.Marshal(outboundNotification{
		Type:    event.EventName,
		Channel: event.Channel,
		UserID:  event.UserID,
		Data:    event.Payload,
	})
	if err != nil {
		return err
	}

	resp, err := h.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     h.config.Endpoint,
		Headers: h.config.Headers,
		Body:    body,
	})
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		h.logger.Errorw("notification endpoint rejected event",
			"status_code", resp.StatusCode,
			"event_name", event.EventName,
			"message_uuid", msg.UUID,
		)
		// Client errors won't heal on retry; ack and move on
		if resp.StatusCode < http.StatusInternalServerError {
			return nil
		}
		return errRetryable
	}

	h.logger.Debugw("notification delivered",
		"event_name", event.EventName,
		"channel", event.Channel,
		"user_id", event.UserID,
	)
	return nil
}

var errRetryable = &retryableError{}

type retryableError struct{}

func (e *retryableError) Error() string {
	return "notification endpoint returned a server error"
}
