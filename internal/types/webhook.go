package types

import (
	"encoding/json"
	"time"
)

// NotificationChannel selects the audience of a notification event.
type NotificationChannel string

const (
	ChannelUser  NotificationChannel = "user"
	ChannelAdmin NotificationChannel = "admin"
)

// WebhookEvent represents a notification event to be delivered to the
// admin notification collaborator. Delivery is fire-and-forget: a lost
// event never corrupts subscription state.
type WebhookEvent struct {
	ID        string              `json:"id"`
	EventName string              `json:"event_name"`
	Channel   NotificationChannel `json:"channel"`
	UserID    string              `json:"user_id"`
	Timestamp time.Time           `json:"timestamp"`
	Payload   json.RawMessage     `json:"payload"`
}

// Subscription event names, mirrored by the admin dashboard.
const (
	WebhookEventSubscriptionCreated    = "subscription_created"
	WebhookEventSubscriptionChange     = "subscription_change"
	WebhookEventSubscriptionDowngraded = "subscription_downgraded"
	WebhookEventSubscriptionExpiring   = "subscription_expiring"
	WebhookEventSubscriptionCancelled  = "subscription_cancelled"
)
