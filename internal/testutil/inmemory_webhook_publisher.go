package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/streamkey/streamkey/internal/types"
	webhookPublisher "github.com/streamkey/streamkey/internal/webhook/publisher"
)

// InMemoryWebhookPublisher records notification events for assertions
// instead of pushing them through the pubsub pipeline
type InMemoryWebhookPublisher struct {
	mu     sync.RWMutex
	events []*types.WebhookEvent
}

var _ webhookPublisher.WebhookPublisher = (*InMemoryWebhookPublisher)(nil)

func NewInMemoryWebhookPublisher() *InMemoryWebhookPublisher {
	return &InMemoryWebhookPublisher{
		events: make([]*types.WebhookEvent, 0),
	}
}

func (p *InMemoryWebhookPublisher) PublishWebhook(ctx context.Context, event *types.WebhookEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *InMemoryWebhookPublisher) Close() error {
	return nil
}

// GetEvents returns all recorded events
func (p *InMemoryWebhookPublisher) GetEvents() []*types.WebhookEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	events := make([]*types.WebhookEvent, len(p.events))
	copy(events, p.events)
	return events
}

// EventsByName returns all recorded events with the given name
func (p *InMemoryWebhookPublisher) EventsByName(name string) []*types.WebhookEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var matched []*types.WebhookEvent
	for _, evt := range p.events {
		if evt.EventName == name {
			matched = append(matched, evt)
		}
	}
	return matched
}

// HasEvent checks whether an event with the given name and channel was
// recorded for the user
func (p *InMemoryWebhookPublisher) HasEvent(name string, channel types.NotificationChannel, userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, evt := range p.events {
		if evt.EventName == name && evt.Channel == channel && evt.UserID == userID {
			return true
		}
	}
	return false
}

// DecodePayload unmarshals the payload of an event into out
func (p *InMemoryWebhookPublisher) DecodePayload(event *types.WebhookEvent, out any) error {
	return json.Unmarshal(event.Payload, out)
}

// Clear removes all recorded events
func (p *InMemoryWebhookPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = make([]*types.WebhookEvent, 0)
}
