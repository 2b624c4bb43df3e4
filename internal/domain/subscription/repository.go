package subscription

import (
	"context"

	"github.com/streamkey/streamkey/internal/types"
)

// Repository provides access to the subscription store. Update performs a
// compare-and-set on the record's version: a stale write fails with a
// version conflict instead of silently overwriting a concurrent change.
type Repository interface {
	Create(ctx context.Context, subscription *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) error
	List(ctx context.Context, filter *types.SubscriptionFilter) ([]*Subscription, error)
	Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error)
}
