package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/streamkey/streamkey/internal/domain/subscription"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/types"
)

// SubscriptionStore implements subscription.Repository on a plain map.
// It carries the same version compare-and-set semantics as the MySQL
// store so the plan-change workflow behaves identically in mock mode
// and in tests.
type SubscriptionStore struct {
	mu       sync.RWMutex
	items    map[string]*subscription.Subscription
	byUserID map[string]string
}

// NewSubscriptionStore creates an empty in-memory subscription store
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		items:    make(map[string]*subscription.Subscription),
		byUserID: make(map[string]string),
	}
}

func (s *SubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[sub.ID]; exists {
		return ierr.NewErrorf("subscription %s already exists", sub.ID).
			WithHint("Subscription already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	if _, exists := s.byUserID[sub.UserID]; exists {
		return ierr.NewErrorf("user %s already has a subscription", sub.UserID).
			WithHint("A subscription already exists for this user").
			Mark(ierr.ErrAlreadyExists)
	}

	s.items[sub.ID] = copySubscription(sub)
	s.byUserID[sub.UserID] = sub.ID
	return nil
}

func (s *SubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, exists := s.items[id]
	if !exists {
		return nil, ierr.NewErrorf("subscription %s not found", id).
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

func (s *SubscriptionStore) GetByUserID(ctx context.Context, userID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byUserID[userID]
	if !exists {
		return nil, ierr.NewErrorf("no subscription for user %s", userID).
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(s.items[id]), nil
}

// Update applies the change only when the caller's snapshot version still
// matches the stored one.
func (s *SubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.items[sub.ID]
	if !exists {
		return ierr.NewErrorf("subscription %s not found", sub.ID).
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	if stored.Version != sub.Version {
		return ierr.NewErrorf("stale write on subscription %s", sub.ID).
			WithHint("The subscription was modified concurrently, please retry").
			Mark(ierr.ErrVersionConflict)
	}

	updated := copySubscription(sub)
	updated.Version = sub.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	s.items[sub.ID] = updated

	sub.Version = updated.Version
	sub.UpdatedAt = updated.UpdatedAt
	return nil
}

func (s *SubscriptionStore) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.items {
		if matchesFilter(sub, filter) {
			result = append(result, copySubscription(sub))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})

	if filter != nil && !filter.IsUnlimited() {
		start := filter.GetOffset()
		if start >= len(result) {
			return []*subscription.Subscription{}, nil
		}
		end := start + filter.GetLimit()
		if end > len(result) {
			end = len(result)
		}
		result = result[start:end]
	}

	return result, nil
}

func (s *SubscriptionStore) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sub := range s.items {
		if matchesFilter(sub, filter) {
			count++
		}
	}
	return count, nil
}

// Clear drops all records; used between tests
func (s *SubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*subscription.Subscription)
	s.byUserID = make(map[string]string)
}

func matchesFilter(sub *subscription.Subscription, filter *types.SubscriptionFilter) bool {
	if sub.BaseModel.Status != types.StatusPublished {
		return false
	}
	if filter == nil {
		return true
	}
	if len(filter.SubscriptionStatus) > 0 && !lo.Contains(filter.SubscriptionStatus, sub.SubscriptionStatus) {
		return false
	}
	if filter.PlanID != nil && sub.PlanID != *filter.PlanID {
		return false
	}
	if filter.ExpiringBefore != nil && sub.ExpiresAt.After(*filter.ExpiringBefore) {
		return false
	}
	return true
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	out := *sub
	if sub.PreviousPlanID != nil {
		out.PreviousPlanID = lo.ToPtr(*sub.PreviousPlanID)
	}
	if sub.PendingPlanID != nil {
		out.PendingPlanID = lo.ToPtr(*sub.PendingPlanID)
	}
	return &out
}
