package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/streamkey/streamkey/internal/domain/subscription"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubscription(userID string, planID types.PlanID) *subscription.Subscription {
	now := time.Now().UTC()
	return &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:             userID,
		PlanID:             planID,
		SubscriptionStatus: types.SubscriptionStatusActive,
		ExpiresAt:          now.Add(30 * 24 * time.Hour),
		Version:            1,
		BaseModel: types.BaseModel{
			Status:    types.StatusPublished,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func TestSubscriptionStoreCreateAndGet(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()

	sub := newTestSubscription("user-1", types.PlanBasic)
	require.NoError(t, store.Create(ctx, sub))

	got, err := store.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.UserID, got.UserID)

	byUser, err := store.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, byUser.ID)

	_, err = store.GetByUserID(ctx, "ghost")
	assert.True(t, ierr.IsNotFound(err))
}

func TestSubscriptionStoreOneSubscriptionPerUser(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestSubscription("user-1", types.PlanBasic)))

	err := store.Create(ctx, newTestSubscription("user-1", types.PlanPremium))
	assert.True(t, ierr.IsAlreadyExists(err))
}

func TestSubscriptionStoreStaleWriteRejected(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()

	sub := newTestSubscription("user-1", types.PlanBasic)
	require.NoError(t, store.Create(ctx, sub))

	first, err := store.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	second, err := store.GetByUserID(ctx, "user-1")
	require.NoError(t, err)

	first.PlanID = types.PlanPremium
	require.NoError(t, store.Update(ctx, first))

	// The second snapshot is now stale
	second.PlanID = types.PlanStandard
	err = store.Update(ctx, second)
	assert.True(t, ierr.IsVersionConflict(err))

	// The winner's write is intact
	got, err := store.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PlanPremium, got.PlanID)
}

func TestSubscriptionStoreUpdateBumpsVersion(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()

	sub := newTestSubscription("user-1", types.PlanBasic)
	require.NoError(t, store.Create(ctx, sub))

	got, err := store.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	v := got.Version

	require.NoError(t, store.Update(ctx, got))
	assert.Equal(t, v+1, got.Version)
}

func TestSubscriptionStoreReturnsCopies(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()

	sub := newTestSubscription("user-1", types.PlanBasic)
	require.NoError(t, store.Create(ctx, sub))

	got, err := store.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	got.PlanID = types.PlanPremium

	fresh, err := store.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanBasic, fresh.PlanID)
}

func TestSubscriptionStoreListFilter(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	active := newTestSubscription("user-1", types.PlanPremium)
	active.ExpiresAt = now.Add(24 * time.Hour)
	require.NoError(t, store.Create(ctx, active))

	inactive := newTestSubscription("user-2", types.PlanPremium)
	inactive.SubscriptionStatus = types.SubscriptionStatusInactive
	inactive.ExpiresAt = now.Add(24 * time.Hour)
	require.NoError(t, store.Create(ctx, inactive))

	far := newTestSubscription("user-3", types.PlanBasic)
	far.ExpiresAt = now.Add(60 * 24 * time.Hour)
	require.NoError(t, store.Create(ctx, far))

	subs, err := store.List(ctx, &types.SubscriptionFilter{
		SubscriptionStatus: []types.SubscriptionStatus{types.SubscriptionStatusActive},
		ExpiringBefore:     lo.ToPtr(now.Add(7 * 24 * time.Hour)),
	})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "user-1", subs[0].UserID)

	count, err := store.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSubscriptionStoreListPagination(t *testing.T) {
	store := NewSubscriptionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		sub := newTestSubscription(types.GenerateUUID(), types.PlanBasic)
		sub.ExpiresAt = now.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Create(ctx, sub))
	}

	page, err := store.List(ctx, &types.SubscriptionFilter{
		Limit:  lo.ToPtr(2),
		Offset: lo.ToPtr(2),
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Ordered by expiry ascending
	assert.True(t, page[0].ExpiresAt.Before(page[1].ExpiresAt))
}
