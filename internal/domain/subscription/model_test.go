package subscription

import (
	"testing"
	"time"

	"github.com/streamkey/streamkey/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPendingDowngradeMarkers(t *testing.T) {
	sub := &Subscription{
		PlanID: types.PlanPremium,
	}
	assert.False(t, sub.HasPendingDowngrade())

	sub.SetPendingDowngrade(types.PlanStandard)
	assert.True(t, sub.HasPendingDowngrade())
	assert.Equal(t, types.PlanPremium, *sub.PreviousPlanID)
	assert.Equal(t, types.PlanStandard, *sub.PendingPlanID)
	// The effective plan is untouched
	assert.Equal(t, types.PlanPremium, sub.PlanID)

	sub.ClearPendingDowngrade()
	assert.False(t, sub.HasPendingDowngrade())
	assert.Nil(t, sub.PreviousPlanID)
	assert.Nil(t, sub.PendingPlanID)
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sub := &Subscription{ExpiresAt: now}

	assert.True(t, sub.IsExpired(now))
	assert.True(t, sub.IsExpired(now.Add(time.Second)))
	assert.False(t, sub.IsExpired(now.Add(-time.Second)))
}
