package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRenewalDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	monthly := NextRenewalDate(now, false)
	assert.Equal(t, now.Add(30*24*time.Hour), monthly)

	yearly := NextRenewalDate(now, true)
	assert.Equal(t, now.Add(365*24*time.Hour), yearly)
}

func TestNextRenewalDateNormalisesToUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)

	got := NextRenewalDate(now, false)
	assert.Equal(t, time.UTC, got.Location())
}

func TestPlanIDValidate(t *testing.T) {
	for _, id := range PlanIDs() {
		assert.True(t, id.Validate())
	}
	assert.False(t, PlanID("gold").Validate())
	assert.False(t, PlanID("").Validate())
}

func TestSubscriptionFilterPagination(t *testing.T) {
	var f *SubscriptionFilter
	assert.True(t, f.IsUnlimited())
	assert.Equal(t, 0, f.GetLimit())
	assert.Equal(t, 0, f.GetOffset())

	limit, offset := 10, 20
	f = &SubscriptionFilter{Limit: &limit, Offset: &offset}
	assert.False(t, f.IsUnlimited())
	assert.Equal(t, 10, f.GetLimit())
	assert.Equal(t, 20, f.GetOffset())
}
