package dto

import (
	"github.com/streamkey/streamkey/internal/types"
)

// SubscriptionCreatedPayload accompanies subscription_created events
type SubscriptionCreatedPayload struct {
	Plan     types.PlanID `json:"plan"`
	IsYearly bool         `json:"is_yearly"`
}

// SubscriptionChangePayload accompanies subscription_change events,
// mirroring what the admin dashboard renders
type SubscriptionChangePayload struct {
	OldPlan types.PlanID `json:"old_plan"`
	NewPlan types.PlanID `json:"new_plan"`

	// Deferred marks a downgrade that takes effect at period end
	Deferred bool `json:"deferred,omitempty"`
}

// SubscriptionDowngradedPayload accompanies subscription_downgraded
// events emitted on forced lapse to the free tier
type SubscriptionDowngradedPayload struct {
	PreviousPlan types.PlanID `json:"previous_plan"`
	NewPlan      types.PlanID `json:"new_plan"`
}

// SubscriptionExpiringPayload accompanies subscription_expiring alerts
type SubscriptionExpiringPayload struct {
	Plan     types.PlanID `json:"plan"`
	DaysLeft int          `json:"days_left"`
}

// SubscriptionCancelledPayload accompanies subscription_cancelled events
type SubscriptionCancelledPayload struct {
	Plan types.PlanID `json:"plan"`
}
