package subscription

import (
	"time"

	"github.com/streamkey/streamkey/internal/types"
)

type Subscription struct {
	// ID is the unique identifier for the subscription
	ID string `db:"id" json:"id"`

	// UserID is the identifier of the owning user; one subscription per user
	UserID string `db:"user_id" json:"user_id"`

	// PlanID is the currently effective plan. During a pending downgrade
	// this remains the old plan until the billing period ends.
	PlanID types.PlanID `db:"plan_id" json:"plan_id"`

	// SubscriptionStatus is the billing status of the subscription
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`

	// ExpiresAt is the end of the current billing period in UTC
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`

	// IsYearly is the billing-cycle flag
	IsYearly bool `db:"is_yearly" json:"is_yearly"`

	// PreviousPlanID is the plan being left; set only while a downgrade
	// is pending
	PreviousPlanID *types.PlanID `db:"previous_plan_id" json:"previous_plan_id,omitempty"`

	// PendingPlanID is the deferred downgrade target, applied by the
	// reconciliation sweep once the current period ends
	PendingPlanID *types.PlanID `db:"pending_plan_id" json:"pending_plan_id,omitempty"`

	// Version guards concurrent read-modify-write cycles on this record
	Version int `db:"version" json:"version"`

	types.BaseModel
}

// HasPendingDowngrade reports whether a deferred downgrade is recorded
func (s *Subscription) HasPendingDowngrade() bool {
	return s.PendingPlanID != nil
}

// SetPendingDowngrade records a deferred downgrade to target. The effective
// plan and expiry are untouched until reconciliation applies the change.
func (s *Subscription) SetPendingDowngrade(target types.PlanID) {
	current := s.PlanID
	s.PreviousPlanID = &current
	s.PendingPlanID = &target
}

// ClearPendingDowngrade removes the deferred downgrade markers as a pair
func (s *Subscription) ClearPendingDowngrade() {
	s.PreviousPlanID = nil
	s.PendingPlanID = nil
}

// IsExpired reports whether the current billing period has ended at now
func (s *Subscription) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
