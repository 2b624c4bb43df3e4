package subscription

import (
	"time"

	"github.com/streamkey/streamkey/internal/types"
)

// PlanChangeRequest is the transient tuple evaluated when a user asks to
// move to a different plan. It is never persisted.
type PlanChangeRequest struct {
	TargetPlanID types.PlanID `json:"target_plan_id"`
	IsYearly     bool         `json:"is_yearly"`
}

// PlanChangeVerdict is the classification of a requested plan change.
// Upgrades require a confirmed payment before any mutation happens;
// downgrades commit immediately but take effect at period end.
type PlanChangeVerdict struct {
	ChangeType      types.PlanChangeType `json:"change_type"`
	RequiresPayment bool                 `json:"requires_payment"`
}

// PlanChangeResult is returned once a change has been committed
type PlanChangeResult struct {
	Subscription  *Subscription        `json:"subscription"`
	ChangeType    types.PlanChangeType `json:"change_type"`
	EffectiveDate time.Time            `json:"effective_date"`

	// Deferred is set for downgrades: the change is recorded now but the
	// entitlements switch only at ExpiresAt
	Deferred bool `json:"deferred"`
}
