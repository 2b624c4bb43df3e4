package types

import (
	"time"
)

// SubscriptionStatus is the billing status of a subscription.
// Cancellation flips the status to inactive; records are never hard-deleted.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

func (s SubscriptionStatus) Validate() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusInactive:
		return true
	}
	return false
}

const (
	// MonthlyCycleDays and YearlyCycleDays are the billing window lengths
	// used when computing the next renewal date.
	MonthlyCycleDays = 30
	YearlyCycleDays  = 365
)

// NextRenewalDate computes the end of the billing window that starts at now.
func NextRenewalDate(now time.Time, isYearly bool) time.Time {
	days := MonthlyCycleDays
	if isYearly {
		days = YearlyCycleDays
	}
	return now.UTC().Add(time.Duration(days) * 24 * time.Hour)
}

// SubscriptionFilter narrows subscription listings. A nil field means no
// constraint on that attribute.
type SubscriptionFilter struct {
	SubscriptionStatus []SubscriptionStatus
	PlanID             *PlanID
	ExpiringBefore     *time.Time
	Limit              *int
	Offset             *int
}

func (f *SubscriptionFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return 0
	}
	return *f.Limit
}

func (f *SubscriptionFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

// IsUnlimited reports whether pagination applies to this filter.
func (f *SubscriptionFilter) IsUnlimited() bool {
	return f == nil || f.Limit == nil
}
