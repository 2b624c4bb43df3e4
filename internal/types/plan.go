package types

// PlanID identifies a subscription tier. The set is fixed; new tiers require
// a catalog change, not a database migration.
type PlanID string

const (
	PlanBasic     PlanID = "basic"
	PlanBasicPlus PlanID = "basicPlus"
	PlanStandard  PlanID = "standard"
	PlanPremium   PlanID = "premium"
)

// PlanIDs returns all known plan identifiers in ascending tier order.
func PlanIDs() []PlanID {
	return []PlanID{PlanBasic, PlanBasicPlus, PlanStandard, PlanPremium}
}

func (p PlanID) String() string {
	return string(p)
}

func (p PlanID) Validate() bool {
	switch p {
	case PlanBasic, PlanBasicPlus, PlanStandard, PlanPremium:
		return true
	}
	return false
}

// PlanChangeType is the verdict of classifying a requested plan change.
type PlanChangeType string

const (
	PlanChangeUpgrade    PlanChangeType = "upgrade"
	PlanChangeDowngrade  PlanChangeType = "downgrade"
	PlanChangeActivation PlanChangeType = "activation"
)
