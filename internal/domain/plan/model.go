package plan

import (
	"github.com/shopspring/decimal"
	"github.com/streamkey/streamkey/internal/types"
)

// Currency is the settlement currency for all catalog prices.
const Currency = "EUR"

type Plan struct {
	// ID is the tier identifier, one of the fixed enumerated set
	ID types.PlanID `db:"id" json:"id"`

	// Name is the user-facing display name
	Name string `db:"name" json:"name"`

	// Description is a short marketing blurb shown on the plan picker
	Description string `db:"description" json:"description"`

	// MonthlyPrice is the monthly price in EUR
	MonthlyPrice decimal.Decimal `db:"monthly_price" json:"monthly_price"`

	// YearlyPrice is the yearly price in EUR; nil when the tier has no
	// yearly billing option
	YearlyPrice *decimal.Decimal `db:"yearly_price" json:"yearly_price,omitempty"`

	// Rank is the ordinal used for upgrade/downgrade comparison,
	// ascending from the free tier
	Rank int `db:"rank" json:"rank"`

	// Features are the entitlement descriptors of the tier
	Features []string `db:"features" json:"features"`
}

// IsFree reports whether the plan is the free tier
func (p *Plan) IsFree() bool {
	return p.ID == types.PlanBasic
}

// SupportsYearly reports whether the tier offers yearly billing
func (p *Plan) SupportsYearly() bool {
	return p.YearlyPrice != nil
}

// Price returns the price for the requested billing cycle. Tiers without a
// yearly option fall back to the monthly price.
func (p *Plan) Price(isYearly bool) decimal.Decimal {
	if isYearly && p.YearlyPrice != nil {
		return *p.YearlyPrice
	}
	return p.MonthlyPrice
}
