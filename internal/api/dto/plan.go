package dto

import (
	"github.com/shopspring/decimal"
	"github.com/streamkey/streamkey/internal/domain/plan"
	"github.com/streamkey/streamkey/internal/types"
)

// PlanResponse is the public shape of a catalog plan
type PlanResponse struct {
	ID           types.PlanID     `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	MonthlyPrice decimal.Decimal  `json:"monthly_price"`
	YearlyPrice  *decimal.Decimal `json:"yearly_price,omitempty"`
	Currency     string           `json:"currency"`
	Rank         int              `json:"rank"`
	Features     []string         `json:"features"`
}

// ListPlansResponse represents the response for listing plans
type ListPlansResponse struct {
	Items []*PlanResponse `json:"items"`
	Total int             `json:"total"`
}

func NewPlanResponse(p *plan.Plan) *PlanResponse {
	if p == nil {
		return nil
	}
	return &PlanResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		MonthlyPrice: p.MonthlyPrice,
		YearlyPrice:  p.YearlyPrice,
		Currency:     plan.Currency,
		Rank:         p.Rank,
		Features:     p.Features,
	}
}
