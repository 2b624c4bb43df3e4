package plan

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/types"
)

// catalog is the static, process-lifetime plan catalog. Tiers are immutable
// and defined here rather than in the database.
type catalog struct {
	plans []*Plan
	byID  map[types.PlanID]*Plan
}

// NewCatalogRepository returns the built-in plan catalog
func NewCatalogRepository() Repository {
	plans := defaultPlans()
	byID := make(map[types.PlanID]*Plan, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}
	return &catalog{plans: plans, byID: byID}
}

func (c *catalog) List(ctx context.Context) ([]*Plan, error) {
	out := make([]*Plan, len(c.plans))
	copy(out, c.plans)
	return out, nil
}

func (c *catalog) Get(ctx context.Context, id types.PlanID) (*Plan, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, ierr.NewErrorf("plan %s not found", id).
			WithHint("Unknown plan identifier").
			WithReportableDetails(map[string]any{"plan_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func defaultPlans() []*Plan {
	return []*Plan{
		{
			ID:           types.PlanBasic,
			Name:         "Basic",
			Description:  "Free access with ads",
			MonthlyPrice: decimal.Zero,
			Rank:         0,
			Features: []string{
				"Video quality: Full HD (1080p)",
				"2 simultaneous streams",
				"2 profiles",
				"Occasional ad breaks",
			},
		},
		{
			ID:           types.PlanBasicPlus,
			Name:         "Basic Plus",
			Description:  "Ad-free entry tier",
			MonthlyPrice: decimal.RequireFromString("4.99"),
			Rank:         1,
			Features: []string{
				"Video quality: Full HD (1080p)",
				"No ads",
				"4 simultaneous streams",
				"2 profiles",
			},
		},
		{
			ID:           types.PlanStandard,
			Name:         "Standard",
			Description:  "Best choice for families",
			MonthlyPrice: decimal.RequireFromString("14.99"),
			YearlyPrice:  lo.ToPtr(decimal.RequireFromString("179.00")),
			Rank:         2,
			Features: []string{
				"Video quality: 1080p-2160p (HD-UHD)",
				"No ads",
				"5 simultaneous streams",
				"5 profiles",
			},
		},
		{
			ID:           types.PlanPremium,
			Name:         "Premium",
			Description:  "Ultimate streaming experience",
			MonthlyPrice: decimal.RequireFromString("19.99"),
			YearlyPrice:  lo.ToPtr(decimal.RequireFromString("239.00")),
			Rank:         3,
			Features: []string{
				"Video quality: 4K/UHD/HD + HDR",
				"No ads",
				"10 simultaneous streams",
				"10 profiles",
			},
		},
	}
}
