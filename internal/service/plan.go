package service

import (
	"context"

	"github.com/streamkey/streamkey/internal/api/dto"
	"github.com/streamkey/streamkey/internal/cache"
	"github.com/streamkey/streamkey/internal/domain/plan"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/types"
)

// PlanService exposes the plan catalog
type PlanService interface {
	ListPlans(ctx context.Context) (*dto.ListPlansResponse, error)
	GetPlan(ctx context.Context, id types.PlanID) (*dto.PlanResponse, error)
	RankOf(ctx context.Context, id types.PlanID) (int, error)
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{ServiceParams: params}
}

func (s *planService) ListPlans(ctx context.Context) (*dto.ListPlansResponse, error) {
	plans, err := s.PlanRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		items = append(items, dto.NewPlanResponse(p))
	}
	return &dto.ListPlansResponse{Items: items, Total: len(items)}, nil
}

func (s *planService) GetPlan(ctx context.Context, id types.PlanID) (*dto.PlanResponse, error) {
	p, err := s.getPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewPlanResponse(p), nil
}

func (s *planService) RankOf(ctx context.Context, id types.PlanID) (int, error) {
	p, err := s.getPlan(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Rank, nil
}

// getPlan resolves a plan through the cache. The catalog is static so cached
// entries never go stale within a process lifetime.
func (s *planService) getPlan(ctx context.Context, id types.PlanID) (*plan.Plan, error) {
	if !id.Validate() {
		return nil, ierr.NewErrorf("unknown plan %s", id).
			WithHint("Choose one of the published plans").
			Mark(ierr.ErrNotFound)
	}

	cacheKey := cache.GenerateKey(cache.PrefixPlan, string(id))
	if s.Cache != nil {
		if cached, found := s.Cache.Get(ctx, cacheKey); found {
			if p, ok := cached.(*plan.Plan); ok {
				return p, nil
			}
		}
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ierr.NewErrorf("plan %s not found", id).
			WithHint("Unknown plan").
			Mark(ierr.ErrNotFound)
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, cacheKey, p, cache.DefaultExpiration)
	}
	return p, nil
}
