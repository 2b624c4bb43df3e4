package service

import (
	"context"
	"time"

	"github.com/streamkey/streamkey/internal/api/dto"
	"github.com/streamkey/streamkey/internal/domain/subscription"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/types"
	webhookDto "github.com/streamkey/streamkey/internal/webhook/dto"
)

// SubscriptionService manages the lifecycle of the single subscription each
// user owns
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetSubscription(ctx context.Context, userID string) (*dto.SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, userID string) (*dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	ServiceParams
	changeService *subscriptionChangeService
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
		changeService: &subscriptionChangeService{ServiceParams: params},
	}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.SubRepo.GetByUserID(ctx, req.UserID); err == nil && existing != nil {
		return nil, ierr.NewErrorf("user %s already has a subscription", req.UserID).
			WithHint("Use the plan change endpoint instead").
			Mark(ierr.ErrAlreadyExists)
	} else if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	verdict, err := s.changeService.Classify(ctx, nil, req.PlanID)
	if err != nil {
		return nil, err
	}

	targetPlan, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if req.IsYearly && !targetPlan.SupportsYearly() {
		return nil, ierr.NewErrorf("plan %s has no yearly billing option", req.PlanID).
			WithHint("Choose monthly billing for this plan").
			Mark(ierr.ErrValidation)
	}

	if verdict.RequiresPayment {
		if req.PaymentMethodToken == "" {
			return nil, ierr.NewErrorf("plan %s requires payment", req.PlanID).
				WithHint("Provide a payment method token").
				Mark(ierr.ErrPaymentRequired)
		}
		if _, err := s.changeService.chargeForPlan(ctx, req.UserID, req.PlanID, req.IsYearly, req.PaymentMethodToken); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:             req.UserID,
		PlanID:             req.PlanID,
		SubscriptionStatus: types.SubscriptionStatusActive,
		ExpiresAt:          types.NextRenewalDate(now, req.IsYearly),
		IsYearly:           req.IsYearly,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}

	if err := s.SubRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.publishNotification(ctx, types.WebhookEventSubscriptionCreated, types.ChannelAdmin, req.UserID,
		&webhookDto.SubscriptionCreatedPayload{
			Plan:     req.PlanID,
			IsYearly: req.IsYearly,
		})

	s.Logger.Infow("created subscription",
		"user_id", req.UserID,
		"plan_id", req.PlanID,
		"is_yearly", req.IsYearly,
		"expires_at", sub.ExpiresAt)

	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, userID string) (*dto.SubscriptionResponse, error) {
	var committed *subscription.Subscription

	err := s.retryOnConflict(ctx, func(ctx context.Context) error {
		sub, err := s.SubRepo.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if sub.SubscriptionStatus == types.SubscriptionStatusInactive {
			return ierr.NewError("subscription is already cancelled").
				Mark(ierr.ErrInvalidOperation)
		}

		plan := sub.PlanID
		sub.SubscriptionStatus = types.SubscriptionStatusInactive
		sub.ClearPendingDowngrade()
		sub.UpdatedAt = time.Now().UTC()
		sub.UpdatedBy = types.GetUserID(ctx)

		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}

		committed = sub
		s.publishNotification(ctx, types.WebhookEventSubscriptionCancelled, types.ChannelAdmin, userID,
			&webhookDto.SubscriptionCancelledPayload{Plan: plan})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("cancelled subscription", "user_id", userID, "plan_id", committed.PlanID)
	return dto.NewSubscriptionResponse(committed), nil
}
