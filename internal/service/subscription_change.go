package service

import (
	"context"
	"time"

	"github.com/streamkey/streamkey/internal/api/dto"
	"github.com/streamkey/streamkey/internal/domain/plan"
	"github.com/streamkey/streamkey/internal/domain/subscription"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/payment"
	"github.com/streamkey/streamkey/internal/types"
	webhookDto "github.com/streamkey/streamkey/internal/webhook/dto"
)

// SubscriptionChangeService drives the plan change workflow. Upgrades demand
// a confirmed payment before any mutation; downgrades commit immediately but
// keep the old entitlements until the paid period runs out.
type SubscriptionChangeService interface {
	// Classify decides how a requested move is handled. A nil current plan
	// means first-time selection.
	Classify(ctx context.Context, current *types.PlanID, requested types.PlanID) (*subscription.PlanChangeVerdict, error)

	// RequestPlanChange evaluates a change for the user's subscription.
	// Downgrades are committed (deferred); upgrades return a
	// requires_payment verdict and mutate nothing.
	RequestPlanChange(ctx context.Context, userID string, req *dto.PlanChangeRequest) (*dto.PlanChangeResponse, error)

	// ConfirmPayment settles the charge for an upgrade and, only on
	// success, applies it with a fresh billing window.
	ConfirmPayment(ctx context.Context, userID string, req *dto.ConfirmPaymentRequest) (*dto.PlanChangeResponse, error)

	// CancelPendingPlanChange clears a deferred downgrade before it is
	// applied, restoring the subscription to its unmarked state.
	CancelPendingPlanChange(ctx context.Context, userID string) (*dto.SubscriptionResponse, error)
}

type subscriptionChangeService struct {
	ServiceParams
}

func NewSubscriptionChangeService(params ServiceParams) SubscriptionChangeService {
	return &subscriptionChangeService{ServiceParams: params}
}

func (s *subscriptionChangeService) Classify(ctx context.Context, current *types.PlanID, requested types.PlanID) (*subscription.PlanChangeVerdict, error) {
	target, err := s.PlanRepo.Get(ctx, requested)
	if err != nil {
		return nil, err
	}

	// First-time selection: the free tier activates directly, anything
	// else is treated as an upgrade and gated on payment.
	if current == nil {
		if target.IsFree() {
			return &subscription.PlanChangeVerdict{
				ChangeType:      types.PlanChangeActivation,
				RequiresPayment: false,
			}, nil
		}
		return &subscription.PlanChangeVerdict{
			ChangeType:      types.PlanChangeUpgrade,
			RequiresPayment: true,
		}, nil
	}

	if *current == requested {
		return nil, ierr.NewErrorf("already subscribed to plan %s", requested).
			WithHint("Pick a different plan").
			Mark(ierr.ErrInvalidOperation)
	}

	currentPlan, err := s.PlanRepo.Get(ctx, *current)
	if err != nil {
		return nil, err
	}

	// Moving to the free tier is always a downgrade regardless of rank.
	if target.IsFree() || target.Rank < currentPlan.Rank {
		return &subscription.PlanChangeVerdict{
			ChangeType:      types.PlanChangeDowngrade,
			RequiresPayment: false,
		}, nil
	}

	return &subscription.PlanChangeVerdict{
		ChangeType:      types.PlanChangeUpgrade,
		RequiresPayment: true,
	}, nil
}

func (s *subscriptionChangeService) RequestPlanChange(ctx context.Context, userID string, req *dto.PlanChangeRequest) (*dto.PlanChangeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusActive {
		return nil, ierr.NewError("subscription is not active").
			WithHint("Reactivate the subscription before changing plans").
			Mark(ierr.ErrInvalidOperation)
	}

	verdict, err := s.Classify(ctx, &sub.PlanID, req.TargetPlanID)
	if err != nil {
		return nil, err
	}

	switch verdict.ChangeType {
	case types.PlanChangeUpgrade:
		// No mutation yet. The caller must come back through
		// ConfirmPayment with a settled charge.
		return &dto.PlanChangeResponse{
			ChangeType:      verdict.ChangeType,
			RequiresPayment: true,
		}, nil

	case types.PlanChangeDowngrade:
		result, err := s.applyDowngrade(ctx, userID, req.TargetPlanID)
		if err != nil {
			return nil, err
		}
		return dto.NewPlanChangeResponse(result), nil

	default:
		return nil, ierr.NewErrorf("unexpected change type %s", verdict.ChangeType).
			Mark(ierr.ErrInvalidOperation)
	}
}

// applyDowngrade records a deferred downgrade. The effective plan, expiry and
// billing cycle stay untouched; the reconciliation sweep adopts the target
// once the paid period ends.
func (s *subscriptionChangeService) applyDowngrade(ctx context.Context, userID string, target types.PlanID) (*subscription.PlanChangeResult, error) {
	var committed *subscription.Subscription

	err := s.retryOnConflict(ctx, func(ctx context.Context) error {
		return s.withTx(ctx, func(ctx context.Context) error {
			sub, err := s.SubRepo.GetByUserID(ctx, userID)
			if err != nil {
				return err
			}

			// A competing request may have moved the plan between
			// attempts; the move must still classify as a downgrade
			// against the fresh read.
			verdict, err := s.Classify(ctx, &sub.PlanID, target)
			if err != nil {
				return err
			}
			if verdict.ChangeType != types.PlanChangeDowngrade {
				return ierr.NewErrorf("plan change to %s is no longer a downgrade", target).
					WithHint("Request the plan change again").
					Mark(ierr.ErrInvalidOperation)
			}

			oldPlan := sub.PlanID
			sub.SetPendingDowngrade(target)
			sub.UpdatedAt = time.Now().UTC()
			sub.UpdatedBy = types.GetUserID(ctx)

			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}

			committed = sub
			s.publishNotification(ctx, types.WebhookEventSubscriptionChange, types.ChannelAdmin, userID,
				&webhookDto.SubscriptionChangePayload{
					OldPlan:  oldPlan,
					NewPlan:  target,
					Deferred: true,
				})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("recorded deferred downgrade",
		"user_id", userID,
		"old_plan", committed.PlanID,
		"target_plan", target,
		"effective_at", committed.ExpiresAt)

	return &subscription.PlanChangeResult{
		Subscription:  committed,
		ChangeType:    types.PlanChangeDowngrade,
		EffectiveDate: committed.ExpiresAt,
		Deferred:      true,
	}, nil
}

func (s *subscriptionChangeService) ConfirmPayment(ctx context.Context, userID string, req *dto.ConfirmPaymentRequest) (*dto.PlanChangeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusActive {
		return nil, ierr.NewError("subscription is not active").
			WithHint("Reactivate the subscription before changing plans").
			Mark(ierr.ErrInvalidOperation)
	}

	verdict, err := s.Classify(ctx, &sub.PlanID, req.TargetPlanID)
	if err != nil {
		return nil, err
	}
	if verdict.ChangeType != types.PlanChangeUpgrade {
		return nil, ierr.NewErrorf("plan change to %s does not require payment", req.TargetPlanID).
			WithHint("Use the change endpoint for downgrades").
			Mark(ierr.ErrInvalidOperation)
	}

	targetPlan, err := s.PlanRepo.Get(ctx, req.TargetPlanID)
	if err != nil {
		return nil, err
	}
	if req.IsYearly && !targetPlan.SupportsYearly() {
		return nil, ierr.NewErrorf("plan %s has no yearly billing option", req.TargetPlanID).
			WithHint("Choose monthly billing for this plan").
			Mark(ierr.ErrValidation)
	}

	paid, err := s.chargeForPlan(ctx, userID, targetPlan.ID, req.IsYearly, req.PaymentMethodToken)
	if err != nil {
		return nil, err
	}

	result, err := s.applyUpgrade(ctx, userID, req.TargetPlanID, req.IsYearly, paid)
	if err != nil {
		return nil, err
	}
	return dto.NewPlanChangeResponse(result), nil
}

// chargeForPlan runs a bounded payment confirmation. A provider that never
// answers hits the context deadline and surfaces as a payment failure with
// no subscription mutation behind it.
func (s *subscriptionChangeService) chargeForPlan(ctx context.Context, userID string, planID types.PlanID, isYearly bool, token string) (bool, error) {
	p, err := s.PlanRepo.Get(ctx, planID)
	if err != nil {
		return false, err
	}

	timeout := 30 * time.Second
	if s.Config != nil && s.Config.Payment.ConfirmationTimeout > 0 {
		timeout = s.Config.Payment.ConfirmationTimeout
	}
	chargeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := s.PaymentGateway.Confirm(chargeCtx, &payment.ConfirmRequest{
		UserID:             userID,
		PlanID:             planID,
		Amount:             p.Price(isYearly),
		Currency:           plan.Currency,
		IsYearly:           isYearly,
		PaymentMethodToken: token,
	})
	if err != nil {
		return false, err
	}
	if !result.Succeeded {
		return false, ierr.NewErrorf("payment declined: %s", result.FailureReason).
			WithHint("The payment was not accepted").
			WithReportableDetails(map[string]any{
				"payment_id":     result.PaymentID,
				"failure_reason": result.FailureReason,
			}).
			Mark(ierr.ErrPaymentFailed)
	}

	s.Logger.Infow("payment confirmed",
		"user_id", userID,
		"plan_id", planID,
		"payment_id", result.PaymentID,
		"is_yearly", isYearly)
	return true, nil
}

// applyUpgrade switches the subscription to the target plan with a fresh
// billing window. paymentConfirmed is the hard precondition: callers that
// have not settled a charge cannot mutate anything here.
func (s *subscriptionChangeService) applyUpgrade(ctx context.Context, userID string, target types.PlanID, isYearly bool, paymentConfirmed bool) (*subscription.PlanChangeResult, error) {
	if !paymentConfirmed {
		return nil, ierr.NewError("payment has not been confirmed").
			WithHint("Complete the payment before the upgrade is applied").
			Mark(ierr.ErrPaymentRequired)
	}

	var committed *subscription.Subscription

	err := s.retryOnConflict(ctx, func(ctx context.Context) error {
		return s.withTx(ctx, func(ctx context.Context) error {
			sub, err := s.SubRepo.GetByUserID(ctx, userID)
			if err != nil {
				return err
			}

			oldPlan := sub.PlanID
			now := time.Now().UTC()

			sub.PlanID = target
			sub.SubscriptionStatus = types.SubscriptionStatusActive
			sub.IsYearly = isYearly
			sub.ExpiresAt = types.NextRenewalDate(now, isYearly)
			// An upgrade supersedes any deferred downgrade still on record.
			sub.ClearPendingDowngrade()
			sub.UpdatedAt = now
			sub.UpdatedBy = types.GetUserID(ctx)

			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}

			committed = sub
			s.publishNotification(ctx, types.WebhookEventSubscriptionChange, types.ChannelAdmin, userID,
				&webhookDto.SubscriptionChangePayload{
					OldPlan: oldPlan,
					NewPlan: target,
				})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("applied plan upgrade",
		"user_id", userID,
		"plan_id", target,
		"is_yearly", isYearly,
		"expires_at", committed.ExpiresAt)

	return &subscription.PlanChangeResult{
		Subscription:  committed,
		ChangeType:    types.PlanChangeUpgrade,
		EffectiveDate: committed.UpdatedAt,
	}, nil
}

func (s *subscriptionChangeService) CancelPendingPlanChange(ctx context.Context, userID string) (*dto.SubscriptionResponse, error) {
	var committed *subscription.Subscription

	err := s.retryOnConflict(ctx, func(ctx context.Context) error {
		return s.withTx(ctx, func(ctx context.Context) error {
			sub, err := s.SubRepo.GetByUserID(ctx, userID)
			if err != nil {
				return err
			}
			if !sub.HasPendingDowngrade() {
				return ierr.NewError("no pending plan change found").
					WithHint("There is nothing to cancel").
					Mark(ierr.ErrNotFound)
			}

			sub.ClearPendingDowngrade()
			sub.UpdatedAt = time.Now().UTC()
			sub.UpdatedBy = types.GetUserID(ctx)

			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}
			committed = sub
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("cancelled pending plan change", "user_id", userID, "plan_id", committed.PlanID)
	return dto.NewSubscriptionResponse(committed), nil
}
