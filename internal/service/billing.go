package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/streamkey/streamkey/internal/api/dto"
	"github.com/streamkey/streamkey/internal/domain/subscription"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/types"
	webhookDto "github.com/streamkey/streamkey/internal/webhook/dto"
)

// expiringAlertDays are the exact days-left marks at which expiry alerts
// fire during a sweep
var expiringAlertDays = []int{7, 3, 0}

// BillingService applies billing-cycle consequences: expiry alerts, deferred
// downgrades, and forced lapses to the free tier.
type BillingService interface {
	// ExpireAndReconcile settles one subscription against now. It is
	// idempotent: after a lapse the fresh billing window keeps the record
	// out of scope for subsequent calls.
	ExpireAndReconcile(ctx context.Context, sub *subscription.Subscription, now time.Time) (string, error)

	// RunReconciliation sweeps all active subscriptions in batches,
	// emitting expiry alerts and settling expired records. One failing
	// record never aborts the sweep.
	RunReconciliation(ctx context.Context, now time.Time) (*dto.ReconciliationResponse, error)
}

type billingService struct {
	ServiceParams
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{ServiceParams: params}
}

func (s *billingService) ExpireAndReconcile(ctx context.Context, sub *subscription.Subscription, now time.Time) (string, error) {
	if sub.SubscriptionStatus != types.SubscriptionStatusActive {
		return dto.ReconcileActionNone, nil
	}
	if !sub.IsExpired(now) {
		return dto.ReconcileActionNone, nil
	}

	now = now.UTC()

	if sub.HasPendingDowngrade() {
		oldPlan := sub.PlanID
		target := *sub.PendingPlanID

		sub.PlanID = target
		sub.ClearPendingDowngrade()
		// Deferred downgrades always land on a monthly cycle.
		sub.IsYearly = false
		sub.ExpiresAt = types.NextRenewalDate(now, false)
		sub.UpdatedAt = now
		sub.UpdatedBy = types.DefaultUserID

		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return dto.ReconcileActionNone, err
		}

		s.publishNotification(ctx, types.WebhookEventSubscriptionChange, types.ChannelAdmin, sub.UserID,
			&webhookDto.SubscriptionChangePayload{
				OldPlan: oldPlan,
				NewPlan: target,
			})
		s.Logger.Infow("applied pending downgrade",
			"user_id", sub.UserID,
			"old_plan", oldPlan,
			"new_plan", target)
		return dto.ReconcileActionAppliedPending, nil
	}

	if sub.PlanID != types.PlanBasic {
		previous := sub.PlanID

		sub.PlanID = types.PlanBasic
		sub.IsYearly = false
		sub.ExpiresAt = types.NextRenewalDate(now, false)
		sub.UpdatedAt = now
		sub.UpdatedBy = types.DefaultUserID

		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return dto.ReconcileActionNone, err
		}

		payload := &webhookDto.SubscriptionDowngradedPayload{
			PreviousPlan: previous,
			NewPlan:      types.PlanBasic,
		}
		s.publishNotification(ctx, types.WebhookEventSubscriptionDowngraded, types.ChannelUser, sub.UserID, payload)
		s.publishNotification(ctx, types.WebhookEventSubscriptionDowngraded, types.ChannelAdmin, sub.UserID, payload)
		s.Logger.Infow("forced lapse to free tier",
			"user_id", sub.UserID,
			"previous_plan", previous)
		return dto.ReconcileActionForcedLapse, nil
	}

	// Free tier rolls over silently into the next window.
	sub.ExpiresAt = types.NextRenewalDate(now, false)
	sub.UpdatedAt = now
	sub.UpdatedBy = types.DefaultUserID
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return dto.ReconcileActionNone, err
	}
	return dto.ReconcileActionRenewedFreePeriod, nil
}

func (s *billingService) RunReconciliation(ctx context.Context, now time.Time) (*dto.ReconciliationResponse, error) {
	now = now.UTC()
	response := &dto.ReconciliationResponse{
		StartedAt: now,
		Items:     []*dto.ReconciliationItem{},
	}

	batchSize := 100
	workers := 4
	if s.Config != nil {
		if s.Config.Billing.BatchSize > 0 {
			batchSize = s.Config.Billing.BatchSize
		}
		if s.Config.Billing.SweepWorkers > 0 {
			workers = s.Config.Billing.SweepWorkers
		}
	}

	// The sweep only needs records expiring within the widest alert mark.
	horizon := now.Add(time.Duration(expiringAlertDays[0]) * 24 * time.Hour)

	// Settling an expired record pushes its renewal date past the horizon
	// and out of the filtered set, so the due set must be read in full
	// before any record is mutated. Paging with a live offset over the
	// shrinking result would skip unprocessed records.
	var due []*subscription.Subscription
	for offset := 0; ; offset += batchSize {
		filter := &types.SubscriptionFilter{
			SubscriptionStatus: []types.SubscriptionStatus{types.SubscriptionStatusActive},
			ExpiringBefore:     &horizon,
			Limit:              lo.ToPtr(batchSize),
			Offset:             lo.ToPtr(offset),
		}

		subs, err := s.SubRepo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		due = append(due, subs...)
		if len(subs) < batchSize {
			break
		}
	}

	var mu sync.Mutex
	for start := 0; start < len(due); start += batchSize {
		batch := due[start:min(start+batchSize, len(due))]

		p := pool.New().WithMaxGoroutines(workers)
		for _, sub := range batch {
			sub := sub
			p.Go(func() {
				item := s.reconcileOne(ctx, sub, now)
				mu.Lock()
				response.Items = append(response.Items, item)
				if item.Error == "" {
					response.TotalSuccess++
				} else {
					response.TotalFailed++
				}
				mu.Unlock()
			})
		}
		p.Wait()

		response.Processed += len(batch)
	}

	s.Logger.Infow("reconciliation sweep finished",
		"processed", response.Processed,
		"success", response.TotalSuccess,
		"failed", response.TotalFailed)
	return response, nil
}

// reconcileOne handles alerts and expiry for a single subscription. Errors
// are captured in the returned item so the sweep keeps going.
func (s *billingService) reconcileOne(ctx context.Context, sub *subscription.Subscription, now time.Time) *dto.ReconciliationItem {
	item := &dto.ReconciliationItem{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         sub.PlanID,
		Action:         dto.ReconcileActionNone,
	}

	daysLeft := daysUntilExpiration(now, sub.ExpiresAt)
	if lo.Contains(expiringAlertDays, daysLeft) {
		payload := &webhookDto.SubscriptionExpiringPayload{
			Plan:     sub.PlanID,
			DaysLeft: daysLeft,
		}
		s.publishNotification(ctx, types.WebhookEventSubscriptionExpiring, types.ChannelUser, sub.UserID, payload)
		s.publishNotification(ctx, types.WebhookEventSubscriptionExpiring, types.ChannelAdmin, sub.UserID, payload)
		item.Action = dto.ReconcileActionExpiringAlert
	}

	action, err := s.ExpireAndReconcile(ctx, sub, now)
	if err != nil {
		if ierr.IsVersionConflict(err) {
			// A concurrent user request won; the next sweep re-reads
			// this record.
			s.Logger.Warnw("skipping subscription after concurrent update",
				"subscription_id", sub.ID,
				"user_id", sub.UserID)
		}
		item.Error = err.Error()
		return item
	}
	if action != dto.ReconcileActionNone {
		item.Action = action
	}
	return item
}

// daysUntilExpiration counts whole days left, rounding partial days up. An
// already expired record yields zero or a negative count.
func daysUntilExpiration(now, expiresAt time.Time) int {
	return int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
}
