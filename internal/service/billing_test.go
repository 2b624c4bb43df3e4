package service

import (
	"testing"
	"time"

	"github.com/streamkey/streamkey/internal/api/dto"
	"github.com/streamkey/streamkey/internal/domain/subscription"
	"github.com/streamkey/streamkey/internal/testutil"
	"github.com/streamkey/streamkey/internal/types"
	webhookDto "github.com/streamkey/streamkey/internal/webhook/dto"
	"github.com/stretchr/testify/suite"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service BillingService
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		nil,
		nil,
		s.GetStores().PlanRepo,
		s.GetStores().SubRepo,
		s.GetPaymentGateway(),
		s.GetWebhookPublisher(),
	)
	s.service = NewBillingService(params)
}

func (s *BillingServiceSuite) createSubscription(userID string, planID types.PlanID, expiresAt time.Time) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:             userID,
		PlanID:             planID,
		SubscriptionStatus: types.SubscriptionStatusActive,
		ExpiresAt:          expiresAt,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *BillingServiceSuite) TestExpireAndReconcileNotExpired() {
	sub := s.createSubscription("user-1", types.PlanPremium, s.GetNow().Add(10*24*time.Hour))

	action, err := s.service.ExpireAndReconcile(s.GetContext(), sub, s.GetNow())
	s.NoError(err)
	s.Equal(dto.ReconcileActionNone, action)
	s.Empty(s.GetWebhookPublisher().GetEvents())
}

func (s *BillingServiceSuite) TestExpireAndReconcileInactiveSubscription() {
	sub := s.createSubscription("user-1", types.PlanPremium, s.GetNow().Add(-24*time.Hour))
	sub.SubscriptionStatus = types.SubscriptionStatusInactive
	s.NoError(s.GetStores().SubRepo.Update(s.GetContext(), sub))

	action, err := s.service.ExpireAndReconcile(s.GetContext(), sub, s.GetNow())
	s.NoError(err)
	s.Equal(dto.ReconcileActionNone, action)
}

func (s *BillingServiceSuite) TestExpireAndReconcileAppliesPendingDowngrade() {
	sub := s.createSubscription("user-1", types.PlanPremium, s.GetNow().Add(-time.Hour))
	sub.SetPendingDowngrade(types.PlanStandard)
	s.NoError(s.GetStores().SubRepo.Update(s.GetContext(), sub))

	action, err := s.service.ExpireAndReconcile(s.GetContext(), sub, s.GetNow())
	s.NoError(err)
	s.Equal(dto.ReconcileActionAppliedPending, action)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.PlanStandard, stored.PlanID)
	s.False(stored.HasPendingDowngrade())
	s.Nil(stored.PreviousPlanID)
	s.False(stored.IsYearly)
	s.WithinDuration(s.GetNow().Add(types.MonthlyCycleDays*24*time.Hour), stored.ExpiresAt, time.Minute)

	events := s.GetWebhookPublisher().EventsByName(types.WebhookEventSubscriptionChange)
	s.Len(events, 1)
	s.Equal(types.ChannelAdmin, events[0].Channel)

	var payload webhookDto.SubscriptionChangePayload
	s.NoError(s.GetWebhookPublisher().DecodePayload(events[0], &payload))
	s.Equal(types.PlanPremium, payload.OldPlan)
	s.Equal(types.PlanStandard, payload.NewPlan)
}

func (s *BillingServiceSuite) TestExpireAndReconcileForcedLapse() {
	sub := s.createSubscription("user-1", types.PlanPremium, s.GetNow().Add(-time.Hour))

	action, err := s.service.ExpireAndReconcile(s.GetContext(), sub, s.GetNow())
	s.NoError(err)
	s.Equal(dto.ReconcileActionForcedLapse, action)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.PlanBasic, stored.PlanID)
	s.Equal(types.SubscriptionStatusActive, stored.SubscriptionStatus)
	s.WithinDuration(s.GetNow().Add(types.MonthlyCycleDays*24*time.Hour), stored.ExpiresAt, time.Minute)

	// Both the user and the admin channel are informed
	s.True(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionDowngraded, types.ChannelUser, "user-1"))
	s.True(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionDowngraded, types.ChannelAdmin, "user-1"))

	events := s.GetWebhookPublisher().EventsByName(types.WebhookEventSubscriptionDowngraded)
	var payload webhookDto.SubscriptionDowngradedPayload
	s.NoError(s.GetWebhookPublisher().DecodePayload(events[0], &payload))
	s.Equal(types.PlanPremium, payload.PreviousPlan)
	s.Equal(types.PlanBasic, payload.NewPlan)
}

func (s *BillingServiceSuite) TestExpireAndReconcileIsIdempotent() {
	sub := s.createSubscription("user-1", types.PlanPremium, s.GetNow().Add(-time.Hour))

	action, err := s.service.ExpireAndReconcile(s.GetContext(), sub, s.GetNow())
	s.NoError(err)
	s.Equal(dto.ReconcileActionForcedLapse, action)

	// The fresh billing window keeps the record out of scope
	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	action, err = s.service.ExpireAndReconcile(s.GetContext(), stored, s.GetNow())
	s.NoError(err)
	s.Equal(dto.ReconcileActionNone, action)

	events := s.GetWebhookPublisher().EventsByName(types.WebhookEventSubscriptionDowngraded)
	s.Len(events, 2) // one per channel, from the first call only
}

func (s *BillingServiceSuite) TestExpireAndReconcileRenewsFreeTier() {
	sub := s.createSubscription("user-1", types.PlanBasic, s.GetNow().Add(-time.Hour))

	action, err := s.service.ExpireAndReconcile(s.GetContext(), sub, s.GetNow())
	s.NoError(err)
	s.Equal(dto.ReconcileActionRenewedFreePeriod, action)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.PlanBasic, stored.PlanID)
	s.WithinDuration(s.GetNow().Add(types.MonthlyCycleDays*24*time.Hour), stored.ExpiresAt, time.Minute)
	s.Empty(s.GetWebhookPublisher().GetEvents())
}

func (s *BillingServiceSuite) TestRunReconciliationEmitsExpiringAlerts() {
	now := s.GetNow()
	s.createSubscription("user-7d", types.PlanPremium, now.Add(7*24*time.Hour))
	s.createSubscription("user-3d", types.PlanStandard, now.Add(3*24*time.Hour))
	s.createSubscription("user-5d", types.PlanPremium, now.Add(5*24*time.Hour))
	s.createSubscription("user-far", types.PlanPremium, now.Add(20*24*time.Hour))

	resp, err := s.service.RunReconciliation(s.GetContext(), now)
	s.NoError(err)
	// The record 20 days out is outside the sweep horizon
	s.Equal(3, resp.Processed)
	s.Equal(3, resp.TotalSuccess)
	s.Equal(0, resp.TotalFailed)

	s.True(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionExpiring, types.ChannelUser, "user-7d"))
	s.True(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionExpiring, types.ChannelAdmin, "user-7d"))
	s.True(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionExpiring, types.ChannelUser, "user-3d"))
	s.False(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionExpiring, types.ChannelUser, "user-5d"))

	var alert7 *webhookDto.SubscriptionExpiringPayload
	for _, evt := range s.GetWebhookPublisher().EventsByName(types.WebhookEventSubscriptionExpiring) {
		if evt.UserID == "user-7d" && evt.Channel == types.ChannelUser {
			var payload webhookDto.SubscriptionExpiringPayload
			s.NoError(s.GetWebhookPublisher().DecodePayload(evt, &payload))
			alert7 = &payload
		}
	}
	s.NotNil(alert7)
	s.Equal(7, alert7.DaysLeft)
}

func (s *BillingServiceSuite) TestRunReconciliationAlertAndLapseOnExpiryDay() {
	now := s.GetNow()
	s.createSubscription("user-1", types.PlanPremium, now.Add(-time.Hour))

	resp, err := s.service.RunReconciliation(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, resp.Processed)

	// Day-zero alert fires alongside the lapse
	s.True(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionExpiring, types.ChannelUser, "user-1"))
	s.True(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionDowngraded, types.ChannelUser, "user-1"))

	s.Len(resp.Items, 1)
	s.Equal(dto.ReconcileActionForcedLapse, resp.Items[0].Action)
}

func (s *BillingServiceSuite) TestRunReconciliationProcessesInBatches() {
	now := s.GetNow()
	oldBatch := s.GetConfig().Billing.BatchSize
	s.GetConfig().Billing.BatchSize = 2
	defer func() { s.GetConfig().Billing.BatchSize = oldBatch }()

	// Distinct expiries keep the sweep ordering fixed across pages.
	for i, user := range []string{"u1", "u2", "u3", "u4", "u5"} {
		s.createSubscription(user, types.PlanPremium, now.Add(6*24*time.Hour+time.Duration(i+1)*time.Hour))
	}

	resp, err := s.service.RunReconciliation(s.GetContext(), now)
	s.NoError(err)
	s.Equal(5, resp.Processed)
	s.Equal(5, resp.TotalSuccess)
}

func (s *BillingServiceSuite) TestRunReconciliationSettlesExpiredAcrossBatches() {
	now := s.GetNow()
	oldBatch := s.GetConfig().Billing.BatchSize
	s.GetConfig().Billing.BatchSize = 2
	defer func() { s.GetConfig().Billing.BatchSize = oldBatch }()

	// A settled record leaves the sweep filter with its fresh billing
	// window; every expired record must still be processed exactly once.
	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for i, user := range users {
		s.createSubscription(user, types.PlanPremium, now.Add(-time.Duration(i+1)*time.Hour))
	}

	resp, err := s.service.RunReconciliation(s.GetContext(), now)
	s.NoError(err)
	s.Equal(5, resp.Processed)
	s.Equal(5, resp.TotalSuccess)
	s.Equal(0, resp.TotalFailed)

	for _, user := range users {
		stored, err := s.GetStores().SubRepo.GetByUserID(s.GetContext(), user)
		s.NoError(err)
		s.Equal(types.PlanBasic, stored.PlanID)
		s.True(stored.ExpiresAt.After(now))
		s.True(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionDowngraded, types.ChannelUser, user))
	}
}

func (s *BillingServiceSuite) TestDaysUntilExpiration() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Equal(7, daysUntilExpiration(now, now.Add(7*24*time.Hour)))
	s.Equal(7, daysUntilExpiration(now, now.Add(6*24*time.Hour+time.Hour)))
	s.Equal(3, daysUntilExpiration(now, now.Add(3*24*time.Hour)))
	s.Equal(0, daysUntilExpiration(now, now))
	// Expired within the last day still counts as day zero
	s.Equal(0, daysUntilExpiration(now, now.Add(-time.Hour)))
	s.Equal(-1, daysUntilExpiration(now, now.Add(-25*time.Hour)))
}
