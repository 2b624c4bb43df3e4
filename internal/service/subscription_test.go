package service

import (
	"testing"
	"time"

	"github.com/streamkey/streamkey/internal/api/dto"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/testutil"
	"github.com/streamkey/streamkey/internal/types"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
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
	s.service = NewSubscriptionService(params)
}

func (s *SubscriptionServiceSuite) TestCreateFreeSubscription() {
	resp, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user-1",
		PlanID: types.PlanBasic,
	})
	s.NoError(err)
	s.Equal(types.PlanBasic, resp.PlanID)
	s.Equal(types.SubscriptionStatusActive, resp.SubscriptionStatus)
	s.False(resp.IsYearly)
	s.WithinDuration(s.GetNow().Add(types.MonthlyCycleDays*24*time.Hour), resp.ExpiresAt, time.Minute)

	s.True(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionCreated, types.ChannelAdmin, "user-1"))
}

func (s *SubscriptionServiceSuite) TestCreatePaidSubscription() {
	resp, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID:             "user-1",
		PlanID:             types.PlanStandard,
		IsYearly:           true,
		PaymentMethodToken: "tok_visa",
	})
	s.NoError(err)
	s.Equal(types.PlanStandard, resp.PlanID)
	s.True(resp.IsYearly)
	s.WithinDuration(s.GetNow().Add(types.YearlyCycleDays*24*time.Hour), resp.ExpiresAt, time.Minute)
}

func (s *SubscriptionServiceSuite) TestCreatePaidSubscriptionWithoutToken() {
	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user-1",
		PlanID: types.PlanPremium,
	})
	s.Error(err)
	s.True(ierr.IsPaymentRequired(err))

	_, err = s.service.GetSubscription(s.GetContext(), "user-1")
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestCreatePaidSubscriptionDeclined() {
	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID:             "user-1",
		PlanID:             types.PlanPremium,
		PaymentMethodToken: "tok_declined",
	})
	s.Error(err)
	s.True(ierr.IsPaymentFailed(err))

	_, err = s.service.GetSubscription(s.GetContext(), "user-1")
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestCreateDuplicateSubscription() {
	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user-1",
		PlanID: types.PlanBasic,
	})
	s.NoError(err)

	_, err = s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user-1",
		PlanID: types.PlanBasic,
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SubscriptionServiceSuite) TestCreateYearlyOnMonthlyOnlyPlan() {
	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID:             "user-1",
		PlanID:             types.PlanBasicPlus,
		IsYearly:           true,
		PaymentMethodToken: "tok_visa",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestGetSubscription() {
	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user-1",
		PlanID: types.PlanBasic,
	})
	s.NoError(err)

	resp, err := s.service.GetSubscription(s.GetContext(), "user-1")
	s.NoError(err)
	s.Equal(created.ID, resp.ID)
	s.Equal(types.PlanBasic, resp.PlanID)
}

func (s *SubscriptionServiceSuite) TestGetSubscriptionNotFound() {
	_, err := s.service.GetSubscription(s.GetContext(), "ghost")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestCancelSubscription() {
	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID:             "user-1",
		PlanID:             types.PlanStandard,
		PaymentMethodToken: "tok_visa",
	})
	s.NoError(err)

	resp, err := s.service.CancelSubscription(s.GetContext(), "user-1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusInactive, resp.SubscriptionStatus)
	s.True(s.GetWebhookPublisher().HasEvent(types.WebhookEventSubscriptionCancelled, types.ChannelAdmin, "user-1"))

	// Cancelling twice is rejected
	_, err = s.service.CancelSubscription(s.GetContext(), "user-1")
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}
