package testutil

import (
	"context"
	"time"

	"github.com/streamkey/streamkey/internal/config"
	"github.com/streamkey/streamkey/internal/domain/plan"
	"github.com/streamkey/streamkey/internal/domain/subscription"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/payment"
	"github.com/streamkey/streamkey/internal/repository"
	"github.com/streamkey/streamkey/internal/repository/inmemory"
	"github.com/streamkey/streamkey/internal/types"
	"github.com/streamkey/streamkey/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	PlanRepo plan.Repository
	SubRepo  subscription.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx              context.Context
	stores           Stores
	webhookPublisher *InMemoryWebhookPublisher
	gateway          payment.Gateway
	logger           *logger.Logger
	config           *config.Configuration
	now              time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	// Initialize validator
	validator.NewValidator()

	s.config = config.GetDefaultConfig()
	// Keep payments instant in tests
	s.config.Payment.SimulatedLatency = 0

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxUserID, types.DefaultUserID)
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		PlanRepo: repository.NewPlanRepository(),
		SubRepo:  inmemory.NewSubscriptionStore(),
	}
	s.webhookPublisher = NewInMemoryWebhookPublisher()
	s.gateway = payment.NewMockGateway(s.config, s.logger)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.SubRepo.(*inmemory.SubscriptionStore).Clear()
	s.webhookPublisher.Clear()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetWebhookPublisher returns the recording notification publisher
func (s *BaseServiceTestSuite) GetWebhookPublisher() *InMemoryWebhookPublisher {
	return s.webhookPublisher
}

// GetPaymentGateway returns the mock payment gateway
func (s *BaseServiceTestSuite) GetPaymentGateway() payment.Gateway {
	return s.gateway
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
