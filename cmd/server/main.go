package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/streamkey/streamkey/internal/api"
	"github.com/streamkey/streamkey/internal/api/cron"
	v1 "github.com/streamkey/streamkey/internal/api/v1"
	"github.com/streamkey/streamkey/internal/cache"
	"github.com/streamkey/streamkey/internal/config"
	"github.com/streamkey/streamkey/internal/httpclient"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/mysql"
	"github.com/streamkey/streamkey/internal/payment"
	pubsubRouter "github.com/streamkey/streamkey/internal/pubsub/router"
	"github.com/streamkey/streamkey/internal/repository"
	"github.com/streamkey/streamkey/internal/service"
	"github.com/streamkey/streamkey/internal/validator"
	"github.com/streamkey/streamkey/internal/webhook"
	"go.uber.org/fx"
)

// @title Streamkey Subscription API
// @version 1.0
// @description Subscription plan change and billing cycle service
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// MySQL (nil in in-memory mode)
			mysql.NewClient,

			// HTTP client
			httpclient.NewDefaultClient,

			// Payment gateway
			payment.NewMockGateway,

			// Repositories
			repository.NewPlanRepository,
			repository.NewSubscriptionRepository,

			// PubSub router
			pubsubRouter.NewRouter,
		),
	)

	// Webhook module (must be initialised before services)
	opts = append(opts, webhook.Module)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewPlanService,
			service.NewSubscriptionService,
			service.NewSubscriptionChangeService,
			service.NewBillingService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	planService service.PlanService,
	subscriptionService service.SubscriptionService,
	changeService service.SubscriptionChangeService,
	billingService service.BillingService,
) api.Handlers {
	return api.Handlers{
		Health:           v1.NewHealthHandler(logger),
		Plan:             v1.NewPlanHandler(planService, logger),
		Subscription:     v1.NewSubscriptionHandler(subscriptionService, changeService, logger),
		CronSubscription: cron.NewSubscriptionHandler(billingService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	webhookService *webhook.WebhookService,
	router *pubsubRouter.Router,
	log *logger.Logger,
) {
	startAPIServer(lc, r, cfg, log)
	startMessageRouter(lc, router, webhookService, log)
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	webhookService *webhook.WebhookService,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := webhookService.Start(ctx, router); err != nil {
				return err
			}
			go func() {
				if err := router.Run(); err != nil {
					log.Errorw("message router stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := webhookService.Stop(); err != nil {
				log.Errorw("failed to stop notification service", "error", err)
			}
			return router.Close()
		},
	})
}
