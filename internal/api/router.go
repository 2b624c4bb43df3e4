package api

import (
	"github.com/gin-gonic/gin"
	"github.com/streamkey/streamkey/internal/api/cron"
	v1 "github.com/streamkey/streamkey/internal/api/v1"
	"github.com/streamkey/streamkey/internal/config"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/rest/middleware"
	"github.com/streamkey/streamkey/internal/types"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Handlers struct {
	Health           *v1.HealthHandler
	Plan             *v1.PlanHandler
	Subscription     *v1.SubscriptionHandler
	CronSubscription *cron.SubscriptionHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode == types.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	cronGroup := router.Group("/cron")
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	plans := router.Group("/plans")
	{
		plans.GET("", handlers.Plan.ListPlans)
		plans.GET("/:id", handlers.Plan.GetPlan)
	}

	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("", handlers.Subscription.CreateSubscription)
		subscriptions.GET("/:user_id", handlers.Subscription.GetSubscription)
		subscriptions.POST("/:user_id/cancel", handlers.Subscription.CancelSubscription)
		subscriptions.POST("/:user_id/change", handlers.Subscription.RequestPlanChange)
		subscriptions.POST("/:user_id/change/payment", handlers.Subscription.ConfirmPayment)
		subscriptions.DELETE("/:user_id/change/pending", handlers.Subscription.CancelPendingPlanChange)
	}
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("/reconcile", handlers.CronSubscription.ReconcileSubscriptions)
	}
}
