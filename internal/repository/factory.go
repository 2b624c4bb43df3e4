package repository

import (
	"github.com/streamkey/streamkey/internal/config"
	"github.com/streamkey/streamkey/internal/domain/plan"
	"github.com/streamkey/streamkey/internal/domain/subscription"
	"github.com/streamkey/streamkey/internal/logger"
	"github.com/streamkey/streamkey/internal/mysql"
	inmemoryRepo "github.com/streamkey/streamkey/internal/repository/inmemory"
	mysqlRepo "github.com/streamkey/streamkey/internal/repository/mysql"
)

// NewPlanRepository returns the static plan catalog. Plans are immutable
// and defined at process start, so no database backend exists for them.
func NewPlanRepository() plan.Repository {
	return plan.NewCatalogRepository()
}

// NewSubscriptionRepository picks the subscription store backend from
// config: MySQL in deployments, the in-memory store in mock mode.
func NewSubscriptionRepository(cfg *config.Configuration, client mysql.IClient, logger *logger.Logger) subscription.Repository {
	if cfg.Database.InMemory {
		logger.Infow("using in-memory subscription store")
		return inmemoryRepo.NewSubscriptionStore()
	}
	return mysqlRepo.NewSubscriptionRepository(client, logger)
}
