package mysql

import (
	"context"

	"github.com/streamkey/streamkey/internal/config"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/logger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type txKey struct{}

// IClient is the database client boundary used by repositories and
// services. WithTx runs fn inside a transaction; nested calls reuse the
// transaction already stored in the context.
type IClient interface {
	DB(ctx context.Context) *gorm.DB
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type client struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewClient opens the MySQL connection pool. Returns nil when the service
// is configured for in-memory repositories.
func NewClient(cfg *config.Configuration, log *logger.Logger) (IClient, error) {
	if cfg.Database.InMemory {
		return nil, nil
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to the database").
			Mark(ierr.ErrDatabase)
	}

	log.Infow("connected to mysql",
		"host", cfg.Database.Host,
		"dbname", cfg.Database.DBName)

	return &client{db: db, logger: log}, nil
}

// DB returns the transaction bound to ctx if one exists, the base
// connection otherwise.
func (c *client) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return c.db.WithContext(ctx)
}

// WithTx runs fn inside a transaction. A nested WithTx joins the outer
// transaction instead of opening a new one.
func (c *client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
