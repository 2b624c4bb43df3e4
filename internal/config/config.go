package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/streamkey/streamkey/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Database   DatabaseConfig
	Webhook    WebhookConfig
	Payment    PaymentConfig
	Billing    BillingConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

// DatabaseConfig configures the MySQL store. When InMemory is set the
// service runs on the in-memory repositories instead, which is the default
// for local development.
type DatabaseConfig struct {
	InMemory bool   `mapstructure:"in_memory"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Params   string `mapstructure:"params"`
}

// DSN builds the gorm MySQL connection string
func (c DatabaseConfig) DSN() string {
	params := c.Params
	if params == "" {
		params = "charset=utf8mb4&parseTime=True&loc=UTC"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.User, c.Password, c.Host, c.Port, c.DBName, params)
}

// WebhookConfig configures the admin notification pipeline
type WebhookConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	Topic           string            `mapstructure:"topic"`
	PubSub          types.PubSubType  `mapstructure:"pubsub"`
	Endpoint        string            `mapstructure:"endpoint"`
	Headers         map[string]string `mapstructure:"headers"`
	MaxRetries      int               `mapstructure:"max_retries"`
	InitialInterval time.Duration     `mapstructure:"initial_interval"`
	MaxInterval     time.Duration     `mapstructure:"max_interval"`
	Multiplier      float64           `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration     `mapstructure:"max_elapsed_time"`
}

// PaymentConfig configures the mocked payment gateway
type PaymentConfig struct {
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	SimulatedLatency    time.Duration `mapstructure:"simulated_latency"`
}

// BillingConfig configures the reconciliation sweep
type BillingConfig struct {
	BatchSize     int `mapstructure:"batch_size"`
	SweepWorkers  int `mapstructure:"sweep_workers"`
	CommitRetries int `mapstructure:"commit_retries"`
}

func NewConfig() (*Configuration, error) {
	// Load .env if present; real env vars win
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/streamkey")

	v.SetEnvPrefix("STREAMKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("database.in_memory", true)
	v.SetDefault("webhook.enabled", true)
	v.SetDefault("webhook.topic", "notifications")
	v.SetDefault("webhook.pubsub", string(types.MemoryPubSub))
	v.SetDefault("webhook.max_retries", 3)
	v.SetDefault("webhook.initial_interval", "1s")
	v.SetDefault("webhook.max_interval", "10s")
	v.SetDefault("webhook.multiplier", 2.0)
	v.SetDefault("webhook.max_elapsed_time", "1m")
	v.SetDefault("payment.confirmation_timeout", "15s")
	v.SetDefault("payment.simulated_latency", "1500ms")
	v.SetDefault("billing.batch_size", 100)
	v.SetDefault("billing.sweep_workers", 4)
	v.SetDefault("billing.commit_retries", 3)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests. No external dependencies are required to run with it.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Database:   DatabaseConfig{InMemory: true},
		Webhook: WebhookConfig{
			Enabled:         true,
			Topic:           "notifications",
			PubSub:          types.MemoryPubSub,
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2.0,
			MaxElapsedTime:  time.Minute,
		},
		Payment: PaymentConfig{
			ConfirmationTimeout: 15 * time.Second,
			SimulatedLatency:    0,
		},
		Billing: BillingConfig{
			BatchSize:     100,
			SweepWorkers:  4,
			CommitRetries: 3,
		},
	}
}
