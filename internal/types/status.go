package types

// Status is a type for the lifecycle status of a stored record.
// It is independent of the subscription's own billing status and is used
// to exclude soft-deleted rows from queries.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

// RunMode is the deployment mode of the service
type RunMode string

const (
	ModeLocal RunMode = "local"
	ModeProd  RunMode = "prod"
)

// LogLevel is the logging verbosity
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// PubSubType selects the pubsub backend for the notification pipeline
type PubSubType string

const (
	MemoryPubSub PubSubType = "memory"
)
