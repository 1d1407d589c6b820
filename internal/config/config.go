package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	Records  RecordsConfig  `mapstructure:"records" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// ShutdownTimeoutSeconds bounds graceful HTTP shutdown.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gt=0"`

	// AutoMigrate applies pending migrations on server start.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// TaskConfig contains settings for the background posting pipeline.
type TaskConfig struct {
	// WorkerCount is the number of workers draining the job queue.
	// A single worker keeps delivery in strict submission order; more than
	// one only preserves order per worker.
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0,lte=64"`

	// JobTimeoutSeconds bounds one job's processing. Zero means no limit.
	JobTimeoutSeconds int `mapstructure:"job_timeout_seconds" validate:"gte=0"`

	// DefaultBatchSize is used when a producer does not specify one.
	DefaultBatchSize int `mapstructure:"default_batch_size" validate:"gt=0"`
}

// RecordsConfig contains settings for the versioned record store.
type RecordsConfig struct {
	// Retention is the number of versions kept per tenant and class.
	Retention int `mapstructure:"retention" validate:"gt=0"`
}
