// Package config loads and validates application configuration from
// environment variables and an optional config file.
package config

// Config holds all application configuration, grouped by concern.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage"   validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is "notefile" (card state embedded in text files, NDJSON
	// review log) or "postgres".
	Backend string `mapstructure:"backend" validate:"required,oneof=notefile postgres"`

	// NotesDir is the content root. Cards are always sourced from note
	// files; the backend choice only moves scheduling state and the review
	// log.
	NotesDir string `mapstructure:"notes_dir" validate:"required"`

	// ReviewLogPath is the NDJSON review log location for the notefile
	// backend.
	ReviewLogPath string `mapstructure:"review_log_path" validate:"required_if=Backend notefile"`

	// DatabaseURL is the Postgres connection string for the postgres
	// backend.
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Backend postgres"`
}

// SchedulerConfig configures the scheduling model.
type SchedulerConfig struct {
	DesiredRetention    float64   `mapstructure:"desired_retention" validate:"gte=0,lte=1"`
	MaximumIntervalDays int       `mapstructure:"maximum_interval_days" validate:"gte=0"`
	EnableShortTerm     bool      `mapstructure:"enable_short_term"`
	Weights             []float64 `mapstructure:"weights"`
}

// OptimizerConfig configures the built-in weight fitter.
type OptimizerConfig struct {
	Epochs        int     `mapstructure:"epochs"          validate:"gte=0"`
	MiniBatchSize int     `mapstructure:"mini_batch_size" validate:"gte=0"`
	LearningRate  float64 `mapstructure:"learning_rate"   validate:"gte=0"`
	MaxSeqLen     int     `mapstructure:"max_seq_len"     validate:"gte=0"`
}
