package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables (prefix RECALLBOX_,
// nested keys joined with underscores, e.g. RECALLBOX_SERVER_PORT) and an
// optional recallbox.yaml in the working directory. Environment variables
// take precedence. Returns a validated Config or an error.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("storage.backend", "notefile")
	v.SetDefault("storage.notes_dir", "notes")
	v.SetDefault("storage.review_log_path", "review-log.ndjson")
	v.SetDefault("scheduler.desired_retention", 0.9)
	v.SetDefault("scheduler.maximum_interval_days", 36500)
	v.SetDefault("scheduler.enable_short_term", true)

	// Keys without meaningful defaults still need registering so
	// AutomaticEnv surfaces them during Unmarshal.
	v.SetDefault("storage.database_url", "")
	v.SetDefault("optimizer.epochs", 0)
	v.SetDefault("optimizer.mini_batch_size", 0)
	v.SetDefault("optimizer.learning_rate", 0.0)
	v.SetDefault("optimizer.max_seq_len", 0)

	v.SetConfigName("recallbox")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults apply.
	}

	v.SetEnvPrefix("RECALLBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
