package main

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// config holds the worker settings. MaxFileSize defaults to
// contentanalysis.DefaultMaxFileSize.
type config struct {
	SubscriptionURL      string `env:"BYTE_ANALYSIS_SUBSCRIPTION,required"`
	InputBucket          string `env:"BYTE_ANALYSIS_INPUT_BUCKET"`
	ResultsBucket        string `env:"BYTE_ANALYSIS_RESULTS"`
	NotificationTopicURL string `env:"BYTE_ANALYSIS_NOTIFICATION_TOPIC"`
	CriteriaFile         string `env:"BYTE_ANALYSIS_CRITERIA_FILE"`
	MetricsAddr          string `env:"BYTE_ANALYSIS_METRICS_ADDR"`
	MaxFileSize          int64  `env:"BYTE_ANALYSIS_MAX_FILE_SIZE" envDefault:"67108864"`
	Features             string `env:"BYTE_ANALYSIS_FEATURES"`
}

func (c *config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("subscription", c.SubscriptionURL),
		slog.String("input_bucket", c.InputBucket),
		slog.String("results_bucket", c.ResultsBucket),
		slog.String("topic_notification", c.NotificationTopicURL),
		slog.String("criteria_file", c.CriteriaFile),
		slog.String("metrics_addr", c.MetricsAddr),
		slog.Int64("max_file_size", c.MaxFileSize),
		slog.String("features", c.Features),
	)
}

// parseConfig reads the worker configuration from environ, or from the
// process environment if environ is nil.
func parseConfig(environ map[string]string) (*config, error) {
	cfg := &config{}
	opts := env.Options{Environment: environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxFileSize < 0 {
		return nil, fmt.Errorf("parse env: BYTE_ANALYSIS_MAX_FILE_SIZE must not be negative, got %d", cfg.MaxFileSize)
	}
	return cfg, nil
}

func configFromEnv() (*config, error) {
	return parseConfig(nil)
}
