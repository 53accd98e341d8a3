package config

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/stagehand/internal/foundation"
)

// DaemonConfig configures the periodic status-refresh loop and its
// dashboard server.
type DaemonConfig struct {
	Interval  time.Duration `yaml:"interval,omitempty"`
	Listen    string        `yaml:"listen,omitempty"`
	StorePath string        `yaml:"store_path,omitempty"`
	NATS      NATSConfig    `yaml:"nats,omitempty"`
	Retry     RetryConfig   `yaml:"retry,omitempty"`
}

// NATSConfig configures optional run-event publishing.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled,omitempty"`
	URL           string `yaml:"url,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
}

// RetryConfig carries raw retry settings; retry.NewPolicy turns them into a policy.
type RetryConfig struct {
	Backoff    string        `yaml:"backoff,omitempty"`
	Initial    time.Duration `yaml:"initial,omitempty"`
	Max        time.Duration `yaml:"max,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
}

// Validate checks daemon settings after defaults were applied.
func (d DaemonConfig) Validate() foundation.ValidationResult {
	chain := foundation.NewValidatorChain(
		func(cfg DaemonConfig) foundation.ValidationResult {
			if cfg.Interval < time.Minute {
				return foundation.Invalid(foundation.NewValidationError(
					"daemon.interval", "min_interval", "refresh interval must be at least 1m"))
			}
			return foundation.Valid()
		},
		func(cfg DaemonConfig) foundation.ValidationResult {
			if !strings.Contains(cfg.Listen, ":") {
				return foundation.Invalid(foundation.NewValidationError(
					"daemon.listen", "host_port", "listen address must be host:port or :port"))
			}
			return foundation.Valid()
		},
		func(cfg DaemonConfig) foundation.ValidationResult {
			if cfg.NATS.Enabled && strings.TrimSpace(cfg.NATS.URL) == "" {
				return foundation.Invalid(foundation.NewValidationError(
					"daemon.nats.url", "required", "nats url is required when nats is enabled"))
			}
			return foundation.Valid()
		},
		func(cfg DaemonConfig) foundation.ValidationResult {
			if cfg.Retry.Backoff != "" && NormalizeRetryBackoff(cfg.Retry.Backoff) == "" {
				return foundation.Invalid(foundation.NewValidationError(
					"daemon.retry.backoff", "one_of", "backoff must be fixed, linear or exponential"))
			}
			return foundation.Valid()
		},
	)
	return chain.Validate(d)
}
