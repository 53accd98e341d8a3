package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/stagehand/internal/foundation"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
)

// Config represents the application configuration.
type Config struct {
	Forge      ForgeConfig      `yaml:"forge"`
	Backstage  BackstageConfig  `yaml:"backstage"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Onboarding OnboardingConfig `yaml:"onboarding"`
	Daemon     DaemonConfig     `yaml:"daemon"`
	Credstore  CredstoreConfig  `yaml:"credstore"`
}

// CredstoreConfig locates the encrypted per-organization credential store.
type CredstoreConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// DefaultCredstoreDir is used when no directory is configured. Credential
// commands run before a config file exists and need the same fallback.
const DefaultCredstoreDir = "secure_configs"

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// .env values must be in the environment before ExpandEnv runs.
	LoadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fnderrors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
			WithContext("path", configPath).
			Build()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fnderrors.WrapError(err, fnderrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fnderrors.WrapError(err, fnderrors.CategoryConfig, "failed to unmarshal config").
			WithContext("path", configPath).
			Build()
	}

	cfg.applyDefaults()

	if err := cfg.Validate().ToError(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills zero values with production defaults.
func (c *Config) applyDefaults() {
	if c.Forge.Type == "" {
		c.Forge.Type = ForgeGitHub
	}
	if c.Forge.APIURL == "" && c.Forge.Type == ForgeGitHub {
		c.Forge.APIURL = "https://api.github.com"
	}
	if c.Backstage.TokenType == "" {
		c.Backstage.TokenType = "Bearer"
	}
	if c.Catalog.DefaultOwner == "" {
		c.Catalog.DefaultOwner = "default-team"
	}
	if c.Catalog.ScoreThreshold == 0 {
		c.Catalog.ScoreThreshold = 30
	}
	if c.Catalog.ReportLimit == 0 {
		c.Catalog.ReportLimit = 10
	}
	if c.Onboarding.BranchPrefix == "" {
		c.Onboarding.BranchPrefix = "backstage-integration"
	}
	if len(c.Onboarding.IssueLabels) == 0 {
		c.Onboarding.IssueLabels = []string{"backstage-integration"}
	}
	if c.Onboarding.Workers == 0 {
		c.Onboarding.Workers = 8
	}
	if c.Daemon.Interval == 0 {
		c.Daemon.Interval = 30 * time.Minute
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = ":8080"
	}
	if c.Daemon.StorePath == "" {
		c.Daemon.StorePath = "stagehand.db"
	}
	if c.Daemon.NATS.SubjectPrefix == "" {
		c.Daemon.NATS.SubjectPrefix = "stagehand"
	}
	if c.Daemon.Retry.Backoff == "" {
		c.Daemon.Retry.Backoff = string(RetryBackoffLinear)
	}
	if c.Daemon.Retry.Initial == 0 {
		c.Daemon.Retry.Initial = 2 * time.Second
	}
	if c.Daemon.Retry.Max == 0 {
		c.Daemon.Retry.Max = 30 * time.Second
	}
	if c.Credstore.Dir == "" {
		c.Credstore.Dir = DefaultCredstoreDir
	}
}

// Validate checks cross-field invariants after defaults were applied.
func (c *Config) Validate() foundation.ValidationResult {
	chain := foundation.NewValidatorChain(
		func(cfg Config) foundation.ValidationResult {
			return cfg.Forge.Validate()
		},
		func(cfg Config) foundation.ValidationResult {
			return cfg.Backstage.Validate()
		},
		func(cfg Config) foundation.ValidationResult {
			if cfg.Catalog.ScoreThreshold < 0 {
				return foundation.Invalid(foundation.NewValidationError(
					"catalog.score_threshold", "non_negative", "score threshold cannot be negative"))
			}
			return foundation.Valid()
		},
		func(cfg Config) foundation.ValidationResult {
			if cfg.Catalog.ReportLimit < 1 {
				return foundation.Invalid(foundation.NewValidationError(
					"catalog.report_limit", "positive", "report limit must be at least 1"))
			}
			return foundation.Valid()
		},
		func(cfg Config) foundation.ValidationResult {
			if cfg.Onboarding.Workers < 1 {
				return foundation.Invalid(foundation.NewValidationError(
					"onboarding.workers", "positive", "worker count must be at least 1"))
			}
			return foundation.Valid()
		},
		func(cfg Config) foundation.ValidationResult {
			return cfg.Daemon.Validate()
		},
	)
	return chain.Validate(*c)
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fnderrors.ConfigError(
			fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			Build()
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fnderrors.WrapError(err, fnderrors.CategoryConfig, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}

	return nil
}

const exampleConfig = `# stagehand configuration
forge:
  type: github              # github | local
  org: my-org
  token: ${GITHUB_TOKEN}
  # api_url: https://github.example.com/api/v3   # GitHub Enterprise
  # path: ./repos           # clone root for forge type "local"

backstage:
  url: https://backstage.example.com
  token: ${BACKSTAGE_TOKEN}
  token_type: Bearer

catalog:
  default_owner: default-team
  score_threshold: 30
  report_limit: 10
  exclude: []               # repository names to skip entirely

onboarding:
  branch_prefix: backstage-integration
  issue_labels: [backstage-integration]
  workers: 8

daemon:
  interval: 30m
  listen: ":8080"
  store_path: stagehand.db
  nats:
    enabled: false
    url: nats://127.0.0.1:4222
    subject_prefix: stagehand
  retry:
    backoff: linear         # fixed | linear | exponential
    initial: 2s
    max: 30s
    max_retries: 2

credstore:
  dir: secure_configs
`
