package config

import (
	"net/url"
	"strings"

	"git.home.luguber.info/inful/stagehand/internal/foundation"
)

// BackstageConfig describes the catalog API the automation publishes to.
type BackstageConfig struct {
	URL       string `yaml:"url"`
	Token     string `yaml:"token,omitempty"`
	TokenType string `yaml:"token_type,omitempty"`
}

// BaseURL returns the configured URL without a trailing slash.
func (b BackstageConfig) BaseURL() string {
	return strings.TrimRight(b.URL, "/")
}

// Validate checks catalog API settings. URL may be empty when only
// offline commands (preview, report) are used; publish paths verify
// presence themselves.
func (b BackstageConfig) Validate() foundation.ValidationResult {
	if strings.TrimSpace(b.URL) == "" {
		return foundation.Valid()
	}
	parsed, err := url.Parse(b.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return foundation.Invalid(foundation.NewValidationError(
			"backstage.url", "valid_url", "url must be an absolute http(s) URL"))
	}
	return foundation.Valid()
}
