package config

import (
	"strings"

	"git.home.luguber.info/inful/stagehand/internal/foundation"
)

// ForgeType enumerates supported forge providers.
type ForgeType string

const (
	ForgeGitHub ForgeType = "github"
	ForgeLocal  ForgeType = "local"
)

// NormalizeForgeType canonicalizes a forge type string (case-insensitive) or returns empty if unknown.
func NormalizeForgeType(raw string) ForgeType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ForgeGitHub):
		return ForgeGitHub
	case string(ForgeLocal):
		return ForgeLocal
	default:
		return ""
	}
}

// ForgeConfig describes the organization source the automation runs against.
type ForgeConfig struct {
	Type   ForgeType `yaml:"type"`
	Org    string    `yaml:"org"`
	Token  string    `yaml:"token,omitempty"`
	APIURL string    `yaml:"api_url,omitempty"`
	// Path is the clone root for the local forge type.
	Path string `yaml:"path,omitempty"`
}

// Validate checks forge settings. Token absence is allowed here; commands
// fall back to the credential store for the configured org.
func (f ForgeConfig) Validate() foundation.ValidationResult {
	chain := foundation.NewValidatorChain(
		func(cfg ForgeConfig) foundation.ValidationResult {
			return foundation.OneOf("forge.type", []ForgeType{ForgeGitHub, ForgeLocal})(cfg.Type)
		},
		func(cfg ForgeConfig) foundation.ValidationResult {
			return foundation.StringNotEmpty("forge.org")(cfg.Org)
		},
		func(cfg ForgeConfig) foundation.ValidationResult {
			if cfg.Type == ForgeLocal && strings.TrimSpace(cfg.Path) == "" {
				return foundation.Invalid(foundation.NewValidationError(
					"forge.path", "required", "path is required for forge type local"))
			}
			return foundation.Valid()
		},
	)
	return chain.Validate(f)
}
