package forge

import (
	"log/slog"

	"git.home.luguber.info/inful/stagehand/internal/config"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
)

// NewClient creates a read client for the configured forge.
func NewClient(fc config.ForgeConfig, logger *slog.Logger) (Client, error) {
	switch fc.Type {
	case config.ForgeGitHub:
		return NewGitHubClient(fc)
	case config.ForgeLocal:
		return NewLocalClient(fc, logger)
	default:
		return nil, fnderrors.ConfigError("unsupported forge type").
			WithContext("type", string(fc.Type)).
			Fatal().
			Build()
	}
}

// NewMutator creates a write client for the configured forge. Local forges
// have no write surface.
func NewMutator(fc config.ForgeConfig) (Mutator, error) {
	switch fc.Type {
	case config.ForgeGitHub:
		return NewGitHubClient(fc)
	case config.ForgeLocal:
		return nil, fnderrors.ForgeError("local forge is read-only").
			Cause(ErrReadOnly).
			UserAction().
			Build()
	default:
		return nil, fnderrors.ConfigError("unsupported forge type").
			WithContext("type", string(fc.Type)).
			Fatal().
			Build()
	}
}
