package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads environment variables from .env and .env.local when
// present. Values already set in the environment win; a missing file is
// not an error.
func LoadEnvFiles() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("failed to load env file", "path", path, "error", err)
			continue
		}
		slog.Debug("loaded environment variables", "path", path)
	}
}
