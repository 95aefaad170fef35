//go:build prod

package database

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// GetDefaultDBPath returns the database path for production mode.
// In production it lives under the user config directory.
func GetDefaultDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Warn().Err(err).Msg("user config dir unavailable, using working directory")
		return "oneclick.db"
	}

	appDir := filepath.Join(configDir, "oneclick")
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", appDir).Msg("create app config dir")
		return "oneclick.db"
	}

	return filepath.Join(appDir, "oneclick.db")
}

func IsDevelopment() bool {
	return false
}
