package configs

import (
	"os"

	"github.com/hilthontt/nodeline/internal/infrastructure/env"
)

var candidatePaths = []string{
	"./config.yaml",
	"./config.yml",
	"./tmp/config.yaml",
	"/etc/nodeline/config.yaml",
	"/app/config.yaml",
}

// DetermineConfigPath returns "" when no file is found; Load then runs on defaults.
func DetermineConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if configPath := env.GetString("NODELINE_CONFIG", ""); configPath != "" {
		return configPath
	}

	for _, p := range candidatePaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
