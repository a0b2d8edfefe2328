package config

import (
	"os"
	"strings"
)

// ModeEnvKey selects which config.<mode>.yaml files are stacked.
const ModeEnvKey = "ADMINSITE_ENV"

// Mode is the deployment mode.
type Mode string

const (
	DevMode  Mode = "development"
	ProMode  Mode = "production"
	TestMode Mode = "test"
)

// ParseMode normalizes aliases such as "dev" or "prod".
func ParseMode(env string) Mode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// ModeFromEnv reads ADMINSITE_ENV.
func ModeFromEnv() Mode {
	return ParseMode(os.Getenv(ModeEnvKey))
}

// aliases returns the file suffixes accepted for m.
func (m Mode) aliases() []string {
	switch m {
	case ProMode:
		return []string{"production", "prod"}
	case TestMode:
		return []string{"test"}
	default:
		return []string{"development", "dev"}
	}
}
