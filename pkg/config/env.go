package config

import (
	"os"
	"strings"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// GetEnv returns the value of an environment variable or a default value if not set.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvironment returns the lower-cased CVINTAKE_SERVER_ENVIRONMENT, defaulting to development.
func GetEnvironment() string {
	return strings.ToLower(GetEnv("CVINTAKE_SERVER_ENVIRONMENT", EnvDevelopment))
}

// IsProductionLike reports whether the process runs in staging or production.
func IsProductionLike() bool {
	return isProductionLike(GetEnvironment())
}
