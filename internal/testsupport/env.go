package testsupport

import (
	"os"
	"strconv"
	"testing"

	"medteam/internal/adapters/config"
)

// PostgresConfigFromEnv reads the Postgres section for integration tests.
// The test is skipped under -short or when POSTGRES_HOST is unset.
func PostgresConfigFromEnv(t *testing.T) config.PostgresConfig {
	t.Helper()
	requireIntegration(t, "POSTGRES_HOST")

	return config.PostgresConfig{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     intValue("POSTGRES_PORT", 5432),
		User:     valueWithDefault("POSTGRES_USER", "postgres"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Database: valueWithDefault("POSTGRES_DB", "medteam_test"),
		SSLMode:  valueWithDefault("POSTGRES_SSL_MODE", "disable"),
		MaxConns: 4,
	}
}

// RedisConfigFromEnv reads the Redis section for integration tests.
// The test is skipped under -short or when REDIS_HOST is unset.
func RedisConfigFromEnv(t *testing.T) config.RedisConfig {
	t.Helper()
	requireIntegration(t, "REDIS_HOST")

	return config.RedisConfig{
		Host:     os.Getenv("REDIS_HOST"),
		Port:     intValue("REDIS_PORT", 6379),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intValue("REDIS_DB", 15),
	}
}

func requireIntegration(t *testing.T, key string) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv(key) == "" {
		t.Skipf("integration environment missing, set %s to run", key)
	}
}

func valueWithDefault(key string, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func intValue(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}

	return fallback
}
