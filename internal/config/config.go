package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings carries everything the process reads from the environment.
// Constructed once in main and passed down; no package-level state.
type Settings struct {
	ServerPort           string
	RedisAddr            string
	DefaultProcessorURL  string
	FallbackProcessorURL string

	// Upstream call budget for probes and submissions.
	GatewayTimeout time.Duration

	// Health cache TTL. Must stay under the processors' 5s health-check
	// rate limit so cached reads absorb almost all routing decisions.
	HealthTTL time.Duration

	// Probe retry schedule: attempt i waits i * ProbeRetryDelay.
	ProbeAttempts   int
	ProbeRetryDelay time.Duration

	AdminToken string
}

func Load() *Settings {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	return &Settings{
		ServerPort:           getString("PORT", "9999"),
		RedisAddr:            getString("REDIS_ADDR", "localhost:6379"),
		DefaultProcessorURL:  getString("PAYMENT_PROCESSOR_URL_DEFAULT", "http://localhost:8001"),
		FallbackProcessorURL: getString("PAYMENT_PROCESSOR_URL_FALLBACK", "http://localhost:8002"),
		GatewayTimeout:       getDuration("GATEWAY_TIMEOUT", 5*time.Second),
		HealthTTL:            getDuration("HEALTH_TTL", 4500*time.Millisecond),
		ProbeAttempts:        getInt("PROBE_ATTEMPTS", 5),
		ProbeRetryDelay:      getDuration("PROBE_RETRY_DELAY", time.Second),
		AdminToken:           getString("ADMIN_TOKEN", "123"),
	}
}

func getString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
