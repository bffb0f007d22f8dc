// Package config loads service configuration from environment variables.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int

	// API server
	Port           string
	AllowedOrigins []string

	// Auth
	ClerkSecretKey string
	OwnerClerkID   string

	// Calendar days are cut at midnight in this location.
	Timezone *time.Location

	// Widget snapshot publishing; empty addresses disable a publisher.
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	MQTTBrokerURL string
	MQTTClientID  string
	MQTTTopic     string

	// Push
	FCMCredentialsFile string

	// Metrics
	MetricsUser string
	MetricsPass string

	// Logging
	LogLevel  string
	LogPretty bool

	// Workers
	RecomputeInterval time.Duration
	DispatchInterval  time.Duration

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from the environment with defaults for
// everything except the database URL.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	tzName := envOr("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 5),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 25),

		Port:           envOr("PORT", "3333"),
		AllowedOrigins: envList("CORS_ALLOW_ORIGINS", []string{"*"}),

		ClerkSecretKey: envOr("CLERK_SECRET_KEY", ""),
		OwnerClerkID:   envOr("OWNER_CLERK_ID", ""),

		Timezone: loc,

		RedisAddr:     envOr("REDIS_ADDR", ""),
		RedisUsername: envOr("REDIS_USERNAME", ""),
		RedisPassword: envOr("REDIS_PASSWORD", ""),
		MQTTBrokerURL: envOr("MQTT_BROKER_URL", ""),
		MQTTClientID:  envOr("MQTT_CLIENT_ID", "salahstreak-api"),
		MQTTTopic:     envOr("MQTT_TOPIC", "salahstreak/widget"),

		FCMCredentialsFile: envOr("FCM_CREDENTIALS_FILE", "./serviceAccountKey.json"),

		MetricsUser: envOr("METRICS_USER", ""),
		MetricsPass: envOr("METRICS_PASS", ""),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogPretty: envBool("LOG_PRETTY", false),

		RecomputeInterval: envDuration("RECOMPUTE_INTERVAL", 60*time.Second),
		DispatchInterval:  envDuration("DISPATCH_INTERVAL", 30*time.Second),

		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 30),
	}, nil
}

// ValidateServe checks the settings only the HTTP server needs.
func (c *Config) ValidateServe() error {
	if c.ClerkSecretKey == "" {
		return fmt.Errorf("CLERK_SECRET_KEY environment variable is not set")
	}
	if c.OwnerClerkID == "" {
		return fmt.Errorf("OWNER_CLERK_ID environment variable is not set")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("90s") or a bare number of
// seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
