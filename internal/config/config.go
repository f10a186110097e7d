// Package config loads process configuration from the environment,
// failing fast on missing required values. github.com/joho/godotenv loads
// a local .env file for development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting shared across
// cmd/api, cmd/scheduler, and cmd/worker. Each binary builds exactly one
// Config at startup and threads it explicitly; there is no package-level
// singleton.
type Config struct {
	DatabaseURL string
	RedisAddr   string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	JWTSecret    string
	ServiceToken string
	APIBaseURL   string

	Port                  string
	LogLevel              string
	SchedulerTickInterval time.Duration
}

// Load reads .env (if present, ignored if absent) then the process
// environment, and validates the variables each binary actually needs.
// required lists the env vars that must be non-empty for the caller's
// binary; pass nil to skip validation (e.g. in tests).
func Load(required ...string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       envOr("REDIS_URL", "127.0.0.1:6379"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    envOr("VAPID_SUBJECT", "mailto:ops@taskpulse.invalid"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		ServiceToken:    os.Getenv("SERVICE_TOKEN"),
		APIBaseURL:      envOr("API_BASE_URL", "http://127.0.0.1:8080"),
		Port:            envOr("PORT", "8080"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
	}

	interval := envOr("SCHEDULER_TICK_INTERVAL", "60s")
	d, err := time.ParseDuration(interval)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid SCHEDULER_TICK_INTERVAL %q: %w", interval, err)
	}
	cfg.SchedulerTickInterval = d

	for _, name := range required {
		if cfg.field(name) == "" {
			return Config{}, fmt.Errorf("config: required environment variable %s is not set", name)
		}
	}

	return cfg, nil
}

func (c Config) field(name string) string {
	switch name {
	case "DATABASE_URL":
		return c.DatabaseURL
	case "REDIS_URL":
		return c.RedisAddr
	case "VAPID_PUBLIC_KEY":
		return c.VAPIDPublicKey
	case "VAPID_PRIVATE_KEY":
		return c.VAPIDPrivateKey
	case "JWT_SECRET":
		return c.JWTSecret
	case "SERVICE_TOKEN":
		return c.ServiceToken
	case "API_BASE_URL":
		return c.APIBaseURL
	default:
		return ""
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
