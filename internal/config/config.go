package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	GinMode       string
	RedisURL      string
	RedisPassword string
	BackendURL    string
	SessionTTLHrs int
	PerPage       int
	LogLevel      string
}

func Load() (*Config, error) {
	// Load .env
	_ = godotenv.Load()

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is not set in .env file")
	}

	ttl, _ := strconv.Atoi(getEnv("SESSION_TTL_HOURS", "24"))
	// 150 per fetch to leave headroom for duplicates the backend drops.
	perPage, _ := strconv.Atoi(getEnv("PER_PAGE", "150"))

	return &Config{
		Port:          getEnv("PORT", "8080"),
		GinMode:       getEnv("GIN_MODE", "release"),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		BackendURL:    backendURL,
		SessionTTLHrs: ttl,
		PerPage:       perPage,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
