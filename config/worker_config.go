package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Platform YAML
	PlatformPath string

	// Redis
	RedisURL     string
	StateStream  string
	StreamMaxLen int64

	// API
	JWTSecret      string
	AllowedOrigins []string

	// Scheduler
	WorkerID         string
	RefreshCron      string
	RefreshWorkers   int
	RefreshTimeout   time.Duration
	SchedulerEnabled bool

	// Secrets that override the YAML file
	ExchangePassword     string
	ExchangeClientSecret string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		PlatformPath: getEnv("EXCAL_CONFIG", "config.yaml"),

		// Redis
		RedisURL:     getEnv("REDIS_URL", ""),
		StateStream:  getEnv("STATE_STREAM", "calendar:state"),
		StreamMaxLen: int64(getEnvInt("STATE_STREAM_MAXLEN", 10000)),

		// JWT
		JWTSecret:      getEnv("API_JWT_SECRET", ""),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", nil),

		// Scheduler
		WorkerID:         getEnv("WORKER_ID", generateWorkerID()),
		RefreshCron:      getEnv("REFRESH_CRON", "@every 1m"),
		RefreshWorkers:   getEnvInt("REFRESH_WORKERS", 4),
		RefreshTimeout:   time.Duration(getEnvInt("REFRESH_TIMEOUT_SEC", 120)) * time.Second,
		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),

		ExchangePassword:     getEnv("EXCHANGE_PASSWORD", ""),
		ExchangeClientSecret: getEnv("EXCHANGE_CLIENT_SECRET", ""),
	}

	if cfg.RefreshWorkers <= 0 {
		return nil, fmt.Errorf("REFRESH_WORKERS must be positive, got %d", cfg.RefreshWorkers)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
