package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Web frontend
	Server ServerConfig

	// Remote calendar API
	API APIConfig

	// Session handling
	Auth AuthConfig

	// Local stand-in for the remote API
	DevAPI DevAPIConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds web frontend configuration
type ServerConfig struct {
	Port        string
	Environment string
	PublicURL   string
	CORSOrigins []string
}

// IsProduction reports whether cookies must be marked secure
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// APIConfig holds the remote API connection settings
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig holds session settings
type AuthConfig struct {
	// DevMode bypasses authentication everywhere. It is evaluated once here
	// and injected into the edge guard, the route guard and the session manager.
	DevMode   bool
	GuardWait time.Duration
}

// DevAPIConfig holds settings for cmd/devapi
type DevAPIConfig struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	devMode, err := boolEnv("DEV_MODE", false)
	if err != nil {
		return nil, err
	}

	apiTimeout, err := durationEnv("API_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	guardWait, err := durationEnv("AUTH_GUARD_WAIT", 2*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:        stringEnv("PORT", "3000"),
			Environment: strings.ToLower(stringEnv("APP_ENV", "development")),
			PublicURL:   strings.TrimRight(stringEnv("PUBLIC_URL", "http://localhost:3000"), "/"),
			CORSOrigins: listEnv("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(stringEnv("API_URL", "http://localhost:8080"), "/"),
			Timeout: apiTimeout,
		},
		Auth: AuthConfig{
			DevMode:   devMode,
			GuardWait: guardWait,
		},
		DevAPI: DevAPIConfig{
			Port:        stringEnv("DEVAPI_PORT", "8080"),
			DatabaseURL: stringEnv("DEVAPI_DATABASE_URL", "calendrier-dev.sqlite"),
			JWTSecret:   stringEnv("DEVAPI_JWT_SECRET", "calendrier-dev-secret"),
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func listEnv(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
