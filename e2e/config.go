package e2e

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for E2E tests
type Config struct {
	BaseURL   string
	Email     string
	Password  string
	Paths     []string
	Timeout   time.Duration
	SignInURL string
}

// LoadConfig loads E2E test configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		BaseURL:   os.Getenv("EDUAPI_E2E_BASE_URL"),
		Email:     os.Getenv("EDUAPI_E2E_EMAIL"),
		Password:  os.Getenv("EDUAPI_E2E_PASSWORD"),
		Paths:     splitList(getEnvOrDefault("EDUAPI_E2E_PATHS", "/api/courses")),
		Timeout:   getTimeoutFromEnv("EDUAPI_E2E_TIMEOUT", 60*time.Second),
		SignInURL: os.Getenv("EDUAPI_E2E_SIGN_IN_URL"),
	}
}

// Complete reports whether enough is configured to run against a live API.
func (c *Config) Complete() bool {
	return c.BaseURL != "" && c.Email != "" && c.Password != ""
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getTimeoutFromEnv parses timeout in seconds from environment variable
func getTimeoutFromEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
