package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// Config contains all runtime settings for the dial controller daemon.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	CallServiceURL    string
	CallServiceAPIKey string
	RequestTimeout    time.Duration

	FromNumber   string
	PollInterval time.Duration

	DatabaseURL string
}

// phoneNumberRe accepts E.164-style numbers: optional leading +, 7 to 15 digits.
var phoneNumberRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "dialctl"),
		AllowAnyOrigin:    false,
		CallServiceURL:    envTrimmed("CALL_SERVICE_URL"),
		CallServiceAPIKey: envTrimmed("CALL_SERVICE_API_KEY"),
		FromNumber:        envTrimmed("FROM_NUMBER"),
		DatabaseURL:       envTrimmed("DATABASE_URL"),
		ShutdownTimeout:   15 * time.Second,
		RequestTimeout:    30 * time.Second,
		PollInterval:      2 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RequestTimeout, err = durationFromEnv("CALL_SERVICE_TIMEOUT", cfg.RequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.PollInterval, err = durationFromEnv("TRANSCRIPT_POLL_INTERVAL", cfg.PollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.CallServiceURL == "" {
		return Config{}, fmt.Errorf("CALL_SERVICE_URL is required")
	}
	if !strings.HasPrefix(cfg.CallServiceURL, "http://") && !strings.HasPrefix(cfg.CallServiceURL, "https://") {
		return Config{}, fmt.Errorf("CALL_SERVICE_URL must be an http(s) URL")
	}
	if cfg.CallServiceAPIKey == "" {
		return Config{}, fmt.Errorf("CALL_SERVICE_API_KEY is required")
	}
	if cfg.FromNumber == "" {
		return Config{}, fmt.Errorf("FROM_NUMBER is required")
	}
	if !phoneNumberRe.MatchString(cfg.FromNumber) {
		return Config{}, fmt.Errorf("FROM_NUMBER %q is not a valid phone number", cfg.FromNumber)
	}
	if cfg.PollInterval < 250*time.Millisecond {
		return Config{}, fmt.Errorf("TRANSCRIPT_POLL_INTERVAL must be at least 250ms")
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("CALL_SERVICE_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
