/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, the external media
relay credentials, and the presence timing knobs.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// External media relay (SFU) settings. The relay is a collaborator;
	// this server only mints access tokens scoped to it.
	RelayWSURL     string
	RelayAPIKey    string
	RelayAPISecret string

	// Presence timing. StaleThreshold should be roughly three times the
	// client heartbeat interval; DJAbsentGrace must exceed StaleThreshold
	// so a room outlives a single flapping heartbeat.
	HeartbeatInterval time.Duration
	StaleThreshold    time.Duration
	DJAbsentGrace     time.Duration
	SweepInterval     time.Duration

	// TokenTTL is the lifetime of a minted relay access token.
	TokenTTL time.Duration
}

// RelayConfigured reports whether all relay credentials are present.
func (c *AppConfig) RelayConfigured() bool {
	return c.RelayWSURL != "" && c.RelayAPIKey != "" && c.RelayAPISecret != ""
}

// durationEnv reads a duration environment variable with a fallback default.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %s", key, d)
	}

	return d, nil
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary
// type conversions and validation. It returns a pointer to the AppConfig struct
// and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Relay Settings ---
	cfg.RelayWSURL = os.Getenv("RELAY_WS_URL")
	cfg.RelayAPIKey = os.Getenv("RELAY_API_KEY")
	cfg.RelayAPISecret = os.Getenv("RELAY_API_SECRET")

	if cfg.Environment != "development" && !cfg.RelayConfigured() {
		return nil, fmt.Errorf("RELAY_WS_URL, RELAY_API_KEY and RELAY_API_SECRET environment variables are required in %s environment", cfg.Environment)
	}

	// --- Presence Timing ---
	if cfg.HeartbeatInterval, err = durationEnv("HEARTBEAT_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}

	if cfg.StaleThreshold, err = durationEnv("STALE_THRESHOLD", 45*time.Second); err != nil {
		return nil, err
	}

	if cfg.DJAbsentGrace, err = durationEnv("DJ_ABSENT_GRACE", 2*time.Minute); err != nil {
		return nil, err
	}

	if cfg.SweepInterval, err = durationEnv("SWEEP_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}

	if cfg.DJAbsentGrace < cfg.StaleThreshold {
		return nil, fmt.Errorf("DJ_ABSENT_GRACE (%s) must not be shorter than STALE_THRESHOLD (%s)", cfg.DJAbsentGrace, cfg.StaleThreshold)
	}

	// --- Token Settings ---
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}
