package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DevDeviceSecret signs device cookies when DEVICE_SECRET is unset. It is
// only accepted with the memory backend.
const DevDeviceSecret = "lifebalance-dev-secret-change-me"

const minDeviceSecretLen = 16

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Devices and sessions
	DeviceSecret       string
	LoginDelay         time.Duration
	WorkspaceCacheSize int
	WorkspaceTTL       time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/lifebalance.db"),

		DeviceSecret:       getEnv("DEVICE_SECRET", ""),
		LoginDelay:         getEnvDuration("LOGIN_DELAY", time.Second),
		WorkspaceCacheSize: getEnvInt("WORKSPACE_CACHE_SIZE", 256),
		WorkspaceTTL:       getEnvDuration("WORKSPACE_TTL", 30*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "lifebalance"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "record.created"),
	}

	return cfg
}

// UsesDevSecret reports whether device cookies are signed with the built-in
// development secret.
func (c *Config) UsesDevSecret() bool {
	return c.DeviceSecret == "" || c.DeviceSecret == DevDeviceSecret
}

// Secret returns the device signing secret, falling back to DevDeviceSecret.
func (c *Config) Secret() string {
	if c.DeviceSecret == "" {
		return DevDeviceSecret
	}
	return c.DeviceSecret
}

// EventsEnabled reports whether record events are published to AMQP.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Persistent backends need a real signing secret
	if c.DataBackend != "memory" && c.UsesDevSecret() {
		errors = append(errors, "DEVICE_SECRET is required when using a persistent backend")
	}
	if c.DeviceSecret != "" && len(c.DeviceSecret) < minDeviceSecretLen {
		errors = append(errors, fmt.Sprintf("device secret too short: must be at least %d characters", minDeviceSecretLen))
	}

	if c.LoginDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid login delay %v: must not be negative", c.LoginDelay))
	} else if c.LoginDelay > 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid login delay %v: must be at most 10 seconds", c.LoginDelay))
	}

	if c.WorkspaceCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid workspace cache size %d: must be at least 1", c.WorkspaceCacheSize))
	} else if c.WorkspaceCacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid workspace cache size %d: must be at most 100000", c.WorkspaceCacheSize))
	}

	if c.WorkspaceTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid workspace TTL %v: must be at least 1 minute", c.WorkspaceTTL))
	} else if c.WorkspaceTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid workspace TTL %v: must be at most 24 hours", c.WorkspaceTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "tint":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of text, json, tint", c.LogFormat))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
