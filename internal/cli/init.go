// Package cli provides the initialization shared by the lifebalance
// subcommands: environment, config, logging and storage.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"lifebalance/internal/backend"
	"lifebalance/internal/config"
	"lifebalance/internal/log"
)

// SetupLogger builds the logger described by cfg and sets it as the default.
// Unknown levels or formats fall back to info and text.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	lc.Output = os.Stderr
	if cfg != nil {
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			lc.Level = level
		}
		if format, err := log.ParseFormat(cfg.LogFormat); err == nil {
			lc.Format = format
		}
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WarnInsecureDefaults logs the settings that are only fit for development.
func WarnInsecureDefaults(logger *log.Logger, cfg *config.Config) {
	if cfg.UsesDevSecret() {
		logger.Warn("DEVICE_SECRET not set, signing device cookies with the development secret")
	}
	if !backend.BackendType(cfg.DataBackend).Persistent() {
		logger.Warn("Memory backend selected, all data is lost on restart")
	}
}

// OpenStore creates the key-value store selected by cfg.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", bc.Type, err)
	}
	return res, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
