package main

import (
	"fmt"
	"io"

	"github.com/avrabe/mcp-loxone/internal/apikey"
	"github.com/avrabe/mcp-loxone/internal/config"
	"github.com/avrabe/mcp-loxone/internal/logger"
	"github.com/avrabe/mcp-loxone/internal/secrets"
	"go.uber.org/zap"
)

// loadConfig reads and validates the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. The level was checked by Validate.
func newLogger(cfg *config.Config) *zap.Logger {
	opts := logger.Options{Level: cfg.Log.Level, Development: cfg.Log.Development}
	if debug {
		opts = logger.Options{Level: "debug", Development: true}
	}
	return logger.Must(opts)
}

// openResolver builds a resolver, opening the configured secret store when
// withStore is set. The returned close func is always non-nil.
func openResolver(cfg *config.Config, withStore bool, log *zap.Logger) (*apikey.Resolver, func() error, error) {
	noop := func() error { return nil }

	rcfg := apikey.ResolverConfig{
		Override:   cfg.Auth.APIKey,
		SecretName: cfg.Auth.SecretName,
	}
	if !withStore {
		return apikey.NewResolver(rcfg, log), noop, nil
	}

	store, err := secrets.Open(cfg.SecretsOptions())
	if err != nil {
		return nil, noop, fmt.Errorf("opening secret store: %w", err)
	}
	rcfg.Store = store

	closeFn := noop
	if c, ok := store.(io.Closer); ok {
		closeFn = c.Close
	}
	return apikey.NewResolver(rcfg, log), closeFn, nil
}
