package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avrabe/mcp-loxone/internal/api"
	"github.com/avrabe/mcp-loxone/internal/apikey"
	"github.com/avrabe/mcp-loxone/internal/auth"
	"github.com/avrabe/mcp-loxone/internal/config"
	"github.com/avrabe/mcp-loxone/internal/metrics"
	"github.com/avrabe/mcp-loxone/internal/secrets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the event-stream server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	defer log.Sync()

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	policy, err := buildPolicy(cmd.Context(), cfg, reg, log)
	if err != nil {
		log.Error("refusing to start", zap.Error(err))
		return err
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	var tlsCfg *api.TLSConfig
	if cfg.Server.TLS.Enabled {
		tlsCfg = &api.TLSConfig{CertFile: cfg.Server.TLS.CertFile, KeyFile: cfg.Server.TLS.KeyFile}
	}

	server, err := api.NewServer(api.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.ListenPort(),
		ServiceName:       cfg.Server.ServiceName,
		Version:           Version,
		HeartbeatInterval: cfg.Server.HeartbeatInterval,
		MetricsPath:       metricsPath,
		TLS:               tlsCfg,
	}, api.Dependencies{Policy: policy, Metrics: reg}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	log.Info("starting loxone-sse server",
		zap.String("addr", server.Addr()),
		zap.String("scheme", server.Scheme()),
		zap.Bool("auth_required", policy.Required()),
		zap.Strings("exempt_paths", policy.Exempt().Paths()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", zap.Error(err))
		}
		return err
	case <-quit:
	}

	log.Info("shutting down loxone-sse server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}

// buildPolicy resolves the key once, before the listener starts. With
// authentication disabled the secret store is never opened.
func buildPolicy(ctx context.Context, cfg *config.Config, reg *metrics.Registry, log *zap.Logger) (*auth.Policy, error) {
	exempt := auth.NewExemptSet(auth.DefaultExemptPaths...)

	if !cfg.Auth.Required {
		log.Warn("API key authentication is DISABLED; anyone who can reach this server can use the event stream",
			zap.String("host", cfg.Server.Host),
		)
		return auth.NewPolicy(false, nil, exempt)
	}

	// an override key never needs the store
	resolver, closeStore, err := openResolver(cfg, cfg.Auth.APIKey == "", log)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	res, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving API key: %w", err)
	}

	if reg != nil {
		reg.RecordKeyResolution(string(res.Key.Source()), res.Warning == nil)
	}

	switch {
	case res.Warning != nil:
		log.Warn("API key is not durable; clients must be reconfigured after a restart",
			zap.Object("key", res.Key), zap.Error(res.Warning))
	case res.Key.Source() == apikey.SourceGenerated:
		log.Info("generated a new API key; run `loxone-sse key show` to print it",
			zap.Object("key", res.Key))
	}
	if cfg.Auth.APIKey == "" && cfg.Secrets.Backend == secrets.BackendMemory {
		log.Warn("memory secret backend keeps the key for this process only")
	}

	return auth.NewPolicy(true, res.Key, exempt)
}
