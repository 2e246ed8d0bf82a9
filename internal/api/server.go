// internal/api/server.go
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/avrabe/mcp-loxone/internal/api/handler/service"
	"github.com/avrabe/mcp-loxone/internal/api/handler/stream"
	"github.com/avrabe/mcp-loxone/internal/api/middleware"
	"github.com/avrabe/mcp-loxone/internal/auth"
	"github.com/avrabe/mcp-loxone/internal/core"
	"github.com/avrabe/mcp-loxone/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Stream endpoints.
const (
	StreamPath   = "/sse"
	MessagesPath = "/messages"
)

// Server represents the HTTP server in front of the event stream.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
}

// Config holds server configuration
type Config struct {
	Host              string
	Port              int
	ServiceName       string
	Version           string
	HeartbeatInterval time.Duration
	MetricsPath       string     // empty disables the metrics endpoint
	TLS               *TLSConfig // nil serves plain HTTP
}

// TLSConfig names the certificate and key served over HTTPS.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// Dependencies holds the collaborators the server wires into its routes.
type Dependencies struct {
	Policy  *auth.Policy
	Metrics *metrics.Registry // optional
}

// NewServer creates a new HTTP server. The policy is fixed for the lifetime
// of the server; a rotated key takes effect with a new server.
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Policy == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("auth policy is required"))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
	}

	s.setupRoutes(cfg, deps)

	var recorder middleware.AuthRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	// metrics → access log → gate → routes
	var h http.Handler = mux
	h = middleware.Gate(deps.Policy, logger, recorder)(h)
	h = metrics.LoggingMiddleware(logger.Named("http"))(h)
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	s.handler = h

	// streams only end when their request context does
	baseCtx, cancel := context.WithCancel(context.Background())

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     h,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
		ReadTimeout: 15 * time.Second,
		// no write timeout: stream responses stay open
		IdleTimeout: 60 * time.Second,
	}
	s.httpServer.RegisterOnShutdown(cancel)

	if cfg.TLS != nil {
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			cancel()
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("loading TLS key pair: %w", err))
		}
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	svc := service.NewHandler(cfg.ServiceName, cfg.Version, deps.Policy.Required(), StreamPath)

	s.mux.HandleFunc("GET /health", svc.Health)
	s.mux.HandleFunc("GET /{$}", svc.Root)
	s.mux.HandleFunc("GET /docs", svc.Docs)
	s.mux.HandleFunc("GET /openapi.json", svc.OpenAPI)

	var tracker stream.Tracker
	if deps.Metrics != nil {
		tracker = deps.Metrics
	}
	streams := stream.NewHandler(cfg.HeartbeatInterval, MessagesPath, tracker, s.logger)
	s.mux.Handle("GET "+StreamPath, streams)
	s.mux.HandleFunc("POST "+MessagesPath, streams.Messages)

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Scheme is "https" when TLS is configured, else "http".
func (s *Server) Scheme() string {
	if s.httpServer.TLSConfig != nil {
		return "https"
	}
	return "http"
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", s.httpServer.Addr),
		zap.String("scheme", s.Scheme()),
	)

	var err error
	if s.httpServer.TLSConfig != nil {
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Serve accepts connections on l, with TLS when configured.
func (s *Server) Serve(l net.Listener) error {
	var err error
	if s.httpServer.TLSConfig != nil {
		err = s.httpServer.ServeTLS(l, "", "")
	} else {
		err = s.httpServer.Serve(l)
	}
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
