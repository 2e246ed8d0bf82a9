package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/avrabe/mcp-loxone/internal/core"
	"github.com/avrabe/mcp-loxone/internal/logger"
	"github.com/avrabe/mcp-loxone/internal/secrets"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Secrets SecretsConfig `mapstructure:"secrets"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ServiceName       string        `mapstructure:"service_name"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	TLS               TLSConfig     `mapstructure:"tls"`
}

// TLSConfig enables HTTPS. When enabled the server listens on Port instead
// of the plain HTTP port.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
	Port     int    `mapstructure:"port"`
}

// AuthConfig controls the API key gate.
type AuthConfig struct {
	Required bool `mapstructure:"required"`
	// APIKey overrides the stored key when set. Never persisted.
	APIKey     string `mapstructure:"api_key"`
	SecretName string `mapstructure:"secret_name"`
}

// SecretsConfig selects where the API key is persisted.
type SecretsConfig struct {
	Backend string   `mapstructure:"backend"` // keychain, file, sqlite, s3, memory
	Service string   `mapstructure:"service"` // keychain
	Path    string   `mapstructure:"path"`    // file
	DSN     string   `mapstructure:"dsn"`     // sqlite
	S3      S3Config `mapstructure:"s3"`      // s3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// envBindings maps config keys to the environment variables that override
// them.
var envBindings = map[string]string{
	"server.host":     "LOXONE_SSE_HOST",
	"server.port":     "LOXONE_SSE_PORT",
	"auth.required":   "LOXONE_SSE_REQUIRE_AUTH",
	"auth.api_key":    "LOXONE_SSE_API_KEY",
	"secrets.backend": "LOXONE_SECRETS_BACKEND",
	"log.level":       "LOXONE_LOG_LEVEL",

	"server.tls.enabled":   "LOXONE_SSE_USE_HTTPS",
	"server.tls.cert_file": "LOXONE_SSL_CERT",
	"server.tls.key_file":  "LOXONE_SSL_KEY",
	"server.tls.port":      "LOXONE_SSL_PORT",
}

// Load reads configuration from file. An empty path loads defaults and
// environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Secrets.Path = expandHome(cfg.Secrets.Path)
	cfg.Secrets.DSN = expandHome(cfg.Secrets.DSN)
	cfg.Server.TLS.CertFile = expandHome(cfg.Server.TLS.CertFile)
	cfg.Server.TLS.KeyFile = expandHome(cfg.Server.TLS.KeyFile)

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.service_name", d.Server.ServiceName)
	v.SetDefault("server.heartbeat_interval", d.Server.HeartbeatInterval)
	v.SetDefault("server.tls.enabled", d.Server.TLS.Enabled)
	v.SetDefault("server.tls.cert_file", d.Server.TLS.CertFile)
	v.SetDefault("server.tls.key_file", d.Server.TLS.KeyFile)
	v.SetDefault("server.tls.port", d.Server.TLS.Port)
	v.SetDefault("auth.required", d.Auth.Required)
	v.SetDefault("auth.api_key", d.Auth.APIKey)
	v.SetDefault("auth.secret_name", d.Auth.SecretName)
	v.SetDefault("secrets.backend", d.Secrets.Backend)
	v.SetDefault("secrets.service", d.Secrets.Service)
	v.SetDefault("secrets.path", d.Secrets.Path)
	v.SetDefault("secrets.dsn", d.Secrets.DSN)
	v.SetDefault("secrets.s3.region", d.Secrets.S3.Region)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			// Localhost only; the stream controls a home installation
			Host:              "127.0.0.1",
			Port:              8000,
			ServiceName:       "loxone-mcp-sse",
			HeartbeatInterval: 15 * time.Second,
			TLS: TLSConfig{
				CertFile: "certs/server.crt",
				KeyFile:  "certs/server.key",
				Port:     8443,
			},
		},
		Auth: AuthConfig{
			Required:   true,
			SecretName: "SSE_API_KEY",
		},
		Secrets: SecretsConfig{
			Backend: secrets.BackendKeychain,
			Service: secrets.DefaultService,
			Path:    "~/.config/loxone-mcp/secrets",
			DSN:     "~/.config/loxone-mcp/secrets.db",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.HeartbeatInterval <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("heartbeat_interval must be positive, got %s", c.Server.HeartbeatInterval))
	}

	if c.Server.TLS.Enabled {
		if err := c.Server.TLS.validate(); err != nil {
			return err
		}
	}

	if c.Auth.SecretName == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("auth.secret_name is required"))
	}

	if !slices.Contains(secrets.Backends, c.Secrets.Backend) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("secrets.backend must be one of %v, got %q", secrets.Backends, c.Secrets.Backend))
	}
	switch c.Secrets.Backend {
	case secrets.BackendFile:
		if c.Secrets.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("secrets.path required when backend is file"))
		}
	case secrets.BackendSQLite:
		if c.Secrets.DSN == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("secrets.dsn required when backend is sqlite"))
		}
	case secrets.BackendS3:
		if c.Secrets.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("secrets.s3.bucket required when backend is s3"))
		}
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path))
	}

	return nil
}

func (t TLSConfig) validate() error {
	if t.Port < 1 || t.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("tls port must be between 1 and 65535, got %d", t.Port))
	}
	for field, path := range map[string]string{"cert_file": t.CertFile, "key_file": t.KeyFile} {
		if path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("server.tls.%s required when tls is enabled", field))
		}
		if _, err := os.Stat(path); err != nil {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("server.tls.%s: %w", field, err))
		}
	}
	return nil
}

// ListenPort is the port the server binds: the TLS port when HTTPS is on.
func (c *Config) ListenPort() int {
	if c.Server.TLS.Enabled {
		return c.Server.TLS.Port
	}
	return c.Server.Port
}

// SecretsOptions converts the secrets section for secrets.Open.
func (c *Config) SecretsOptions() secrets.Options {
	return secrets.Options{
		Backend: c.Secrets.Backend,
		Service: c.Secrets.Service,
		Path:    c.Secrets.Path,
		DSN:     c.Secrets.DSN,
		S3: secrets.S3Config{
			Bucket:    c.Secrets.S3.Bucket,
			Endpoint:  c.Secrets.S3.Endpoint,
			Region:    c.Secrets.S3.Region,
			AccessKey: c.Secrets.S3.AccessKey,
			SecretKey: c.Secrets.S3.SecretKey,
			Prefix:    c.Secrets.S3.Prefix,
		},
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
