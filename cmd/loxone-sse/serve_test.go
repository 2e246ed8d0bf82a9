package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avrabe/mcp-loxone/internal/auth"
	"github.com/avrabe/mcp-loxone/internal/config"
	"github.com/avrabe/mcp-loxone/internal/metrics"
	"github.com/avrabe/mcp-loxone/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Secrets.Backend = secrets.BackendFile
	cfg.Secrets.Path = t.TempDir()
	return cfg
}

func bearer(key string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+key)
	return h
}

func TestBuildPolicy_Disabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.Auth.Required = false
	// would fail to open if touched
	cfg.Secrets.Backend = secrets.BackendFile
	cfg.Secrets.Path = filepath.Join(t.TempDir(), "missing", "dir")

	obs, logs := observer.New(zapcore.WarnLevel)
	policy, err := buildPolicy(context.Background(), cfg, nil, zap.New(obs))
	require.NoError(t, err)

	assert.False(t, policy.Required())
	assert.Equal(t, auth.ReasonDisabled, policy.Decide("/sse", http.Header{}).Reason)
	assert.Equal(t, 1, logs.FilterMessageSnippet("DISABLED").Len())

	_, statErr := os.Stat(cfg.Secrets.Path)
	assert.True(t, os.IsNotExist(statErr), "store must not be opened")
}

func TestBuildPolicy_Override(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Auth.APIKey = "abc123"

	reg := metrics.NewRegistry()
	policy, err := buildPolicy(context.Background(), cfg, reg, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, policy.Decide("/sse", bearer("abc123")).Allowed)
	assert.False(t, policy.Decide("/sse", bearer("abc124")).Allowed)

	entries, err := os.ReadDir(cfg.Secrets.Path)
	require.NoError(t, err)
	assert.Empty(t, entries, "override is never persisted")
}

func TestBuildPolicy_GeneratesOnceAndPersists(t *testing.T) {
	cfg := fileConfig(t)

	first, err := buildPolicy(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)

	store, err := secrets.NewFile(cfg.Secrets.Path)
	require.NoError(t, err)
	stored, err := store.Get(context.Background(), cfg.Auth.SecretName)
	require.NoError(t, err)
	assert.Len(t, stored, 43)

	assert.True(t, first.Decide("/sse", bearer(stored)).Allowed)

	second, err := buildPolicy(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, second.Decide("/sse", bearer(stored)).Allowed)
}

func TestBuildPolicy_KeyNeverLogged(t *testing.T) {
	cfg := fileConfig(t)

	var buf bytes.Buffer
	log := zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.DebugLevel,
	))

	_, err := buildPolicy(context.Background(), cfg, nil, log)
	require.NoError(t, err)

	store, err := secrets.NewFile(cfg.Secrets.Path)
	require.NoError(t, err)
	stored, err := store.Get(context.Background(), cfg.Auth.SecretName)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "key show")
	assert.NotContains(t, buf.String(), stored)
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := "secrets:\n  backend: file\n  path: " + filepath.Join(dir, "secrets") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestKeyCommands(t *testing.T) {
	t.Setenv("LOXONE_SSE_API_KEY", "")
	cfgPath := writeConfig(t, t.TempDir())

	_, err := runCLI(t, "key", "show", "-c", cfgPath)
	require.Error(t, err, "nothing stored yet")

	rotated, err := runCLI(t, "key", "rotate", "-c", cfgPath)
	require.NoError(t, err)
	assert.Len(t, rotated, 43)

	shown, err := runCLI(t, "key", "show", "-c", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, rotated, shown)

	again, err := runCLI(t, "key", "rotate", "-c", cfgPath)
	require.NoError(t, err)
	assert.NotEqual(t, rotated, again)

	_, err = runCLI(t, "key", "clear", "-c", cfgPath)
	require.NoError(t, err)

	_, err = runCLI(t, "key", "show", "-c", cfgPath)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "loxone-sse "+Version))
}

func TestCLI_BadLogLevelFailsValidation(t *testing.T) {
	t.Setenv("LOXONE_LOG_LEVEL", "verbose")
	cfgPath := writeConfig(t, t.TempDir())

	assert.NotPanics(t, func() {
		_, err := runCLI(t, "key", "show", "-c", cfgPath)
		assert.Error(t, err)
	})
}
