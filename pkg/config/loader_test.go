package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webqa/autoheal/pkg/config"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "autoheal.yaml"), []byte(body), 0o644))
}

func TestInitialize_MinimalConfigAppliesDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	dir := t.TempDir()
	writeConfig(t, dir, `
llm:
  embedding_endpoint: "http://localhost:11434/embed"
`)

	cfg, err := config.Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/embed", cfg.LLM.EmbeddingEndpoint)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, config.DefaultMaxConcurrentBrowsers, cfg.Execution.MaxConcurrentBrowsers)
	assert.Equal(t, config.DefaultPort, cfg.Server.Port)
	assert.Equal(t, config.DefaultStorageRoot, cfg.Storage.Root)
}

func TestInitialize_OverridesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("AUTOHEAL_ENDPOINT", "http://embed.internal/v1")
	dir := t.TempDir()
	writeConfig(t, dir, `
llm:
  embedding_endpoint: "${AUTOHEAL_ENDPOINT}"
execution:
  max_concurrent_browsers: 8
  run_timeout: 2m
server:
  port: 9090
storage:
  root: /var/lib/autoheal
trigger:
  high_water_mark: 50
  workers: 2
`)

	cfg, err := config.Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "http://embed.internal/v1", cfg.LLM.EmbeddingEndpoint)
	assert.Equal(t, 8, cfg.Execution.MaxConcurrentBrowsers)
	assert.Equal(t, "/var/lib/autoheal", cfg.Storage.Root)
	assert.Equal(t, 50, cfg.Trigger.HighWaterMark)
	assert.Equal(t, 2, cfg.Trigger.Workers)
}

func TestInitialize_MissingAPIKeyFailsValidation(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
llm:
  embedding_endpoint: "http://localhost:11434/embed"
`)

	_, err := config.Initialize(context.Background(), dir)
	assert.Error(t, err)
}

func TestInitialize_MissingFileReturnsLoadError(t *testing.T) {
	_, err := config.Initialize(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
}
