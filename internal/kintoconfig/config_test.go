package kintoconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestLoad_AppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, os.WriteFile(path, []byte(`
[server]
base_url = "https://kinto.example.org/v1"

[collection]
name = "articles"

[sync]
strategy = "client_wins"
`), 0o600))

	cfg, err := Load(path, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "https://kinto.example.org/v1", cfg.Server.BaseURL)
	assert.Equal(t, "default", cfg.Collection.Bucket) // untouched default
	assert.Equal(t, "articles", cfg.Collection.Name)
	assert.Equal(t, "client_wins", cfg.Sync.Strategy)
	assert.Equal(t, "info", cfg.Logging.Level) // untouched default
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), discardLogger())
	require.Error(t, err)
}

func TestLoad_InvalidStrategyFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, os.WriteFile(path, []byte(`
[collection]
name = "articles"

[sync]
strategy = "yolo"
`), 0o600))

	_, err := Load(path, discardLogger())
	require.Error(t, err)
}

func TestLoadOrDefault_MissingPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOrDefault_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadOrDefault("", discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate_RequiresCollectionName(t *testing.T) {
	cfg := DefaultConfig()
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidate_RequiresBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Collection.Name = "articles"
	cfg.Server.BaseURL = ""

	require.Error(t, Validate(cfg))
}
