package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "grok-2-vision-1212", cfg.Provider.Model)
	assert.Equal(t, "https://api.x.ai/v1/chat/completions", cfg.Provider.APIBase)
	assert.Equal(t, DefaultSystemPrompt, cfg.Agent.SystemPrompt)
	assert.Equal(t, 10, cfg.Agent.MaxHistory)
	assert.Equal(t, 1000, cfg.Media.DebounceMS)
	assert.Equal(t, 5000, cfg.Media.StaleAfterMS)
	assert.Equal(t, 10000, cfg.Media.SweepIntervalMS)
	assert.Equal(t, "chat_logs", cfg.Logs.Dir)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Provider.Model, cfg.Provider.Model)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"telegram": {"token": "file-token", "allow_from": ["@alice", 123456]},
		"agent": {"max_history": 6},
		"media": {"debounce_ms": 250}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, FlexibleStringSlice{"@alice", "123456"}, cfg.Telegram.AllowFrom)
	assert.Equal(t, 6, cfg.Agent.MaxHistory)
	assert.Equal(t, 250, cfg.Media.DebounceMS)
	// Untouched sections keep defaults.
	assert.Equal(t, "grok-2-vision-1212", cfg.Provider.Model)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"telegram": {"token": "file-token"}}`), 0o600))

	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("GROK_API_KEY", "env-key")
	t.Setenv("TINYRELAY_AGENT_MAX_HISTORY", "4")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "env-key", cfg.Provider.APIKey)
	assert.Equal(t, 4, cfg.Agent.MaxHistory)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Telegram.Token = "saved-token"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-token", loaded.Telegram.Token)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "empty token must fail")

	cfg.Telegram.Token = "tok"
	assert.Error(t, cfg.Validate(), "empty API key must fail")

	cfg.Provider.APIKey = "key"
	assert.NoError(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout())
	assert.Equal(t, time.Second, cfg.MediaDebounce())
	assert.Equal(t, 5*time.Second, cfg.MediaStaleAfter())
	assert.Equal(t, 10*time.Second, cfg.MediaSweepInterval())
}
