package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultSystemPrompt is the persona used for chats that never changed role.
const DefaultSystemPrompt = "You are an English language expert, and I am learning it. " +
	"I will send you my messages, if they are in English it means I translated them into English. " +
	"And you comment on what is better to correct, if they are in Russian then translate into English " +
	"and comment! the message needs to be used on Twitter, you can add emojis"

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Provider ProviderConfig `json:"provider"`
	Agent    AgentConfig    `json:"agent"`
	Media    MediaConfig    `json:"media"`
	Logs     LogsConfig     `json:"logs"`
}

type TelegramConfig struct {
	// Token keeps the legacy env name so existing deployments keep working.
	Token              string              `env:"TELEGRAM_BOT_TOKEN"                      json:"token"`
	AllowFrom          FlexibleStringSlice `env:"TINYRELAY_TELEGRAM_ALLOW_FROM"           json:"allow_from"`
	PollTimeoutSeconds int                 `env:"TINYRELAY_TELEGRAM_POLL_TIMEOUT_SECONDS" json:"poll_timeout_seconds"`
}

type ProviderConfig struct {
	APIKey         string `env:"GROK_API_KEY"                       json:"api_key"`
	APIBase        string `env:"GROK_API_ENDPOINT"                  json:"api_base"`
	Model          string `env:"TINYRELAY_PROVIDER_MODEL"           json:"model"`
	TimeoutSeconds int    `env:"TINYRELAY_PROVIDER_TIMEOUT_SECONDS" json:"timeout_seconds"`
}

type AgentConfig struct {
	SystemPrompt string `env:"TINYRELAY_AGENT_SYSTEM_PROMPT" json:"system_prompt"`
	MaxHistory   int    `env:"TINYRELAY_AGENT_MAX_HISTORY"   json:"max_history"`
}

type MediaConfig struct {
	DebounceMS      int `env:"TINYRELAY_MEDIA_DEBOUNCE_MS"       json:"debounce_ms"`
	StaleAfterMS    int `env:"TINYRELAY_MEDIA_STALE_AFTER_MS"    json:"stale_after_ms"`
	SweepIntervalMS int `env:"TINYRELAY_MEDIA_SWEEP_INTERVAL_MS" json:"sweep_interval_ms"`
}

type LogsConfig struct {
	Dir string `env:"TINYRELAY_LOGS_DIR" json:"dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeoutSeconds: 10,
		},
		Provider: ProviderConfig{
			APIBase:        "https://api.x.ai/v1/chat/completions",
			Model:          "grok-2-vision-1212",
			TimeoutSeconds: 120,
		},
		Agent: AgentConfig{
			SystemPrompt: DefaultSystemPrompt,
			MaxHistory:   10,
		},
		Media: MediaConfig{
			DebounceMS:      1000,
			StaleAfterMS:    5000,
			SweepIntervalMS: 10000,
		},
		Logs: LogsConfig{
			Dir: "chat_logs",
		},
	}
}

// LoadConfig reads the JSON config at path (a missing file is fine), then
// overlays environment variables. A .env file in the working directory is
// loaded first so it behaves like plain environment.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the startup credentials. These are the only fatal
// conditions in the process: everything downstream degrades to chat replies.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("bot token not found: set TELEGRAM_BOT_TOKEN in the environment or .env")
	}
	if c.Provider.APIKey == "" {
		return errors.New("completion API key not found: set GROK_API_KEY in the environment or .env")
	}
	return nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

func (c *Config) MediaDebounce() time.Duration {
	return time.Duration(c.Media.DebounceMS) * time.Millisecond
}

func (c *Config) MediaStaleAfter() time.Duration {
	return time.Duration(c.Media.StaleAfterMS) * time.Millisecond
}

func (c *Config) MediaSweepInterval() time.Duration {
	return time.Duration(c.Media.SweepIntervalMS) * time.Millisecond
}
