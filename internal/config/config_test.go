package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"election-agent/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for k := range defaults {
		t.Setenv(envName(k), "")
		require.NoError(t, os.Unsetenv(envName(k)))
	}
}

func envName(key string) string {
	return strings.ToUpper(key)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	require.NoError(t, err)
	require.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	require.Equal(t, "claude-3-sonnet-20240229", cfg.AnthropicModel)
	require.Equal(t, domain.ProviderOpenAI, cfg.Provider())
	require.Equal(t, 2000, cfg.MaxTokens)
	require.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	require.Equal(t, 30*time.Second, cfg.ProviderTimeout)
	require.Equal(t, 5, cfg.HistoryWindow)
	require.Equal(t, "ElectionSathi", cfg.AssistantTitle)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	require.Empty(t, cfg.APIKeys()[domain.ProviderOpenAI])
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("DEFAULT_PROVIDER", "claude")
	t.Setenv("MAX_TOKENS", "500")
	t.Setenv("TEMPERATURE", "0.2")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	require.Equal(t, "sk-env", cfg.APIKeys()[domain.ProviderOpenAI])
	require.Equal(t, domain.ProviderAnthropic, cfg.Provider())
	require.Equal(t, 500, cfg.MaxTokens)
	require.InDelta(t, 0.2, cfg.Temperature, 1e-9)
	require.Equal(t, 5*time.Second, cfg.ProviderTimeout)
	require.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ANTHROPIC_API_KEY=ak-file\nASSISTANT_TITLE=VoteBot\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("ANTHROPIC_API_KEY")
		_ = os.Unsetenv("ASSISTANT_TITLE")
	})

	cfg, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	require.Equal(t, "ak-file", cfg.AnthropicAPIKey)
	require.Equal(t, "VoteBot", cfg.AssistantTitle)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	clearEnv(t)
	_, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "absent.env")})
	require.NoError(t, err)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history_window: 3\nopenai_model: gpt-4o-mini\n"), 0o600))
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)
	require.Equal(t, 3, cfg.HistoryWindow)
	require.Equal(t, "gpt-4o", cfg.OpenAIModel)

	_, err = Load(Options{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DefaultProvider: "openai",
			MaxTokens:       100,
			Temperature:     0.7,
			ProviderTimeout: time.Second,
			HistoryWindow:   5,
			LogLevel:        "info",
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"provider":    func(c *Config) { c.DefaultProvider = "gemini" },
		"max_tokens":  func(c *Config) { c.MaxTokens = 0 },
		"temperature": func(c *Config) { c.Temperature = 3 },
		"timeout":     func(c *Config) { c.ProviderTimeout = 0 },
		"window":      func(c *Config) { c.HistoryWindow = -1 },
		"log_level":   func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			require.Error(t, c.Validate())
		})
	}
}
