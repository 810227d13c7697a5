package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"election-agent/internal/domain"
)

// Config is the process configuration. It is sourced from the environment
// (optionally seeded from a .env file and a config file) and never from
// request input.
type Config struct {
	OpenAIAPIKey     string        `mapstructure:"openai_api_key"`
	AnthropicAPIKey  string        `mapstructure:"anthropic_api_key"`
	OpenAIModel      string        `mapstructure:"openai_model"`
	AnthropicModel   string        `mapstructure:"anthropic_model"`
	OpenAIBaseURL    string        `mapstructure:"openai_base_url"`
	AnthropicBaseURL string        `mapstructure:"anthropic_base_url"`
	DefaultProvider  string        `mapstructure:"default_provider"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Temperature      float64       `mapstructure:"temperature"`
	ProviderTimeout  time.Duration `mapstructure:"provider_timeout"`

	HistoryWindow  int    `mapstructure:"history_window"`
	AssistantTitle string `mapstructure:"assistant_title"`
	EmbedID        string `mapstructure:"embed_id"`

	DataDir     string `mapstructure:"data_dir"`
	DataBucket  string `mapstructure:"data_bucket"`
	DataPrefix  string `mapstructure:"data_prefix"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	AWSRegion   string `mapstructure:"aws_region"`

	ParamPrefix string `mapstructure:"param_prefix"`

	HTTPAddr  string `mapstructure:"http_addr"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"openai_api_key":     "",
	"anthropic_api_key":  "",
	"openai_model":       "gpt-3.5-turbo",
	"anthropic_model":    "claude-3-sonnet-20240229",
	"openai_base_url":    "https://api.openai.com/v1",
	"anthropic_base_url": "https://api.anthropic.com/v1",
	"default_provider":   "openai",
	"max_tokens":         2000,
	"temperature":        0.7,
	"provider_timeout":   "30s",
	"history_window":     5,
	"assistant_title":    "ElectionSathi",
	"embed_id":           "",
	"data_dir":           "data",
	"data_bucket":        "",
	"data_prefix":        "",
	"s3_endpoint":        "",
	"s3_access_key":      "",
	"s3_secret_key":      "",
	"aws_region":         "",
	"param_prefix":       "",
	"http_addr":          ":8080",
	"log_level":          "info",
	"log_format":         "json",
}

// Options selects the optional files Load reads before the environment.
type Options struct {
	EnvFile    string
	ConfigFile string
}

// Load builds a Config. A missing .env file is not an error; a missing
// explicitly named config file is. Environment variables always win.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load env file: %w", err)
		}
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DefaultProvider)) {
	case "", "openai", "anthropic", "claude":
	default:
		return fmt.Errorf("config: default_provider must be openai or anthropic, got %q", c.DefaultProvider)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("config: temperature must be between 0 and 2, got %g", c.Temperature)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("config: provider_timeout must be positive, got %s", c.ProviderTimeout)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("config: history_window must be positive, got %d", c.HistoryWindow)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) Provider() domain.Provider {
	return domain.ParseProvider(c.DefaultProvider)
}

// APIKeys returns the keys found in the environment, keyed by provider.
func (c *Config) APIKeys() map[domain.Provider]string {
	return map[domain.Provider]string{
		domain.ProviderOpenAI:    c.OpenAIAPIKey,
		domain.ProviderAnthropic: c.AnthropicAPIKey,
	}
}

func (c *Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid log_level %q: %w", s, err)
	}
	return l, nil
}
