// Package config provides configuration loading for buildd.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables with the BUILDD_ prefix (BUILDD_SERVER_PORT, ...)
//  2. YAML config file (~/.config/buildd/config.yaml by default)
//  3. Hardcoded defaults
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete buildd configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Search   SearchConfig   `koanf:"search"`
	LLM      LLMConfig      `koanf:"llm"`
	GitHub   GitHubConfig   `koanf:"github"`
	Telegram TelegramConfig `koanf:"telegram"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// PipelineConfig holds build pipeline configuration.
type PipelineConfig struct {
	// PhaseTimeout bounds each provider call. Zero disables the bound,
	// matching the original unbounded behavior.
	PhaseTimeout Duration `koanf:"phase_timeout"`

	// RepoSettleDelay is how long to wait between repository creation and
	// the first push, so the remote can finish initializing.
	RepoSettleDelay Duration `koanf:"repo_settle_delay"`

	// PrivateRepos controls visibility of published repositories.
	PrivateRepos bool `koanf:"private_repos"`
}

// SearchConfig holds the research search provider configuration.
// An unset API key puts the research phase into degraded mode.
type SearchConfig struct {
	APIKey  Secret `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// LLMConfig holds the text-generation provider configuration. The endpoint
// is OpenAI-compatible; DeepSeek is the default. An unset API key makes
// generation phases succeed with a placeholder.
type LLMConfig struct {
	APIKey        Secret  `koanf:"api_key"`
	BaseURL       string  `koanf:"base_url"`
	ChatModel     string  `koanf:"chat_model"`
	ReasonerModel string  `koanf:"reasoner_model"`
	MaxTokens     int     `koanf:"max_tokens"`
	Temperature   float64 `koanf:"temperature"`
}

// GitHubConfig holds the repository publishing credentials.
type GitHubConfig struct {
	Token Secret `koanf:"token"`
	Owner string `koanf:"owner"`
}

// TelegramConfig holds the notification sink configuration.
type TelegramConfig struct {
	BotToken Secret `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8844,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Pipeline: PipelineConfig{
			PhaseTimeout:    Duration(10 * time.Minute),
			RepoSettleDelay: Duration(2 * time.Second),
			PrivateRepos:    true,
		},
		Search: SearchConfig{
			BaseURL: "https://google.serper.dev",
		},
		LLM: LLMConfig{
			BaseURL:       "https://api.deepseek.com/v1",
			ChatModel:     "deepseek-chat",
			ReasonerModel: "deepseek-reasoner",
			MaxTokens:     8192,
			Temperature:   0.7,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q (must be json or console)", c.Logging.Format)
	}

	if c.LLM.BaseURL == "" {
		return errors.New("llm base URL is required")
	}
	if c.LLM.ChatModel == "" || c.LLM.ReasonerModel == "" {
		return errors.New("llm model names are required")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm max tokens must be positive: %d", c.LLM.MaxTokens)
	}

	if c.Search.BaseURL == "" {
		return errors.New("search base URL is required")
	}

	if c.GitHub.Token.IsSet() && c.GitHub.Owner == "" {
		return errors.New("github owner is required when a token is configured")
	}

	return nil
}
