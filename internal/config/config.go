package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/migration-warden/internal/logger"
)

var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrMissingAppID    = errors.New("github app id must be set")
	ErrMissingSecret   = errors.New("github webhook secret must be set")

	ErrMissingExtractCommand = errors.New("check.extract_command must be set for the webhook server")
)

// Config holds the application's configuration values.
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	GitHub   GitHubConfig  `mapstructure:"github"`
	AI       AIConfig      `mapstructure:"ai"`
	Check    CheckConfig   `mapstructure:"check"`
	Logging  logger.Config `mapstructure:"logging"`
	Database DBConfig      `mapstructure:"database"`
}

type ServerConfig struct {
	Port       string `mapstructure:"port"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

type GitHubConfig struct {
	Token          string `mapstructure:"token"`
	AppID          int64  `mapstructure:"app_id"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
}

// AIConfig selects the review provider. An empty API key disables the
// review for every provider except ollama, which runs locally.
type AIConfig struct {
	Provider        string `mapstructure:"provider"`
	Model           string `mapstructure:"model"`
	APIKey          string `mapstructure:"api_key"`
	OllamaHost      string `mapstructure:"ollama_host"`
	MaxOutputTokens int    `mapstructure:"max_output_tokens"`
}

// CheckConfig holds the defaults of a migration check; a repository's
// .migrations-check.yml may override them.
type CheckConfig struct {
	MigrationsPath string `mapstructure:"migrations_path"`
	Extension      string `mapstructure:"extension"`
	Context        string `mapstructure:"context"`
	ExtractCommand string `mapstructure:"extract_command"`
	Concurrency    int    `mapstructure:"concurrency"`
}

type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

var defaultModels = map[string]string{
	"openai":    "gpt-4.1",
	"anthropic": "claude-sonnet-4-5",
	"gemini":    "gemini-2.5-flash",
	"ollama":    "qwen2.5-coder:7b",
}

// ReviewEnabled reports whether a reviewer should be built at all.
func (c AIConfig) ReviewEnabled() bool {
	if c.Provider == "ollama" {
		return true
	}
	return c.APIKey != ""
}

// ModelName returns the configured model or the provider default.
func (c AIConfig) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}

// Validate checks the provider selection.
func (c AIConfig) Validate() error {
	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("max_output_tokens must not be negative, got %d", c.MaxOutputTokens)
	}
	if c.Provider == "ollama" && c.OllamaHost == "" {
		return fmt.Errorf("ollama_host must be set for the ollama provider")
	}
	return nil
}

// ValidateApp checks the settings only the webhook server needs.
func (c GitHubConfig) ValidateApp() error {
	if c.AppID == 0 {
		return ErrMissingAppID
	}
	if c.WebhookSecret == "" {
		return ErrMissingSecret
	}
	return nil
}

// ValidateServer checks everything the webhook server needs. A fresh clone
// has no vendor/ or .env, so artisan cannot run in it; the operator must
// supply a command that prepares and isolates the dry run.
func (c *Config) ValidateServer() error {
	if err := c.GitHub.ValidateApp(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Check.ExtractCommand) == "" {
		return ErrMissingExtractCommand
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_workers", 5)

	v.SetDefault("github.token", "")
	v.SetDefault("github.app_id", 0)
	v.SetDefault("github.webhook_secret", "")
	v.SetDefault("github.private_key_path", "keys/migration-warden.private-key.pem")

	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.ollama_host", "http://localhost:11434")
	v.SetDefault("ai.max_output_tokens", 2048)

	v.SetDefault("check.migrations_path", "database/migrations/")
	v.SetDefault("check.extension", ".php")
	v.SetDefault("check.context", "")
	v.SetDefault("check.extract_command", "")
	v.SetDefault("check.concurrency", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "warden")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "migration_warden")
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
}

// actionInputs maps config keys to the environment variables GitHub Actions
// sets for workflow inputs, so the binary can run as an action step.
var actionInputs = map[string][]string{
	"github.token":          {"INPUT_GITHUB_TOKEN", "GITHUB_TOKEN"},
	"ai.api_key":            {"INPUT_OPENAI_TOKEN", "INPUT_API_KEY"},
	"ai.provider":           {"INPUT_PROVIDER"},
	"ai.model":              {"INPUT_MODEL"},
	"check.context":         {"INPUT_CONTEXT"},
	"check.migrations_path": {"INPUT_MIGRATIONS_PATH"},
	"check.extract_command": {"INPUT_EXTRACT_COMMAND"},
}

// LoadConfig reads configuration from an optional config.yaml and the
// environment. MW_-prefixed variables win over GitHub Actions inputs.
func LoadConfig() (*Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	setDefaults(v)

	v.SetEnvPrefix("MW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, inputs := range actionInputs {
		envs := append([]string{"MW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, inputs...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.AI.Validate(); err != nil {
		return nil, err
	}
	if cfg.Check.Concurrency <= 0 {
		cfg.Check.Concurrency = 4
	}
	return &cfg, nil
}
