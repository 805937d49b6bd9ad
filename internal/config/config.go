// Package config loads and validates the application configuration from a
// YAML file with ${ENV_VAR} interpolation, falling back to defaults when no
// file is present.
package config

import "time"

// Config is the root configuration for the AutoViralAI agent.
type Config struct {
	Core      CoreConfig      `mapstructure:"core" yaml:"core"`
	Database  DBConfig        `mapstructure:"database" yaml:"database"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Platform  PlatformConfig  `mapstructure:"platform" yaml:"platform"`
	Telegram  TelegramConfig  `mapstructure:"telegram" yaml:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	// AccountID namespaces all knowledge-base records.
	AccountID string `mapstructure:"account_id" yaml:"account_id"`

	// TargetFollowers is the follower goal that ends creation cycles.
	TargetFollowers int `mapstructure:"target_followers" yaml:"target_followers"`

	// Env selects mock vs real adapters: "development" or "production".
	Env string `mapstructure:"env" yaml:"env"`

	// NicheConfigPath points at the YAML seed for account initialization.
	NicheConfigPath string `mapstructure:"niche_config_path" yaml:"niche_config_path"`
}

// IsProduction reports whether real external adapters should be used.
func (c CoreConfig) IsProduction() bool {
	return c.Env == "production"
}

// DBConfig contains SQLite database configuration.
type DBConfig struct {
	Path        string        `mapstructure:"path" yaml:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout"`
}

// LLMConfig contains LLM provider configuration.
type LLMConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	MaxTokens  int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// PlatformConfig contains credentials for the social platform and the
// content-discovery services.
type PlatformConfig struct {
	AccessToken string `mapstructure:"access_token" yaml:"access_token"`
	UserID      string `mapstructure:"user_id" yaml:"user_id"`

	ScraperToken string `mapstructure:"scraper_token" yaml:"scraper_token"`
}

// TelegramConfig contains the approval bot settings.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" yaml:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id" yaml:"chat_id"`
}

// SchedulerConfig contains pipeline scheduling settings.
type SchedulerConfig struct {
	// PostingTimes are daily creation triggers as "HH:MM" strings.
	PostingTimes []string `mapstructure:"posting_times" yaml:"posting_times"`

	// LearningTime is the daily learning trigger as "HH:MM".
	LearningTime string `mapstructure:"learning_time" yaml:"learning_time"`

	// Timezone for all cron triggers.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`

	// MaxBackgroundTasks bounds concurrently force-started pipeline runs.
	MaxBackgroundTasks int `mapstructure:"max_background_tasks" yaml:"max_background_tasks"`

	// MaxRegenerates bounds the reject-with-feedback regeneration loop
	// per creation thread.
	MaxRegenerates int `mapstructure:"max_regenerates" yaml:"max_regenerates"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}
