package config

import "time"

// DefaultConfig returns the development defaults used when no config file
// exists: mock adapters, local SQLite, three daily posting slots and a
// morning learning run.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			AccountID:       "default",
			TargetFollowers: 100,
			Env:             "development",
			NicheConfigPath: "account_niche.yaml",
		},
		Database: DBConfig{
			Path:        "autoviral.db",
			BusyTimeout: 5 * time.Second,
		},
		LLM: LLMConfig{
			Provider:   "anthropic",
			Model:      "claude-sonnet-4-20250514",
			MaxTokens:  4096,
			MaxRetries: 8,
		},
		Scheduler: SchedulerConfig{
			PostingTimes:       []string{"08:00", "12:00", "18:00"},
			LearningTime:       "06:00",
			Timezone:           "Europe/Warsaw",
			MaxBackgroundTasks: 3,
			MaxRegenerates:     3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
