package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// Validate checks a loaded configuration for values the orchestrator
// cannot work with. Scheduling errors are rejected here, at the
// configuration boundary, before they can touch a live schedule.
func Validate(cfg *Config) error {
	if cfg.Core.AccountID == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "core.account_id must not be empty")
	}
	if cfg.Core.TargetFollowers <= 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "core.target_followers must be positive")
	}
	if cfg.Core.Env != "development" && cfg.Core.Env != "production" {
		return types.NewErrorf(types.CONFIG_VALIDATION_FAILED, "core.env must be development or production, got %q", cfg.Core.Env)
	}
	if cfg.Database.Path == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "database.path must not be empty")
	}
	for _, t := range cfg.Scheduler.PostingTimes {
		if _, _, err := ParsePostingTime(t); err != nil {
			return err
		}
	}
	if cfg.Scheduler.LearningTime != "" {
		if _, _, err := ParsePostingTime(cfg.Scheduler.LearningTime); err != nil {
			return err
		}
	}
	if cfg.Scheduler.MaxBackgroundTasks <= 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "scheduler.max_background_tasks must be positive")
	}
	if cfg.Scheduler.MaxRegenerates < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "scheduler.max_regenerates must not be negative")
	}
	return nil
}

// ParsePostingTime parses an "HH:MM" (or "HH") posting time into hour and
// minute, rejecting anything outside the clock.
func ParsePostingTime(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) == 0 || len(parts) > 2 {
		return 0, 0, types.NewErrorf(types.SCHEDULE_INVALID, "invalid posting time %q", s)
	}

	hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, types.WrapError(types.SCHEDULE_INVALID, fmt.Sprintf("invalid posting time %q", s), err)
	}
	if len(parts) == 2 {
		minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, types.WrapError(types.SCHEDULE_INVALID, fmt.Sprintf("invalid posting time %q", s), err)
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, types.NewErrorf(types.SCHEDULE_INVALID, "posting time %q out of range", s)
	}
	return hour, minute, nil
}
