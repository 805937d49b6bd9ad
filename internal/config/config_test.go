package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := NewLoader().LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Core.AccountID)
	assert.Equal(t, "development", cfg.Core.Env)
	assert.Len(t, cfg.Scheduler.PostingTimes, 3)
	assert.False(t, cfg.Core.IsProduction())
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("AVAI_TEST_TOKEN", "secret-token")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
core:
  account_id: growth-account
  target_followers: 500
  env: production
telegram:
  bot_token: ${AVAI_TEST_TOKEN}
  chat_id: 42
scheduler:
  posting_times: ["09:00", "21:30"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, "growth-account", cfg.Core.AccountID)
	assert.Equal(t, 500, cfg.Core.TargetFollowers)
	assert.True(t, cfg.Core.IsProduction())
	assert.Equal(t, "secret-token", cfg.Telegram.BotToken)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	assert.Equal(t, []string{"09:00", "21:30"}, cfg.Scheduler.PostingTimes)

	// Defaults survive for sections the file leaves out.
	assert.Equal(t, "06:00", cfg.Scheduler.LearningTime)
}

func TestValidateRejectsBadPostingTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduler.PostingTimes = []string{"25:00"}

	err := Validate(cfg)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.SCHEDULE_INVALID))
}

func TestParsePostingTime(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{"08:00", 8, 0, false},
		{"18:45", 18, 45, false},
		{"6", 6, 0, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"noon", 0, 0, true},
		{"1:2:3", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParsePostingTime(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}
