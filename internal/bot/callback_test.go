package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgarbacinski/AutoViralAI/internal/pipeline"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    callbackData
		wantErr bool
	}{
		{
			name: "approve",
			data: "approve:creation_1_20260901_080000",
			want: callbackData{Action: actionApprove, ThreadID: "creation_1_20260901_080000"},
		},
		{
			name: "reject",
			data: "reject:creation_1_20260901_080000",
			want: callbackData{Action: actionReject, ThreadID: "creation_1_20260901_080000"},
		},
		{
			name: "reject with feedback",
			data: "rejectfb:creation_1_20260901_080000",
			want: callbackData{Action: actionRejectFeedback, ThreadID: "creation_1_20260901_080000"},
		},
		{
			name: "alternative with index",
			data: "alt:creation_2_20260901_120000:2",
			want: callbackData{Action: actionAlt, ThreadID: "creation_2_20260901_120000", Extra: "2"},
		},
		{
			name: "publish later tonight",
			data: "later:creation_3_20260901_120000:tonight",
			want: callbackData{Action: actionLater, ThreadID: "creation_3_20260901_120000", Extra: "tonight"},
		},
		{name: "missing thread", data: "approve:", wantErr: true},
		{name: "unknown action", data: "banana:creation_1", wantErr: true},
		{name: "non-numeric alt index", data: "alt:creation_1:two", wantErr: true},
		{name: "unknown deferral", data: "later:creation_1:next_week", wantErr: true},
		{name: "empty", data: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCallback(tt.data)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, types.IsCode(err, types.CALLBACK_INVALID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallbackEncodeRoundTrip(t *testing.T) {
	cb := callbackData{Action: actionAlt, ThreadID: "creation_5_20260901_090000", Extra: "1"}
	parsed, err := parseCallback(cb.encode())
	require.NoError(t, err)
	assert.Equal(t, cb, parsed)
}

func TestDecisionForActions(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	d, await := decisionFor(callbackData{Action: actionApprove, ThreadID: "t"}, now)
	assert.False(t, await)
	assert.Equal(t, pipeline.DecisionApprove, d.Decision)

	d, await = decisionFor(callbackData{Action: actionReject, ThreadID: "t"}, now)
	assert.False(t, await)
	assert.Equal(t, pipeline.DecisionReject, d.Decision)

	d, await = decisionFor(callbackData{Action: actionRejectFeedback, ThreadID: "t"}, now)
	assert.True(t, await, "rejection feedback waits for the next message")
	assert.Equal(t, pipeline.DecisionReject, d.Decision)

	d, await = decisionFor(callbackData{Action: actionEdit, ThreadID: "t"}, now)
	assert.True(t, await, "edit waits for the replacement text")
	assert.Equal(t, pipeline.DecisionEdit, d.Decision)

	d, await = decisionFor(callbackData{Action: actionAlt, ThreadID: "t", Extra: "2"}, now)
	assert.False(t, await)
	require.NotNil(t, d.UseAlternative)
	assert.Equal(t, 2, *d.UseAlternative)
	assert.Equal(t, pipeline.DecisionApprove, d.Decision)
}

func TestAwaitedDecision(t *testing.T) {
	d := awaitedDecision(actionRejectFeedback, "less clickbait, more substance")
	assert.Equal(t, pipeline.DecisionReject, d.Decision)
	assert.Equal(t, "less clickbait, more substance", d.Feedback)
	assert.Empty(t, d.EditedContent)

	d = awaitedDecision(actionEdit, "final text")
	assert.Equal(t, pipeline.DecisionEdit, d.Decision)
	assert.Equal(t, "final text", d.EditedContent)
	assert.Empty(t, d.Feedback)
}

func TestDeferralTimes(t *testing.T) {
	morning := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	d, _ := decisionFor(callbackData{Action: actionLater, ThreadID: "t", Extra: laterPlus2h}, morning)
	require.NotNil(t, d.PublishAt)
	assert.Equal(t, morning.Add(2*time.Hour), *d.PublishAt)
	assert.Equal(t, pipeline.DecisionApprove, d.Decision)

	d, _ = decisionFor(callbackData{Action: actionLater, ThreadID: "t", Extra: laterTonight}, morning)
	require.NotNil(t, d.PublishAt)
	assert.Equal(t, time.Date(2026, 9, 1, tonightHour, 0, 0, 0, time.UTC), *d.PublishAt)

	// Past tonight's slot, "tonight" means tomorrow evening.
	lateNight := time.Date(2026, 9, 1, 22, 30, 0, 0, time.UTC)
	d, _ = decisionFor(callbackData{Action: actionLater, ThreadID: "t", Extra: laterTonight}, lateNight)
	require.NotNil(t, d.PublishAt)
	assert.Equal(t, time.Date(2026, 9, 2, tonightHour, 0, 0, 0, time.UTC), *d.PublishAt)
}
