package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{
			name:     "json code block",
			response: "Here you go:\n```json\n{\"a\": 1}\n```\nDone.",
			want:     `{"a": 1}`,
		},
		{
			name:     "untagged code block",
			response: "```\n[1, 2, 3]\n```",
			want:     `[1, 2, 3]`,
		},
		{
			name:     "raw object with surrounding prose",
			response: `The answer is {"score": 8.5} as requested.`,
			want:     `{"score": 8.5}`,
		},
		{
			name:     "nested braces inside strings",
			response: `{"text": "a {weird} value", "n": 2}`,
			want:     `{"text": "a {weird} value", "n": 2}`,
		},
		{
			name:     "no json at all",
			response: "I cannot answer that.",
			wantErr:  true,
		},
		{
			name:     "non-json code block skipped",
			response: "```python\nprint('hi')\n```\n{\"ok\": true}",
			want:     `{"ok": true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONAs(t *testing.T) {
	type scored struct {
		Score float64 `json:"score"`
	}
	got, err := ExtractJSONAs[scored]("```json\n{\"score\": 7.7}\n```")
	require.NoError(t, err)
	assert.InDelta(t, 7.7, got.Score, 1e-9)
}

func TestCompleteJSON(t *testing.T) {
	type variant struct {
		Content string `json:"content"`
	}

	mock := NewMockClient("```json\n[{\"content\": \"post one\"}]\n```")
	got, err := CompleteJSON[[]variant](context.Background(), mock, "system", "prompt")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "post one", got[0].Content)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "system", calls[0].System)
}

func TestCompleteJSONDecodeFailure(t *testing.T) {
	mock := NewMockClient("not json at all")
	_, err := CompleteJSON[map[string]any](context.Background(), mock, "s", "p")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.LLM_DECODE_FAILED))
}

func TestCompleteJSONPropagatesClientError(t *testing.T) {
	boom := errors.New("boom")
	mock := NewMockClient().FailWith(boom)
	_, err := CompleteJSON[map[string]any](context.Background(), mock, "s", "p")
	assert.ErrorIs(t, err, boom)
}
