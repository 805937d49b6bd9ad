package knowledge

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/database"
)

func newTestBase(t *testing.T) *Base {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBase(db, "test-account")
}

func TestNicheConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	kb := newTestBase(t)

	got, err := kb.GetNicheConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "missing niche config should be nil, not an error")

	niche := content.DefaultAccountNiche()
	require.NoError(t, kb.SaveNicheConfig(ctx, niche))

	got, err = kb.GetNicheConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tech", got.Niche)
	assert.Equal(t, niche.Voice.Persona, got.Voice.Persona)
}

func TestStrategyDefaultsToIterationZero(t *testing.T) {
	ctx := context.Background()
	kb := newTestBase(t)

	strategy, err := kb.GetStrategy(ctx)
	require.NoError(t, err)
	assert.Zero(t, strategy.Iteration)
	assert.Nil(t, strategy.LastUpdated)

	strategy.Iteration = 3
	strategy.KeyLearnings = []string{"short hooks win"}
	require.NoError(t, kb.SaveStrategy(ctx, strategy))

	got, err := kb.GetStrategy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Iteration)
	assert.Equal(t, []string{"short hooks win"}, got.KeyLearnings)
	require.NotNil(t, got.LastUpdated, "SaveStrategy must stamp LastUpdated")
}

func TestPatternPerformanceUpsert(t *testing.T) {
	ctx := context.Background()
	kb := newTestBase(t)

	perf, err := kb.GetPatternPerformance(ctx, "contrarian_hot_take")
	require.NoError(t, err)
	assert.Equal(t, "contrarian_hot_take", perf.PatternName)
	assert.Zero(t, perf.TimesUsed)
	assert.InDelta(t, 5.0, perf.EffectivenessScore(), 1e-9)

	perf.TimesUsed = 2
	perf.AvgEngagementRate = 0.05
	require.NoError(t, kb.SavePatternPerformance(ctx, perf))

	perf.TimesUsed = 3
	require.NoError(t, kb.SavePatternPerformance(ctx, perf))

	all, err := kb.GetAllPatternPerformances(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "same pattern name must upsert, not duplicate")
	assert.Equal(t, 3, all[0].TimesUsed)
}

func TestPublishedPostsAndPendingMetrics(t *testing.T) {
	ctx := context.Background()
	kb := newTestBase(t)

	now := time.Now().UTC().Truncate(time.Second)
	post := content.PublishedPost{
		PostID:                "post1",
		Content:               "a published post",
		PatternUsed:           "listicle",
		PublishedAt:           now,
		ScheduledMetricsCheck: now.Add(content.MetricsCheckDelay),
	}
	require.NoError(t, kb.SavePublishedPost(ctx, post))
	require.NoError(t, kb.AddPendingMetrics(ctx, post))

	recent, err := kb.GetRecentPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "post1", recent[0].PostID)
	assert.True(t, recent[0].ScheduledMetricsCheck.Equal(now.Add(content.MetricsCheckDelay)))

	pending, err := kb.GetPendingMetricsPosts(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, kb.RemovePendingMetrics(ctx, "post1"))
	pending, err = kb.GetPendingMetricsPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	contents, err := kb.GetRecentPostContents(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a published post"}, contents)
}

func TestMetricsHistoryKeyedByPostAndTime(t *testing.T) {
	ctx := context.Background()
	kb := newTestBase(t)

	first := content.PostMetrics{PostID: "post1", Views: 100, Likes: 10, CollectedAt: time.Now().UTC()}
	second := content.PostMetrics{PostID: "post1", Views: 250, Likes: 30, CollectedAt: time.Now().UTC().Add(time.Hour)}
	require.NoError(t, kb.SavePostMetrics(ctx, first))
	require.NoError(t, kb.SavePostMetrics(ctx, second))

	history, err := kb.GetMetricsHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2, "metrics for the same post at different times are distinct records")
}

func TestAccountIsolation(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	kbA := NewBase(db, "account-a")
	kbB := NewBase(db, "account-b")

	require.NoError(t, kbA.SavePublishedPost(ctx, content.PublishedPost{PostID: "p1", Content: "a's post"}))

	postsB, err := kbB.GetRecentPosts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, postsB)
}
