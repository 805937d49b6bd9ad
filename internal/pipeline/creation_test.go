package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/graph"
	"github.com/kgarbacinski/AutoViralAI/internal/llm"
	"github.com/kgarbacinski/AutoViralAI/internal/platform"
)

const patternsReply = `{"patterns": [
	{"name": "contrarian_hot_take", "description": "challenges common wisdom",
	 "structure": "Bold claim -> Evidence -> Question", "hook_type": "bold_claim",
	 "source_posts_count": 2},
	{"name": "numbered_list", "description": "scannable value",
	 "structure": "Promise -> List -> CTA", "hook_type": "list",
	 "source_posts_count": 1}
]}`

const variantsReply = `{"variants": [
	{"content": "Hot take: code reviews are theater.", "pattern_used": "contrarian_hot_take", "pillar": "engineering", "hook_type": "bold_claim"},
	{"content": "5 tools that replaced my IDE.", "pattern_used": "numbered_list", "pillar": "tools", "hook_type": "list"},
	{"content": "Nobody talks about debugging.", "pattern_used": "contrarian_hot_take", "pillar": "engineering", "hook_type": "bold_claim"}
]}`

const scoresReply = `{"scores": [
	{"index": 0, "ai_score": 8.0, "reasoning": "strong hook"},
	{"index": 1, "ai_score": 6.0, "reasoning": "decent"}
]}`

func researchFixtures() ([]content.ViralPost, []content.ViralPost) {
	news := []content.ViralPost{
		{Platform: "hackernews", Content: "Why Rust is taking over", Likes: 300},
	}
	scraped := []content.ViralPost{
		{Platform: "threads", Content: "Stop using AI excuses", Likes: 12000},
	}
	return news, scraped
}

func testDeps(kb *fakeKB, social *fakeSocial, client llm.Client) Deps {
	news, scraped := researchFixtures()
	return Deps{
		LLM:            client,
		KB:             kb,
		Social:         social,
		News:           &fakeNews{posts: news},
		Scraper:        &fakeScraper{posts: scraped},
		Embedder:       platform.NewHashEmbedder(),
		MaxRegenerates: 3,
	}
}

func runCreation(t *testing.T, deps Deps, threadID string) (*graph.Runner[CreationState, HumanDecision], graph.Execution[CreationState]) {
	t.Helper()
	g, err := NewCreationGraph(deps)
	require.NoError(t, err)
	runner := graph.NewRunner(g, graph.NewMemoryCheckpointStore())
	exec, err := runner.Run(context.Background(), threadID, CreationState{
		TargetFollowerCount: 100,
		CycleNumber:         1,
	})
	require.NoError(t, err)
	return runner, exec
}

func TestCreationFirstCycleRanksAndSuspends(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 42}
	deps := testDeps(kb, social, llm.NewMockClient(patternsReply, variantsReply, scoresReply))

	_, exec := runCreation(t, deps, "creation_1_20260901_080000")
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status)

	state := exec.State
	assert.Equal(t, 42, state.CurrentFollowerCount)
	assert.False(t, state.GoalReached)
	assert.Len(t, state.ViralPosts, 2)
	assert.Len(t, state.ExtractedPatterns, 2)
	require.Len(t, state.RankedPosts, 3)

	// Empty history: pattern effectiveness is the 5.0 exploration bonus and
	// novelty is maximal, so the top composite is 0.4*8 + 0.3*5 + 0.3*10.
	top := state.RankedPosts[0]
	assert.Equal(t, "Hot take: code reviews are theater.", top.Content)
	assert.InDelta(t, 8.0, top.AIScore, 1e-9)
	assert.InDelta(t, 5.0, top.PatternHistoryScore, 1e-9)
	assert.InDelta(t, 10.0, top.NoveltyScore, 1e-9)
	assert.InDelta(t, 7.7, top.CompositeScore, 1e-9)
	assert.Equal(t, 1, top.Rank)

	// The unscored variant falls back to the default AI score.
	assert.InDelta(t, defaultAIScore, state.RankedPosts[2].AIScore, 1e-9)
	assert.Equal(t, []int{1, 2, 3}, []int{state.RankedPosts[0].Rank, state.RankedPosts[1].Rank, state.RankedPosts[2].Rank})

	require.NotNil(t, state.SelectedPost)
	assert.Equal(t, top.Content, state.SelectedPost.Content)

	payload, ok := exec.Payload.(ApprovalPayload)
	require.True(t, ok)
	assert.Equal(t, top.Content, payload.SelectedPost.Content)
	assert.Len(t, payload.Alternatives, 2)
	assert.Equal(t, 1, payload.CycleNumber)
	assert.Equal(t, 42, payload.FollowerCount)
}

func TestCreationGoalReachedShortCircuits(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 150}
	client := llm.NewMockClient()
	deps := testDeps(kb, social, client)

	_, exec := runCreation(t, deps, "creation_2_20260901_090000")
	require.Equal(t, graph.StatusDone, exec.Status)
	assert.True(t, exec.State.GoalReached)
	assert.Empty(t, exec.State.ViralPosts, "research must not run once the goal is reached")
	assert.Empty(t, client.Calls(), "no LLM calls once the goal is reached")
}

func TestCreationApprovePublishesUnmodified(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 42}
	deps := testDeps(kb, social, llm.NewMockClient(patternsReply, variantsReply, scoresReply))

	runner, exec := runCreation(t, deps, "creation_3_20260901_100000")
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status)
	selectedContent := exec.State.SelectedPost.Content

	before := time.Now().UTC()
	exec, err := runner.Resume(context.Background(), "creation_3_20260901_100000", HumanDecision{Decision: DecisionApprove})
	require.NoError(t, err)
	require.Equal(t, graph.StatusDone, exec.Status)

	published := exec.State.PublishedPost
	require.NotNil(t, published)
	assert.Equal(t, selectedContent, published.Content, "approve must publish the post unmodified")
	assert.Equal(t, "post_1", published.PostID)
	assert.WithinDuration(t, published.PublishedAt.Add(content.MetricsCheckDelay), published.ScheduledMetricsCheck, time.Second)
	assert.False(t, published.PublishedAt.Before(before.Truncate(time.Second)))

	// Saved and queued for metrics.
	require.Len(t, kb.published, 1)
	_, pending := kb.pending[published.PostID]
	assert.True(t, pending)
}

func TestCreationEditOverridesContent(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 42}
	deps := testDeps(kb, social, llm.NewMockClient(patternsReply, variantsReply, scoresReply))

	runner, exec := runCreation(t, deps, "creation_4_20260901_110000")
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status)

	exec, err := runner.Resume(context.Background(), "creation_4_20260901_110000", HumanDecision{
		Decision:      DecisionEdit,
		EditedContent: "My own better wording.",
	})
	require.NoError(t, err)
	require.Equal(t, graph.StatusDone, exec.Status)
	require.NotNil(t, exec.State.PublishedPost)
	assert.Equal(t, "My own better wording.", exec.State.PublishedPost.Content)
}

func TestCreationRejectWithoutFeedbackEnds(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 42}
	deps := testDeps(kb, social, llm.NewMockClient(patternsReply, variantsReply, scoresReply))

	runner, exec := runCreation(t, deps, "creation_5_20260901_120000")
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status)

	exec, err := runner.Resume(context.Background(), "creation_5_20260901_120000", HumanDecision{Decision: DecisionReject})
	require.NoError(t, err)
	assert.Equal(t, graph.StatusDone, exec.Status)
	assert.Nil(t, exec.State.SelectedPost, "rejection clears the selection")
	assert.Nil(t, exec.State.PublishedPost)
	assert.Empty(t, social.publishedIDs)
}

func TestCreationRejectWithFeedbackRegenerates(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 42}
	// Two rounds of generate+rank replies after the initial three.
	deps := testDeps(kb, social, llm.NewMockClient(
		patternsReply, variantsReply, scoresReply,
		variantsReply, scoresReply,
	))

	runner, exec := runCreation(t, deps, "creation_6_20260901_130000")
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status)

	exec, err := runner.Resume(context.Background(), "creation_6_20260901_130000", HumanDecision{
		Decision: DecisionReject,
		Feedback: "too generic, be more specific",
	})
	require.NoError(t, err)
	assert.Equal(t, graph.StatusAwaitingApproval, exec.Status, "feedback rejection regenerates and suspends again")
	assert.Equal(t, 1, exec.State.RegenerateCount)
	require.NotNil(t, exec.State.SelectedPost)

	// The regeneration prompt carries the feedback.
	calls := deps.LLM.(*llm.MockClient).Calls()
	require.Len(t, calls, 5)
	assert.Contains(t, calls[3].Prompt, "too generic, be more specific")
}

func TestCreationRegenerateBudgetExhausts(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 42}
	deps := testDeps(kb, social, llm.NewMockClient(
		patternsReply, variantsReply, scoresReply,
		variantsReply, scoresReply,
	))
	deps.MaxRegenerates = 1

	runner, exec := runCreation(t, deps, "creation_7_20260901_140000")
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status)

	exec, err := runner.Resume(context.Background(), "creation_7_20260901_140000", HumanDecision{
		Decision: DecisionReject, Feedback: "try again",
	})
	require.NoError(t, err)
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status)

	// The budget is spent; a second feedback rejection ends the cycle.
	exec, err = runner.Resume(context.Background(), "creation_7_20260901_140000", HumanDecision{
		Decision: DecisionReject, Feedback: "still bad",
	})
	require.NoError(t, err)
	assert.Equal(t, graph.StatusDone, exec.Status)
	assert.Nil(t, exec.State.PublishedPost)
}

func TestCreationUnrecognizedDecisionRejects(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 42}
	deps := testDeps(kb, social, llm.NewMockClient(patternsReply, variantsReply, scoresReply))

	runner, exec := runCreation(t, deps, "creation_8_20260901_150000")
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status)

	exec, err := runner.Resume(context.Background(), "creation_8_20260901_150000", HumanDecision{Decision: "banana"})
	require.NoError(t, err)
	assert.Equal(t, graph.StatusDone, exec.Status)
	assert.Equal(t, DecisionReject, exec.State.HumanDecision)
	assert.Nil(t, exec.State.SelectedPost)
	assert.Nil(t, exec.State.PublishedPost)
}

func TestCreationUseAlternative(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 42}
	deps := testDeps(kb, social, llm.NewMockClient(patternsReply, variantsReply, scoresReply))

	runner, exec := runCreation(t, deps, "creation_9_20260901_160000")
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status)
	second := exec.State.RankedPosts[1].Content

	alt := 1
	exec, err := runner.Resume(context.Background(), "creation_9_20260901_160000", HumanDecision{
		Decision:       DecisionApprove,
		UseAlternative: &alt,
	})
	require.NoError(t, err)
	require.Equal(t, graph.StatusDone, exec.Status)
	require.NotNil(t, exec.State.PublishedPost)
	assert.Equal(t, second, exec.State.PublishedPost.Content)
}

func TestResearchDegradesPerSource(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 42}
	_, scraped := researchFixtures()
	deps := testDeps(kb, social, llm.NewMockClient(patternsReply, variantsReply, scoresReply))
	deps.News = &fakeNews{err: errors.New("rate limited")}
	deps.Scraper = &fakeScraper{posts: scraped}

	_, exec := runCreation(t, deps, "creation_10_20260901_170000")
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status)
	assert.Len(t, exec.State.ViralPosts, 1, "scraper results survive a news failure")
	require.NotEmpty(t, exec.State.Errors)
	assert.Contains(t, exec.State.Errors[0], "news research failed")
}

func TestResearchDeduplicatesByContentPrefix(t *testing.T) {
	posts := []content.ViralPost{
		{Platform: "hackernews", Content: "Same story"},
		{Platform: "threads", Content: "Same story"},
		{Platform: "threads", Content: "Different story"},
	}
	unique := dedupeByContent(posts)
	require.Len(t, unique, 2)
	assert.Equal(t, "hackernews", unique[0].Platform, "first occurrence wins")
}

func TestNoVariantsResolvesApprovalWithoutSuspending(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followers: 42}
	// Pattern extraction succeeds but generation yields nothing.
	deps := testDeps(kb, social, llm.NewMockClient(patternsReply, `{"variants": []}`))

	_, exec := runCreation(t, deps, "creation_11_20260901_180000")
	assert.Equal(t, graph.StatusDone, exec.Status, "nothing to approve: no suspension")
	assert.Equal(t, DecisionReject, exec.State.HumanDecision)
	assert.NotEmpty(t, exec.State.Errors)
}

func TestGoalCheckFollowerFailureDegrades(t *testing.T) {
	kb := newFakeKB()
	social := &fakeSocial{followersErr: errors.New("api down")}
	deps := testDeps(kb, social, llm.NewMockClient(patternsReply, variantsReply, scoresReply))

	_, exec := runCreation(t, deps, "creation_12_20260901_190000")
	require.Equal(t, graph.StatusAwaitingApproval, exec.Status, "the cycle proceeds without a count")
	assert.False(t, exec.State.GoalReached)
	assert.Contains(t, exec.State.Errors[0], "failed to get follower count")
}
