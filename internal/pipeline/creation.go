package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/graph"
	"github.com/kgarbacinski/AutoViralAI/internal/llm"
	"github.com/kgarbacinski/AutoViralAI/internal/platform"
)

// CreationGraphName is the checkpoint graph kind for creation threads.
const CreationGraphName = "creation"

// Node names of the creation graph.
const (
	nodeGoalCheck       = "goal_check"
	nodeResearch        = "research_viral_content"
	nodeExtractPatterns = "extract_patterns"
	nodeGenerate        = "generate_post_variants"
	nodeRank            = "rank_and_select"
	nodeApproval        = "human_approval"
	nodePublish         = "publish_post"
	nodeScheduleCheck   = "schedule_metrics_check"
)

// noveltyWithoutHistory is the novelty score when no posts exist yet: a
// first post is maximally novel.
const noveltyWithoutHistory = 10.0

// defaultAIScore is used for variants the ranking reply did not cover.
const defaultAIScore = 5.0

// NewCreationGraph builds the content creation pipeline:
//
//	goal_check -> research -> extract_patterns -> generate -> rank ->
//	human_approval -> publish -> schedule_metrics_check
//
// with the goal short-circuit after goal_check and the approve/regenerate/end
// routing after the approval gate.
func NewCreationGraph(deps Deps) (*graph.Graph[CreationState, HumanDecision], error) {
	return graph.NewBuilder[CreationState, HumanDecision](CreationGraphName).
		AddNode(nodeGoalCheck, deps.goalCheck).
		AddNode(nodeResearch, deps.researchViralContent).
		AddNode(nodeExtractPatterns, deps.extractPatterns).
		AddNode(nodeGenerate, deps.generateVariants).
		AddNode(nodeRank, deps.rankAndSelect).
		AddNode(nodePublish, deps.publishPost).
		AddNode(nodeScheduleCheck, deps.scheduleMetricsCheck).
		SetEntry(nodeGoalCheck).
		AddBranch(nodeGoalCheck, func(s CreationState) string {
			if s.GoalReached {
				return "end"
			}
			return "continue"
		}, map[string]string{
			"end":      graph.End,
			"continue": nodeResearch,
		}).
		AddEdge(nodeResearch, nodeExtractPatterns).
		AddEdge(nodeExtractPatterns, nodeGenerate).
		AddEdge(nodeGenerate, nodeRank).
		AddEdge(nodeRank, nodeApproval).
		SetInterrupt(nodeApproval, graph.InterruptSpec[CreationState, HumanDecision]{
			Guard:   approvalGuard,
			Payload: approvalPayload,
			Resume:  applyHumanDecision,
		}).
		AddBranch(nodeApproval, deps.afterApproval, map[string]string{
			"publish":    nodePublish,
			"regenerate": nodeGenerate,
			"end":        graph.End,
		}).
		AddEdge(nodePublish, nodeScheduleCheck).
		AddEdge(nodeScheduleCheck, graph.End).
		Build()
}

// goalCheck fetches the follower count and ends the cycle when the target
// is met. A fetch failure degrades: the cycle proceeds.
func (d Deps) goalCheck(ctx context.Context, s CreationState) (CreationState, error) {
	current, err := d.Social.FollowerCount(ctx)
	if err != nil {
		s.GoalReached = false
		return s.withError(nodeGoalCheck, "failed to get follower count: %v", err), nil
	}

	if s.TargetFollowerCount <= 0 {
		s.TargetFollowerCount = 100
	}
	s.CurrentFollowerCount = current
	s.GoalReached = current >= s.TargetFollowerCount
	return s, nil
}

// researchViralContent gathers viral posts from the news source and the
// hashtag scraper. Each source degrades independently; results are
// deduplicated by content prefix.
func (d Deps) researchViralContent(ctx context.Context, s CreationState) (CreationState, error) {
	niche, err := d.KB.GetNicheConfig(ctx)
	if err != nil {
		return s, err
	}

	var all []content.ViralPost

	newsPosts, err := d.News.ViralPosts(ctx, 30)
	if err != nil {
		s = s.withError(nodeResearch, "news research failed: %v", err)
	} else {
		all = append(all, newsPosts...)
	}

	hashtags := []string{"programming", "tech", "coding"}
	if niche != nil && len(niche.HashtagsPrimary)+len(niche.HashtagsSecondary) > 0 {
		hashtags = append(append([]string{}, niche.HashtagsPrimary...), niche.HashtagsSecondary...)
	}
	scraped, err := d.Scraper.ScrapeViralPosts(ctx, hashtags, 20)
	if err != nil {
		s = s.withError(nodeResearch, "hashtag scraping failed: %v", err)
	} else {
		all = append(all, scraped...)
	}

	s.ViralPosts = dedupeByContent(all)
	if len(s.ViralPosts) == 0 {
		s = s.withError(nodeResearch, "no viral content found")
	}
	return s, nil
}

// dedupeByContent drops posts whose first 100 content characters repeat.
func dedupeByContent(posts []content.ViralPost) []content.ViralPost {
	seen := make(map[string]bool, len(posts))
	var unique []content.ViralPost
	for _, p := range posts {
		key := p.Content
		if runes := []rune(key); len(runes) > 100 {
			key = string(runes[:100])
		}
		if !seen[key] {
			seen[key] = true
			unique = append(unique, p)
		}
	}
	return unique
}

type patternExtraction struct {
	Patterns []content.ContentPattern `json:"patterns"`
}

func (d Deps) extractPatterns(ctx context.Context, s CreationState) (CreationState, error) {
	if len(s.ViralPosts) == 0 {
		s.ExtractedPatterns = nil
		return s.withError(nodeExtractPatterns, "no viral posts to analyze"), nil
	}

	performances, err := d.KB.GetAllPatternPerformances(ctx)
	if err != nil {
		return s, err
	}

	niche, err := d.KB.GetNicheConfig(ctx)
	if err != nil {
		return s, err
	}
	nicheName := "tech"
	if niche != nil {
		nicheName = niche.Niche
	}

	posts := s.ViralPosts
	if len(posts) > 15 {
		posts = posts[:15]
	}
	var sb strings.Builder
	for i, p := range posts {
		fmt.Fprintf(&sb, "[%d] Platform: %s\nContent: %s\nEngagement: %d likes, %d replies, %d reposts\n\n",
			i+1, p.Platform, p.Content, p.Likes, p.Replies, p.Reposts)
	}

	prompt := fmt.Sprintf(extractPatternsUser, nicheName, sb.String(), performanceSummary(performances))
	result, err := llm.CompleteJSON[patternExtraction](ctx, d.LLM, extractPatternsSystem, prompt)
	if err != nil {
		s.ExtractedPatterns = nil
		return s.withError(nodeExtractPatterns, "LLM call failed: %v", err), nil
	}

	s.ExtractedPatterns = result.Patterns
	return s, nil
}

func performanceSummary(performances []content.PatternPerformance) string {
	if len(performances) == 0 {
		return "No historical data yet."
	}
	var sb strings.Builder
	for _, p := range performances {
		fmt.Fprintf(&sb, "- %s: used %dx, avg engagement %.2f%%, effectiveness %.1f/10\n",
			p.PatternName, p.TimesUsed, p.AvgEngagementRate*100, p.EffectivenessScore())
	}
	return sb.String()
}

type generationResult struct {
	Variants []content.PostVariant `json:"variants"`
}

// generateVariants writes 5 post candidates from the extracted patterns.
// When re-entered after a feedback rejection it counts the regenerate and
// feeds the feedback into the prompt.
func (d Deps) generateVariants(ctx context.Context, s CreationState) (CreationState, error) {
	feedback := ""
	if s.HumanDecision == DecisionReject {
		s.RegenerateCount++
		feedback = s.HumanFeedback
		s.HumanDecision = ""
		s.HumanFeedback = ""
	}

	if len(s.ExtractedPatterns) == 0 {
		s.GeneratedVariants = nil
		return s.withError(nodeGenerate, "no patterns available"), nil
	}

	// Independent reads; fetch them concurrently.
	var (
		niche    *content.AccountNiche
		strategy content.ContentStrategy
		recent   []content.PublishedPost
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		niche, err = d.KB.GetNicheConfig(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		strategy, err = d.KB.GetStrategy(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = d.KB.GetRecentPosts(gctx, 10)
		return err
	})
	if err := g.Wait(); err != nil {
		return s, err
	}

	var patterns strings.Builder
	for _, p := range s.ExtractedPatterns {
		fmt.Fprintf(&patterns, "Pattern: %s\nDescription: %s\nStructure: %s\nHook type: %s\n\n",
			p.Name, p.Description, p.Structure, p.HookType)
	}

	nicheName, tone, persona, style := "tech", "conversational", "tech expert", ""
	pillars := "No specific pillars configured."
	avoid := "None specified."
	if niche != nil {
		nicheName = niche.Niche
		tone = niche.Voice.Tone
		persona = niche.Voice.Persona
		style = strings.Join(niche.Voice.StyleNotes, "\n")
		if len(niche.ContentPillars) > 0 {
			var sb strings.Builder
			for _, p := range niche.ContentPillars {
				fmt.Fprintf(&sb, "- %s (%.0f%%): %s\n", p.Name, p.Weight*100, p.Description)
			}
			pillars = sb.String()
		}
		if len(niche.AvoidTopics) > 0 {
			avoid = strings.Join(niche.AvoidTopics, ", ")
		}
	}

	recentText := "No posts published yet."
	if len(recent) > 0 {
		var sb strings.Builder
		for _, p := range recent {
			snippet := p.Content
			if runes := []rune(snippet); len(runes) > 100 {
				snippet = string(runes[:100])
			}
			fmt.Fprintf(&sb, "- %s...\n", snippet)
		}
		recentText = sb.String()
	}

	learnings := "No learnings yet - first cycle."
	if len(strategy.KeyLearnings) > 0 {
		learnings = strings.Join(strategy.KeyLearnings, "\n")
	}

	feedbackSection := ""
	if feedback != "" {
		feedbackSection = fmt.Sprintf("## Feedback on the Previous Batch\n\n%s\n\n", feedback)
	}

	system := fmt.Sprintf(generateVariantsSystem, nicheName)
	prompt := fmt.Sprintf(generateVariantsUser,
		nicheName, tone, persona, style,
		patterns.String(), pillars, avoid, recentText, learnings, feedbackSection)

	result, err := llm.CompleteJSON[generationResult](ctx, d.LLM, system, prompt)
	if err != nil {
		s.GeneratedVariants = nil
		return s.withError(nodeGenerate, "LLM call failed: %v", err), nil
	}

	s.GeneratedVariants = result.Variants
	return s, nil
}

type aiScoreResult struct {
	Scores []struct {
		Index     int     `json:"index"`
		AIScore   float64 `json:"ai_score"`
		Reasoning string  `json:"reasoning"`
	} `json:"scores"`
}

// rankAndSelect blends three signals per variant: the model's viral-potential
// score, the pattern's historical effectiveness, and novelty against recent
// posts. Ranks are exhaustive (1..N) and the top post becomes the selection.
func (d Deps) rankAndSelect(ctx context.Context, s CreationState) (CreationState, error) {
	if len(s.GeneratedVariants) == 0 {
		s.RankedPosts = nil
		s.SelectedPost = nil
		return s.withError(nodeRank, "no variants to rank"), nil
	}

	niche, err := d.KB.GetNicheConfig(ctx)
	if err != nil {
		return s, err
	}
	audience := "Tech professionals and developers"
	if niche != nil {
		audience = fmt.Sprintf("Primary: %s\nSecondary: %s", niche.Audience.Primary, niche.Audience.Secondary)
	}

	var sb strings.Builder
	for i, v := range s.GeneratedVariants {
		fmt.Fprintf(&sb, "[Variant %d]\nContent: %s\nPattern: %s\nPillar: %s\n\n",
			i, v.Content, v.PatternUsed, v.Pillar)
	}

	prompt := fmt.Sprintf(rankPostsUser, sb.String(), audience)
	aiResult, err := llm.CompleteJSON[aiScoreResult](ctx, d.LLM, rankPostsSystem, prompt)
	if err != nil {
		s.RankedPosts = nil
		s.SelectedPost = nil
		return s.withError(nodeRank, "LLM call failed: %v", err), nil
	}

	type aiScore struct {
		score     float64
		reasoning string
	}
	aiScores := make(map[int]aiScore, len(aiResult.Scores))
	for _, sc := range aiResult.Scores {
		aiScores[sc.Index] = aiScore{score: sc.AIScore, reasoning: sc.Reasoning}
	}

	historyScores := make(map[string]float64)
	for _, v := range s.GeneratedVariants {
		if _, done := historyScores[v.PatternUsed]; done {
			continue
		}
		perf, err := d.KB.GetPatternPerformance(ctx, v.PatternUsed)
		if err != nil {
			return s, err
		}
		historyScores[v.PatternUsed] = perf.EffectivenessScore()
	}

	novelties, err := d.noveltyScores(ctx, s.GeneratedVariants)
	if err != nil {
		return s, err
	}

	ranked := make([]content.RankedPost, 0, len(s.GeneratedVariants))
	for i, v := range s.GeneratedVariants {
		ai, ok := aiScores[i]
		if !ok {
			ai = aiScore{score: defaultAIScore, reasoning: "No score available"}
		}
		history := historyScores[v.PatternUsed]
		composite := content.ComputeComposite(ai.score, history, novelties[i])

		ranked = append(ranked, content.RankedPost{
			Content:             v.Content,
			PatternUsed:         v.PatternUsed,
			Pillar:              v.Pillar,
			AIScore:             ai.score,
			PatternHistoryScore: history,
			NoveltyScore:        novelties[i],
			CompositeScore:      composite,
			Reasoning:           ai.reasoning,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	s.RankedPosts = ranked
	selected := ranked[0]
	s.SelectedPost = &selected
	return s, nil
}

// noveltyScores measures how far each variant sits from the account's recent
// posts: 1 minus the average embedding similarity, scaled to 0-10. With no
// history every variant is fully novel.
func (d Deps) noveltyScores(ctx context.Context, variants []content.PostVariant) ([]float64, error) {
	scores := make([]float64, len(variants))

	recent, err := d.KB.GetRecentPostContents(ctx, 20)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		for i := range scores {
			scores[i] = noveltyWithoutHistory
		}
		return scores, nil
	}

	texts := make([]string, 0, len(variants)+len(recent))
	for _, v := range variants {
		texts = append(texts, v.Content)
	}
	texts = append(texts, recent...)

	embeddings, err := d.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	variantEmbs := embeddings[:len(variants)]
	recentEmbs := embeddings[len(variants):]

	similarity := d.Similarity
	if similarity == nil {
		similarity = platform.CosineSimilarity
	}

	for i, emb := range variantEmbs {
		var total float64
		for _, rec := range recentEmbs {
			sim, err := similarity(emb, rec)
			if err != nil {
				return nil, err
			}
			total += sim
		}
		avg := total / float64(len(recentEmbs))
		novelty := (1 - avg) * 10
		if novelty < 0 {
			novelty = 0
		}
		if novelty > 10 {
			novelty = 10
		}
		scores[i] = novelty
	}
	return scores, nil
}

// approvalGuard resolves immediately when there is nothing to approve,
// otherwise the execution suspends for the human.
func approvalGuard(s CreationState) (CreationState, bool) {
	if s.SelectedPost == nil {
		s.HumanDecision = DecisionReject
		s = s.withError(nodeApproval, "no post selected for approval")
		return s, false
	}
	return s, true
}

func approvalPayload(s CreationState) any {
	payload := ApprovalPayload{
		SelectedPost:  *s.SelectedPost,
		CycleNumber:   s.CycleNumber,
		FollowerCount: s.CurrentFollowerCount,
	}
	if len(s.RankedPosts) > 1 {
		end := len(s.RankedPosts)
		if end > 3 {
			end = 3
		}
		payload.Alternatives = s.RankedPosts[1:end]
	}
	return payload
}

// applyHumanDecision folds the decision into the state. Unrecognized
// decisions reject; a rejection always clears the selection so a rejected
// post can never reach the publisher.
func applyHumanDecision(ctx context.Context, s CreationState, decision HumanDecision) (CreationState, error) {
	decision = decision.Normalized()

	s.HumanDecision = decision.Decision
	s.HumanEditedContent = decision.EditedContent
	s.HumanFeedback = decision.Feedback

	if decision.UseAlternative != nil && decision.Decision == DecisionApprove {
		// 1-based into the alternatives, which start at overall rank 2.
		idx := *decision.UseAlternative
		if idx >= 1 && idx < len(s.RankedPosts) && idx <= 2 {
			alt := s.RankedPosts[idx]
			s.SelectedPost = &alt
		}
	}

	switch decision.Decision {
	case DecisionEdit:
		if decision.EditedContent != "" && s.SelectedPost != nil {
			edited := *s.SelectedPost
			edited.Content = decision.EditedContent
			s.SelectedPost = &edited
		}
	case DecisionReject:
		s.SelectedPost = nil
	}
	return s, nil
}

// afterApproval routes an approved or edited post to publishing, a feedback
// rejection back to generation while the regenerate budget lasts, and
// everything else to the end.
func (d Deps) afterApproval(s CreationState) string {
	switch s.HumanDecision {
	case DecisionApprove, DecisionEdit:
		return "publish"
	}
	if s.HumanDecision == DecisionReject && s.HumanFeedback != "" && s.RegenerateCount < d.MaxRegenerates {
		return "regenerate"
	}
	return "end"
}

func (d Deps) publishPost(ctx context.Context, s CreationState) (CreationState, error) {
	if s.SelectedPost == nil {
		s.PublishedPost = nil
		return s.withError(nodePublish, "no post to publish"), nil
	}
	text := s.SelectedPost.Content
	if text == "" {
		s.PublishedPost = nil
		return s.withError(nodePublish, "post content is empty"), nil
	}

	postID, err := d.Social.PublishPost(ctx, text)
	if err != nil {
		s.PublishedPost = nil
		return s.withError(nodePublish, "failed to publish: %v", err), nil
	}

	followers := 0
	if count, err := d.Social.FollowerCount(ctx); err == nil {
		followers = count
	}

	now := time.Now().UTC()
	published := content.PublishedPost{
		PostID:                 postID,
		Content:                text,
		PatternUsed:            s.SelectedPost.PatternUsed,
		Pillar:                 s.SelectedPost.Pillar,
		PublishedAt:            now,
		ScheduledMetricsCheck:  now.Add(content.MetricsCheckDelay),
		FollowerCountAtPublish: followers,
		AIScore:                s.SelectedPost.AIScore,
		CompositeScore:         s.SelectedPost.CompositeScore,
	}
	if err := d.KB.SavePublishedPost(ctx, published); err != nil {
		return s, err
	}

	s.PublishedPost = &published
	d.logger().Info("post published",
		"post_id", postID,
		"pattern", published.PatternUsed,
		"composite_score", published.CompositeScore,
	)
	return s, nil
}

func (d Deps) scheduleMetricsCheck(ctx context.Context, s CreationState) (CreationState, error) {
	if s.PublishedPost == nil {
		return s, nil
	}
	if err := d.KB.AddPendingMetrics(ctx, *s.PublishedPost); err != nil {
		return s, err
	}
	return s, nil
}
