package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/graph"
	"github.com/kgarbacinski/AutoViralAI/internal/llm"
)

// LearningGraphName is the checkpoint graph kind for learning threads.
const LearningGraphName = "learning"

// Node names of the learning graph.
const (
	nodeCollectMetrics = "collect_metrics"
	nodeAnalyze        = "analyze_performance"
	nodeUpdateKB       = "update_knowledge_base"
	nodeAdjustStrategy = "adjust_strategy"
)

// NewLearningGraph builds the metrics and learning pipeline:
//
//	collect_metrics -> analyze -> update_knowledge_base -> adjust_strategy
//
// ending early when no metrics were due.
func NewLearningGraph(deps Deps) (*graph.Graph[LearningState, HumanDecision], error) {
	return graph.NewBuilder[LearningState, HumanDecision](LearningGraphName).
		AddNode(nodeCollectMetrics, deps.collectMetrics).
		AddNode(nodeAnalyze, deps.analyzePerformance).
		AddNode(nodeUpdateKB, deps.updateKnowledgeBase).
		AddNode(nodeAdjustStrategy, deps.adjustStrategy).
		SetEntry(nodeCollectMetrics).
		AddBranch(nodeCollectMetrics, func(s LearningState) string {
			if len(s.CollectedMetrics) == 0 {
				return "end"
			}
			return "continue"
		}, map[string]string{
			"continue": nodeAnalyze,
			"end":      graph.End,
		}).
		AddEdge(nodeAnalyze, nodeUpdateKB).
		AddEdge(nodeUpdateKB, nodeAdjustStrategy).
		AddEdge(nodeAdjustStrategy, graph.End).
		Build()
}

// collectMetrics gathers engagement data for every pending post whose check
// time has arrived. Per-post failures degrade; collected posts leave the
// pending queue.
func (d Deps) collectMetrics(ctx context.Context, s LearningState) (LearningState, error) {
	pending, err := d.KB.GetPendingMetricsPosts(ctx)
	if err != nil {
		return s, err
	}
	s.PostsToCheck = pending
	now := time.Now().UTC()

	var collected []content.PostMetrics
	for _, post := range pending {
		if now.Before(post.ScheduledMetricsCheck) {
			continue
		}

		metrics, err := d.Social.PostMetrics(ctx, post.PostID)
		if err != nil {
			s = s.withError(nodeCollectMetrics, "failed for %s: %v", post.PostID, err)
			continue
		}

		metrics.PostID = post.PostID
		metrics.Content = post.Content
		metrics.PatternUsed = post.PatternUsed
		metrics.Pillar = post.Pillar
		metrics.CollectedAt = now
		metrics.HoursSincePublish = now.Sub(post.PublishedAt).Hours()
		if followers, err := d.Social.FollowerCount(ctx); err == nil {
			metrics.FollowerDelta = followers - post.FollowerCountAtPublish
		}

		if err := d.KB.SavePostMetrics(ctx, metrics); err != nil {
			return s, err
		}
		if err := d.KB.RemovePendingMetrics(ctx, post.PostID); err != nil {
			return s, err
		}
		collected = append(collected, metrics)
	}

	s.CollectedMetrics = collected
	d.logger().Info("metrics collected", "pending", len(pending), "collected", len(collected))
	return s, nil
}

func (d Deps) analyzePerformance(ctx context.Context, s LearningState) (LearningState, error) {
	if len(s.CollectedMetrics) == 0 {
		s.PerformanceAnalysis = nil
		return s.withError(nodeAnalyze, "no metrics to analyze"), nil
	}

	var sb strings.Builder
	for _, m := range s.CollectedMetrics {
		snippet := m.Content
		if runes := []rune(snippet); len(runes) > 200 {
			snippet = string(runes[:200])
		}
		fmt.Fprintf(&sb, "Post: %s\nPattern: %s\nPillar: %s\nViews: %d, Likes: %d, Replies: %d, Reposts: %d\nEngagement rate: %.2f%%\nFollower delta: %d\n\n",
			snippet, m.PatternUsed, m.Pillar, m.Views, m.Likes, m.Replies, m.Reposts,
			m.EngagementRate*100, m.FollowerDelta)
	}

	performances, err := d.KB.GetAllPatternPerformances(ctx)
	if err != nil {
		return s, err
	}

	strategy, err := d.KB.GetStrategy(ctx)
	if err != nil {
		return s, err
	}
	strategyText := fmt.Sprintf("Preferred patterns: %s\nKey learnings: %s\nIteration: %d",
		strings.Join(strategy.PreferredPatterns, ", "),
		strings.Join(strategy.KeyLearnings, "; "),
		strategy.Iteration)

	prompt := fmt.Sprintf(analyzePerformanceUser, sb.String(), performanceSummary(performances), strategyText)
	analysis, err := llm.CompleteJSON[content.PerformanceAnalysis](ctx, d.LLM, analyzePerformanceSystem, prompt)
	if err != nil {
		s.PerformanceAnalysis = nil
		return s.withError(nodeAnalyze, "LLM call failed: %v", err), nil
	}

	s.PerformanceAnalysis = &analysis
	return s, nil
}

// updateKnowledgeBase folds each collected metric into its pattern's
// cumulative record. The aggregation is order-independent: totals only grow
// and averages derive from totals.
func (d Deps) updateKnowledgeBase(ctx context.Context, s LearningState) (LearningState, error) {
	var updated []content.PatternPerformance

	for _, metrics := range s.CollectedMetrics {
		if metrics.PatternUsed == "" {
			continue
		}

		perf, err := d.KB.GetPatternPerformance(ctx, metrics.PatternUsed)
		if err != nil {
			return s, err
		}

		perf.TimesUsed++
		perf.TotalViews += metrics.Views
		perf.TotalLikes += metrics.Likes
		perf.TotalReplies += metrics.Replies
		perf.TotalReposts += metrics.Reposts

		if perf.TotalViews > 0 {
			totalEngagement := perf.TotalLikes + perf.TotalReplies + perf.TotalReposts
			perf.AvgEngagementRate = float64(totalEngagement) / float64(perf.TotalViews)
		} else {
			perf.AvgEngagementRate = 0
		}
		perf.AvgFollowerDelta = (perf.AvgFollowerDelta*float64(perf.TimesUsed-1) +
			float64(metrics.FollowerDelta)) / float64(perf.TimesUsed)

		if perf.BestPostID == "" || metrics.EngagementRate > perf.AvgEngagementRate {
			perf.BestPostID = metrics.PostID
		}
		if perf.WorstPostID == "" || metrics.EngagementRate < perf.AvgEngagementRate {
			perf.WorstPostID = metrics.PostID
		}

		now := time.Now().UTC()
		perf.LastUsedAt = &now

		if err := d.KB.SavePatternPerformance(ctx, perf); err != nil {
			return s, err
		}
		updated = append(updated, perf)
	}

	s.PatternUpdates = updated
	return s, nil
}

func (d Deps) adjustStrategy(ctx context.Context, s LearningState) (LearningState, error) {
	if s.PerformanceAnalysis == nil {
		s.NewStrategy = nil
		return s.withError(nodeAdjustStrategy, "no performance analysis available"), nil
	}

	current, err := d.KB.GetStrategy(ctx)
	if err != nil {
		return s, err
	}
	performances, err := d.KB.GetAllPatternPerformances(ctx)
	if err != nil {
		return s, err
	}
	niche, err := d.KB.GetNicheConfig(ctx)
	if err != nil {
		return s, err
	}

	analysisJSON, err := json.MarshalIndent(s.PerformanceAnalysis, "", "  ")
	if err != nil {
		return s, err
	}
	currentJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return s, err
	}
	nicheText := "Not configured."
	if niche != nil {
		data, err := json.MarshalIndent(niche, "", "  ")
		if err != nil {
			return s, err
		}
		nicheText = string(data)
	}

	perfText := "No pattern data yet."
	if len(performances) > 0 {
		var sb strings.Builder
		for _, p := range performances {
			fmt.Fprintf(&sb, "- %s: %d uses, engagement %.2f%%, follower delta %+.1f, effectiveness %.1f/10\n",
				p.PatternName, p.TimesUsed, p.AvgEngagementRate*100, p.AvgFollowerDelta, p.EffectivenessScore())
		}
		perfText = sb.String()
	}

	prompt := fmt.Sprintf(adjustStrategyUser, analysisJSON, currentJSON, perfText, nicheText)
	newStrategy, err := llm.CompleteJSON[content.ContentStrategy](ctx, d.LLM, adjustStrategySystem, prompt)
	if err != nil {
		s.NewStrategy = nil
		return s.withError(nodeAdjustStrategy, "LLM call failed: %v", err), nil
	}

	newStrategy.Iteration = current.Iteration + 1
	if err := d.KB.SaveStrategy(ctx, newStrategy); err != nil {
		return s, err
	}

	s.NewStrategy = &newStrategy
	d.logger().Info("strategy updated", "iteration", newStrategy.Iteration)
	return s, nil
}
