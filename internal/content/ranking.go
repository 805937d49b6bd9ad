package content

// Composite score weights for ranking generated variants.
const (
	AIWeight      = 0.4
	HistoryWeight = 0.3
	NoveltyWeight = 0.3
)

// PostVariant is a single LLM-generated post candidate.
type PostVariant struct {
	// Content is the post text, capped at the platform limit (500 chars).
	Content string `json:"content"`

	PatternUsed string `json:"pattern_used"`
	Pillar      string `json:"pillar"`
	HookType    string `json:"hook_type"`

	// EstimatedEngagement is the model's own low/medium/high guess.
	EstimatedEngagement string `json:"estimated_engagement,omitempty"`

	Reasoning string `json:"reasoning,omitempty"`
}

// RankedPost is a post variant with multi-signal scoring applied.
type RankedPost struct {
	Content     string `json:"content"`
	PatternUsed string `json:"pattern_used"`
	Pillar      string `json:"pillar"`

	// AIScore is the LLM-assessed viral potential on a 0-10 scale.
	AIScore float64 `json:"ai_score"`

	// PatternHistoryScore reflects historical performance of the pattern.
	PatternHistoryScore float64 `json:"pattern_history_score"`

	// NoveltyScore measures semantic distance from recent posts.
	NoveltyScore float64 `json:"novelty_score"`

	// CompositeScore is the weighted blend of the three signals, in [0,10].
	CompositeScore float64 `json:"composite_score"`

	// Rank is 1 for the best variant; 0 means unranked.
	Rank int `json:"rank"`

	Reasoning string `json:"reasoning,omitempty"`
}

// ComputeComposite blends the three ranking signals with the fixed weights
// and clips the result to [0,10].
func ComputeComposite(aiScore, historyScore, noveltyScore float64) float64 {
	composite := AIWeight*aiScore + HistoryWeight*historyScore + NoveltyWeight*noveltyScore
	if composite < 0 {
		return 0
	}
	if composite > 10 {
		return 10
	}
	return composite
}
