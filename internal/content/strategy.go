package content

import "time"

// VoiceConfig describes the account's writing voice.
type VoiceConfig struct {
	Tone       string   `json:"tone" yaml:"tone"`
	Persona    string   `json:"persona" yaml:"persona"`
	Language   string   `json:"language" yaml:"language"`
	StyleNotes []string `json:"style_notes,omitempty" yaml:"style_notes"`
}

// AudienceConfig describes who the account writes for.
type AudienceConfig struct {
	Primary    string   `json:"primary" yaml:"primary"`
	Secondary  string   `json:"secondary" yaml:"secondary"`
	PainPoints []string `json:"pain_points,omitempty" yaml:"pain_points"`
}

// ContentPillar is one themed slice of the content mix with a weight.
type ContentPillar struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Weight      float64 `json:"weight" yaml:"weight"`
}

// AccountNiche is the full account niche configuration.
type AccountNiche struct {
	Niche       string `json:"niche" yaml:"niche"`
	SubNiche    string `json:"sub_niche" yaml:"sub_niche"`
	Description string `json:"description,omitempty" yaml:"description"`

	Voice    VoiceConfig    `json:"voice" yaml:"voice"`
	Audience AudienceConfig `json:"audience" yaml:"audience"`

	ContentPillars []ContentPillar `json:"content_pillars,omitempty" yaml:"content_pillars"`
	AvoidTopics    []string        `json:"avoid_topics,omitempty" yaml:"avoid_topics"`

	HashtagsPrimary    []string `json:"hashtags_primary,omitempty" yaml:"hashtags_primary"`
	HashtagsSecondary  []string `json:"hashtags_secondary,omitempty" yaml:"hashtags_secondary"`
	MaxHashtagsPerPost int      `json:"max_hashtags_per_post" yaml:"max_hashtags_per_post"`

	PostingTimezone       string   `json:"posting_timezone" yaml:"posting_timezone"`
	PreferredPostingTimes []string `json:"preferred_posting_times,omitempty" yaml:"preferred_posting_times"`
	MaxPostsPerDay        int      `json:"max_posts_per_day" yaml:"max_posts_per_day"`
}

// DefaultAccountNiche returns the baseline tech-niche configuration used
// when no niche has been initialized yet.
func DefaultAccountNiche() AccountNiche {
	return AccountNiche{
		Niche:    "tech",
		SubNiche: "programming & startups",
		Voice: VoiceConfig{
			Tone:     "conversational, insightful, slightly provocative",
			Persona:  "experienced developer who shares hard-won lessons",
			Language: "English",
		},
		Audience: AudienceConfig{
			Primary:   "software developers",
			Secondary: "tech enthusiasts, aspiring founders",
		},
		MaxHashtagsPerPost:    3,
		PostingTimezone:       "Europe/Warsaw",
		PreferredPostingTimes: []string{"08:00", "12:30", "18:00"},
		MaxPostsPerDay:        3,
	}
}

// PatternPerformance is the cumulative performance record for one pattern.
type PatternPerformance struct {
	PatternName string `json:"pattern_name"`

	TimesUsed    int `json:"times_used"`
	TotalViews   int `json:"total_views"`
	TotalLikes   int `json:"total_likes"`
	TotalReplies int `json:"total_replies"`
	TotalReposts int `json:"total_reposts"`

	AvgEngagementRate float64 `json:"avg_engagement_rate"`
	AvgFollowerDelta  float64 `json:"avg_follower_delta"`

	BestPostID  string `json:"best_post_id,omitempty"`
	WorstPostID string `json:"worst_post_id,omitempty"`

	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// EffectivenessScore computes overall pattern effectiveness on a 0-10 scale.
// Untried patterns get a 5.0 exploration bonus so they are not starved out.
func (p PatternPerformance) EffectivenessScore() float64 {
	if p.TimesUsed == 0 {
		return 5.0
	}
	engagement := p.AvgEngagementRate * 100
	if engagement > 10 {
		engagement = 10
	}
	follower := p.AvgFollowerDelta
	if follower < 0 {
		follower = 0
	}
	follower *= 2
	if follower > 10 {
		follower = 10
	}
	return 0.6*engagement + 0.4*follower
}

// ContentStrategy is the current strategy derived from the learning loop.
type ContentStrategy struct {
	// PreferredPatterns lists pattern names ranked by effectiveness.
	PreferredPatterns []string `json:"preferred_patterns,omitempty"`

	// AvoidPatterns lists patterns that consistently underperform.
	AvoidPatterns []string `json:"avoid_patterns,omitempty"`

	OptimalPostingTimes []string `json:"optimal_posting_times,omitempty"`

	// PillarAdjustments tunes content pillar weights based on performance.
	PillarAdjustments map[string]float64 `json:"pillar_adjustments,omitempty"`

	// KeyLearnings are natural-language insights from analysis.
	KeyLearnings []string `json:"key_learnings,omitempty"`

	Iteration   int        `json:"iteration"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// PerformanceAnalysis is the structured output of the learning pipeline's
// analysis stage.
type PerformanceAnalysis struct {
	TopPerformers   []string `json:"top_performers"`
	Underperformers []string `json:"underperformers"`
	PatternInsights []string `json:"pattern_insights"`
	TimingInsights  []string `json:"timing_insights"`
	PillarAnalysis  []string `json:"pillar_analysis"`
	AudienceSignals []string `json:"audience_signals"`
	Recommendations []string `json:"recommendations"`
}
