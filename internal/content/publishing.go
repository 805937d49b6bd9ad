package content

import "time"

// MetricsCheckDelay is how long after publishing a post its engagement
// metrics become due for collection.
const MetricsCheckDelay = 24 * time.Hour

// PublishedPost is a post that has been published to the social platform.
type PublishedPost struct {
	// PostID is the platform's opaque identifier for the published post.
	PostID string `json:"post_id"`

	Content     string `json:"content"`
	PatternUsed string `json:"pattern_used"`
	Pillar      string `json:"pillar"`

	PublishedAt time.Time `json:"published_at"`

	// ScheduledMetricsCheck is when engagement metrics should be collected,
	// normally MetricsCheckDelay after publish.
	ScheduledMetricsCheck time.Time `json:"scheduled_metrics_check"`

	FollowerCountAtPublish int `json:"follower_count_at_publish"`

	AIScore        float64 `json:"ai_score"`
	CompositeScore float64 `json:"composite_score"`
}

// PostMetrics is the collected engagement data for one published post.
type PostMetrics struct {
	PostID      string `json:"post_id"`
	Content     string `json:"content,omitempty"`
	PatternUsed string `json:"pattern_used,omitempty"`
	Pillar      string `json:"pillar,omitempty"`

	Views   int `json:"views"`
	Likes   int `json:"likes"`
	Replies int `json:"replies"`
	Reposts int `json:"reposts"`
	Quotes  int `json:"quotes"`

	EngagementRate float64 `json:"engagement_rate"`

	// FollowerDelta is the follower change since the post was published.
	FollowerDelta int `json:"follower_delta"`

	CollectedAt       time.Time `json:"collected_at"`
	HoursSincePublish float64   `json:"hours_since_publish"`
}

// TotalEngagement returns the sum of all engagement interactions.
func (m PostMetrics) TotalEngagement() int {
	return m.Likes + m.Replies + m.Reposts + m.Quotes
}

// ComputeEngagementRate derives the engagement rate from views; zero views
// yields zero rate.
func (m PostMetrics) ComputeEngagementRate() float64 {
	if m.Views == 0 {
		return 0
	}
	return float64(m.TotalEngagement()) / float64(m.Views)
}
