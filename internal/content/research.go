// Package content holds the domain value objects that flow through the
// creation and learning pipelines: discovered viral posts, extracted
// patterns, generated variants, published posts, and the account's niche
// and strategy configuration.
package content

// ViralPost is a uniform record for content discovered on any platform.
type ViralPost struct {
	// Platform is the source platform tag: "threads", "hackernews", "reddit".
	Platform string `json:"platform"`

	Author  string `json:"author,omitempty"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`

	Likes   int `json:"likes"`
	Replies int `json:"replies"`
	Reposts int `json:"reposts"`
	Views   int `json:"views"`

	EngagementRate float64 `json:"engagement_rate"`

	DiscoveredAt string   `json:"discovered_at,omitempty"`
	TopicTags    []string `json:"topic_tags,omitempty"`
}

// TotalEngagement returns the sum of all engagement counts.
func (p ViralPost) TotalEngagement() int {
	return p.Likes + p.Replies + p.Reposts
}

// ContentPattern is a named, reusable content-structure template extracted
// from viral posts.
type ContentPattern struct {
	// Name is a short pattern identifier, e.g. "contrarian_hot_take".
	Name string `json:"name"`

	// Description explains what makes this pattern work.
	Description string `json:"description"`

	// Structure is the template shape, e.g. "Hook -> Evidence -> CTA".
	Structure string `json:"structure"`

	// HookType categorises the opening: question, bold_claim, story, stat.
	HookType string `json:"hook_type"`

	ExampleHooks []string `json:"example_hooks,omitempty"`

	AvgEngagementRate float64  `json:"avg_engagement_rate"`
	BestForPillars    []string `json:"best_for_pillars,omitempty"`
	SourcePostsCount  int      `json:"source_posts_count"`
}
