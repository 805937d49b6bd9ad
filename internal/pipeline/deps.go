package pipeline

import (
	"context"
	"log/slog"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/llm"
)

// KnowledgeBase is the store surface the pipeline nodes depend on.
// Implemented by the knowledge package.
type KnowledgeBase interface {
	GetNicheConfig(ctx context.Context) (*content.AccountNiche, error)
	GetStrategy(ctx context.Context) (content.ContentStrategy, error)
	SaveStrategy(ctx context.Context, strategy content.ContentStrategy) error
	GetPatternPerformance(ctx context.Context, patternName string) (content.PatternPerformance, error)
	SavePatternPerformance(ctx context.Context, perf content.PatternPerformance) error
	GetAllPatternPerformances(ctx context.Context) ([]content.PatternPerformance, error)
	GetRecentPosts(ctx context.Context, limit int) ([]content.PublishedPost, error)
	SavePublishedPost(ctx context.Context, post content.PublishedPost) error
	GetPendingMetricsPosts(ctx context.Context) ([]content.PublishedPost, error)
	AddPendingMetrics(ctx context.Context, post content.PublishedPost) error
	RemovePendingMetrics(ctx context.Context, postID string) error
	SavePostMetrics(ctx context.Context, metrics content.PostMetrics) error
	GetRecentPostContents(ctx context.Context, limit int) ([]string, error)
}

// SocialClient is the publishing surface the pipeline depends on.
// Implemented by the platform package.
type SocialClient interface {
	FollowerCount(ctx context.Context) (int, error)
	PublishPost(ctx context.Context, text string) (string, error)
	PostMetrics(ctx context.Context, postID string) (content.PostMetrics, error)
}

// NewsClient discovers viral stories outside the social platform.
type NewsClient interface {
	ViralPosts(ctx context.Context, limit int) ([]content.ViralPost, error)
}

// Scraper discovers viral posts on the social platform by hashtag.
type Scraper interface {
	ScrapeViralPosts(ctx context.Context, hashtags []string, limit int) ([]content.ViralPost, error)
}

// Embedder computes text embeddings for novelty scoring.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// Similarity computes the similarity of two embeddings.
type Similarity func(a, b []float64) (float64, error)

// Deps bundles everything the pipeline nodes need. Constructed once per
// account in the orchestrator and shared across cycles.
type Deps struct {
	LLM      llm.Client
	KB       KnowledgeBase
	Social   SocialClient
	News     NewsClient
	Scraper  Scraper
	Embedder Embedder

	// Similarity defaults to cosine similarity when nil.
	Similarity Similarity

	// MaxRegenerates bounds the reject-with-feedback loop per thread.
	MaxRegenerates int

	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
