package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/database"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// Base is the typed knowledge base for one account. All reads of missing
// records return zero values rather than errors; only storage failures
// surface, wrapped as knowledge errors.
type Base struct {
	store *store
}

// NewBase creates a knowledge base scoped to accountID.
func NewBase(db *database.DB, accountID string) *Base {
	return &Base{store: &store{db: db, accountID: accountID}}
}

// AccountID returns the account this base is scoped to.
func (b *Base) AccountID() string { return b.store.accountID }

// GetNicheConfig returns the stored niche config, or nil when none exists.
func (b *Base) GetNicheConfig(ctx context.Context) (*content.AccountNiche, error) {
	raw, ok, err := b.store.get(ctx, nsConfig, "niche")
	if err != nil || !ok {
		return nil, err
	}
	var niche content.AccountNiche
	if err := decode(raw, &niche); err != nil {
		return nil, err
	}
	return &niche, nil
}

// SaveNicheConfig stores the niche config.
func (b *Base) SaveNicheConfig(ctx context.Context, niche content.AccountNiche) error {
	return b.put(ctx, nsConfig, "niche", niche)
}

// GetStrategy returns the current strategy, or a zero-iteration strategy
// when none has been saved yet.
func (b *Base) GetStrategy(ctx context.Context) (content.ContentStrategy, error) {
	var strategy content.ContentStrategy
	raw, ok, err := b.store.get(ctx, nsStrategy, "current")
	if err != nil || !ok {
		return strategy, err
	}
	if err := decode(raw, &strategy); err != nil {
		return content.ContentStrategy{}, err
	}
	return strategy, nil
}

// SaveStrategy stores the strategy, stamping LastUpdated.
func (b *Base) SaveStrategy(ctx context.Context, strategy content.ContentStrategy) error {
	now := time.Now().UTC()
	strategy.LastUpdated = &now
	return b.put(ctx, nsStrategy, "current", strategy)
}

// GetPatternPerformance returns the performance record for a pattern name,
// or a fresh record when the pattern has never been used.
func (b *Base) GetPatternPerformance(ctx context.Context, patternName string) (content.PatternPerformance, error) {
	perf := content.PatternPerformance{PatternName: patternName}
	raw, ok, err := b.store.get(ctx, nsPatternPerformance, patternName)
	if err != nil || !ok {
		return perf, err
	}
	if err := decode(raw, &perf); err != nil {
		return content.PatternPerformance{}, err
	}
	return perf, nil
}

// SavePatternPerformance stores a pattern performance record keyed by name.
func (b *Base) SavePatternPerformance(ctx context.Context, perf content.PatternPerformance) error {
	return b.put(ctx, nsPatternPerformance, perf.PatternName, perf)
}

// GetAllPatternPerformances returns every stored pattern record.
func (b *Base) GetAllPatternPerformances(ctx context.Context) ([]content.PatternPerformance, error) {
	raws, err := b.store.list(ctx, nsPatternPerformance, 100)
	if err != nil {
		return nil, err
	}
	perfs := make([]content.PatternPerformance, 0, len(raws))
	for _, raw := range raws {
		var perf content.PatternPerformance
		if err := decode(raw, &perf); err != nil {
			return nil, err
		}
		perfs = append(perfs, perf)
	}
	return perfs, nil
}

// GetRecentPosts returns up to limit recently published posts.
func (b *Base) GetRecentPosts(ctx context.Context, limit int) ([]content.PublishedPost, error) {
	return b.listPosts(ctx, nsPublishedPosts, limit)
}

// SavePublishedPost stores a published post keyed by its platform post ID.
func (b *Base) SavePublishedPost(ctx context.Context, post content.PublishedPost) error {
	return b.put(ctx, nsPublishedPosts, post.PostID, post)
}

// GetPendingMetricsPosts returns the posts queued for metrics collection.
func (b *Base) GetPendingMetricsPosts(ctx context.Context) ([]content.PublishedPost, error) {
	return b.listPosts(ctx, nsPendingMetrics, 50)
}

// AddPendingMetrics queues a published post for later metrics collection.
func (b *Base) AddPendingMetrics(ctx context.Context, post content.PublishedPost) error {
	return b.put(ctx, nsPendingMetrics, post.PostID, post)
}

// RemovePendingMetrics removes a post from the pending-metrics queue.
func (b *Base) RemovePendingMetrics(ctx context.Context, postID string) error {
	return b.store.delete(ctx, nsPendingMetrics, postID)
}

// SavePostMetrics appends collected metrics to the metrics history.
func (b *Base) SavePostMetrics(ctx context.Context, metrics content.PostMetrics) error {
	key := fmt.Sprintf("%s_%s", metrics.PostID, metrics.CollectedAt.UTC().Format(time.RFC3339))
	return b.put(ctx, nsMetricsHistory, key, metrics)
}

// GetMetricsHistory returns up to limit collected metrics records.
func (b *Base) GetMetricsHistory(ctx context.Context, limit int) ([]content.PostMetrics, error) {
	raws, err := b.store.list(ctx, nsMetricsHistory, limit)
	if err != nil {
		return nil, err
	}
	history := make([]content.PostMetrics, 0, len(raws))
	for _, raw := range raws {
		var m content.PostMetrics
		if err := decode(raw, &m); err != nil {
			return nil, err
		}
		history = append(history, m)
	}
	return history, nil
}

// GetRecentPostContents returns the content strings of recent posts, used
// for novelty scoring.
func (b *Base) GetRecentPostContents(ctx context.Context, limit int) ([]string, error) {
	posts, err := b.GetRecentPosts(ctx, limit)
	if err != nil {
		return nil, err
	}
	contents := make([]string, 0, len(posts))
	for _, p := range posts {
		contents = append(contents, p.Content)
	}
	return contents, nil
}

func (b *Base) listPosts(ctx context.Context, namespace string, limit int) ([]content.PublishedPost, error) {
	raws, err := b.store.list(ctx, namespace, limit)
	if err != nil {
		return nil, err
	}
	posts := make([]content.PublishedPost, 0, len(raws))
	for _, raw := range raws {
		var post content.PublishedPost
		if err := decode(raw, &post); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (b *Base) put(ctx context.Context, namespace, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return types.WrapError(types.KNOWLEDGE_DECODE_FAILED, "failed to encode knowledge item", err)
	}
	return b.store.put(ctx, namespace, key, string(data))
}

func decode(raw string, out any) error {
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return types.WrapError(types.KNOWLEDGE_DECODE_FAILED, "failed to decode knowledge item", err)
	}
	return nil
}
