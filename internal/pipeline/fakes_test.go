package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
)

// fakeKB is an in-memory KnowledgeBase for pipeline tests.
type fakeKB struct {
	mu           sync.Mutex
	niche        *content.AccountNiche
	strategy     content.ContentStrategy
	performances map[string]content.PatternPerformance
	published    []content.PublishedPost
	pending      map[string]content.PublishedPost
	metrics      []content.PostMetrics
}

func newFakeKB() *fakeKB {
	return &fakeKB{
		performances: make(map[string]content.PatternPerformance),
		pending:      make(map[string]content.PublishedPost),
	}
}

func (f *fakeKB) GetNicheConfig(ctx context.Context) (*content.AccountNiche, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.niche, nil
}

func (f *fakeKB) GetStrategy(ctx context.Context) (content.ContentStrategy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strategy, nil
}

func (f *fakeKB) SaveStrategy(ctx context.Context, strategy content.ContentStrategy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strategy = strategy
	return nil
}

func (f *fakeKB) GetPatternPerformance(ctx context.Context, name string) (content.PatternPerformance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if perf, ok := f.performances[name]; ok {
		return perf, nil
	}
	return content.PatternPerformance{PatternName: name}, nil
}

func (f *fakeKB) SavePatternPerformance(ctx context.Context, perf content.PatternPerformance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.performances[perf.PatternName] = perf
	return nil
}

func (f *fakeKB) GetAllPatternPerformances(ctx context.Context) ([]content.PatternPerformance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]content.PatternPerformance, 0, len(f.performances))
	for _, p := range f.performances {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeKB) GetRecentPosts(ctx context.Context, limit int) ([]content.PublishedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	posts := f.published
	if limit > 0 && len(posts) > limit {
		posts = posts[len(posts)-limit:]
	}
	out := make([]content.PublishedPost, len(posts))
	copy(out, posts)
	return out, nil
}

func (f *fakeKB) SavePublishedPost(ctx context.Context, post content.PublishedPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, post)
	return nil
}

func (f *fakeKB) GetPendingMetricsPosts(ctx context.Context) ([]content.PublishedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]content.PublishedPost, 0, len(f.pending))
	for _, p := range f.pending {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeKB) AddPendingMetrics(ctx context.Context, post content.PublishedPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[post.PostID] = post
	return nil
}

func (f *fakeKB) RemovePendingMetrics(ctx context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, postID)
	return nil
}

func (f *fakeKB) SavePostMetrics(ctx context.Context, metrics content.PostMetrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics = append(f.metrics, metrics)
	return nil
}

func (f *fakeKB) GetRecentPostContents(ctx context.Context, limit int) ([]string, error) {
	posts, err := f.GetRecentPosts(ctx, limit)
	if err != nil {
		return nil, err
	}
	contents := make([]string, 0, len(posts))
	for _, p := range posts {
		contents = append(contents, p.Content)
	}
	return contents, nil
}

// fakeSocial is a deterministic social client for tests.
type fakeSocial struct {
	mu           sync.Mutex
	followers    int
	followersErr error
	publishErr   error
	postCounter  int
	publishedIDs []string
	metricsByID  map[string]content.PostMetrics
}

func (f *fakeSocial) FollowerCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.followersErr != nil {
		return 0, f.followersErr
	}
	return f.followers, nil
}

func (f *fakeSocial) PublishPost(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.postCounter++
	id := fmt.Sprintf("post_%d", f.postCounter)
	f.publishedIDs = append(f.publishedIDs, id)
	return id, nil
}

func (f *fakeSocial) PostMetrics(ctx context.Context, postID string) (content.PostMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.metricsByID[postID]; ok {
		return m, nil
	}
	return content.PostMetrics{}, fmt.Errorf("no metrics for %s", postID)
}

// fakeNews returns fixed viral posts or an error.
type fakeNews struct {
	posts []content.ViralPost
	err   error
}

func (f *fakeNews) ViralPosts(ctx context.Context, limit int) ([]content.ViralPost, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

// fakeScraper returns fixed viral posts or an error.
type fakeScraper struct {
	posts []content.ViralPost
	err   error
}

func (f *fakeScraper) ScrapeViralPosts(ctx context.Context, hashtags []string, limit int) ([]content.ViralPost, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}
