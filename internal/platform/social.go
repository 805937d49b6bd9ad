// Package platform contains the adapters for external services: the social
// platform the agent publishes to, the news and scraper sources it researches
// from, and the embedding helper used for novelty scoring. Every adapter has
// a mock implementation for development and a real one selected by the
// production env flag.
package platform

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kgarbacinski/AutoViralAI/internal/config"
	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// UserPost is one of the authenticated account's own published posts.
type UserPost struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SocialClient is the publishing-side adapter for the social platform.
type SocialClient interface {
	// FollowerCount returns the current follower count of the account.
	FollowerCount(ctx context.Context) (int, error)

	// PublishPost publishes text content and returns the platform's
	// opaque post ID.
	PublishPost(ctx context.Context, text string) (string, error)

	// PostMetrics fetches engagement metrics for a published post.
	PostMetrics(ctx context.Context, postID string) (content.PostMetrics, error)

	// UserPosts returns up to limit of the account's recent posts.
	UserPosts(ctx context.Context, limit int) ([]UserPost, error)

	Close() error
}

// MockSocialClient simulates the social platform with deterministic
// pseudo-random data. Safe for concurrent use.
type MockSocialClient struct {
	mu        sync.Mutex
	rng       *rand.Rand
	followers int
	counter   int
	posts     []UserPost
}

var _ SocialClient = (*MockSocialClient)(nil)

// NewMockSocialClient returns a mock seeded for reproducible runs.
func NewMockSocialClient(initialFollowers int) *MockSocialClient {
	return &MockSocialClient{
		rng:       rand.New(rand.NewSource(int64(initialFollowers) + 1)),
		followers: initialFollowers,
	}
}

func (m *MockSocialClient) FollowerCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followers += m.rng.Intn(4)
	return m.followers, nil
}

func (m *MockSocialClient) PublishPost(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	id := fmt.Sprintf("mock_%d_%s", m.counter, time.Now().UTC().Format("20060102150405"))
	m.posts = append(m.posts, UserPost{ID: id, Text: text, Timestamp: time.Now().UTC()})
	return id, nil
}

func (m *MockSocialClient) PostMetrics(ctx context.Context, postID string) (content.PostMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	views := 50 + m.rng.Intn(4951)
	metrics := content.PostMetrics{
		PostID:      postID,
		Views:       views,
		Likes:       int(float64(views) * (0.02 + m.rng.Float64()*0.13)),
		Replies:     int(float64(views) * (0.005 + m.rng.Float64()*0.025)),
		Reposts:     int(float64(views) * (0.002 + m.rng.Float64()*0.018)),
		Quotes:      int(float64(views) * (0.001 + m.rng.Float64()*0.009)),
		CollectedAt: time.Now().UTC(),
	}
	metrics.EngagementRate = metrics.ComputeEngagementRate()
	return metrics, nil
}

func (m *MockSocialClient) UserPosts(ctx context.Context, limit int) ([]UserPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.posts) {
		limit = len(m.posts)
	}
	out := make([]UserPost, limit)
	copy(out, m.posts[len(m.posts)-limit:])
	return out, nil
}

func (m *MockSocialClient) Close() error { return nil }

// NewSocialClient returns the real client in production, the mock otherwise.
func NewSocialClient(cfg *config.Config) (SocialClient, error) {
	if !cfg.Core.IsProduction() {
		return NewMockSocialClient(12), nil
	}
	if cfg.Platform.AccessToken == "" {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED,
			"platform access token is required in production")
	}
	return NewThreadsClient(cfg.Platform.AccessToken, cfg.Platform.UserID), nil
}
