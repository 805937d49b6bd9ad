package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kgarbacinski/AutoViralAI/internal/config"
	"github.com/kgarbacinski/AutoViralAI/internal/content"
)

const hackerNewsBaseURL = "https://hacker-news.firebaseio.com/v0"

// minStoryScore filters out stories that never gained traction.
const minStoryScore = 50

// NewsClient discovers viral tech content for the research node.
type NewsClient interface {
	ViralPosts(ctx context.Context, limit int) ([]content.ViralPost, error)
	Close() error
}

// MockNewsClient returns a fixed set of sample stories and submissions.
type MockNewsClient struct{}

var _ NewsClient = (*MockNewsClient)(nil)

func (MockNewsClient) ViralPosts(ctx context.Context, limit int) ([]content.ViralPost, error) {
	posts := []content.ViralPost{
		{
			Platform:  "hackernews",
			Author:    "pg",
			Content:   "Show HN: A new way to build web apps with AI",
			URL:       "https://news.ycombinator.com/item?id=1",
			Likes:     350,
			Replies:   120,
			TopicTags: []string{"webdev", "ai"},
		},
		{
			Platform:  "hackernews",
			Author:    "dang",
			Content:   "Why Rust is taking over systems programming",
			URL:       "https://news.ycombinator.com/item?id=2",
			Likes:     275,
			Replies:   89,
			TopicTags: []string{"rust", "systems"},
		},
		{
			Platform:  "reddit",
			Author:    "u/techdev42",
			Content:   "Hot take: Most developers don't need microservices. A well-structured monolith handles 99% of use cases better. Stop overengineering.",
			URL:       "https://reddit.com/r/programming/mock1",
			Likes:     2847,
			Replies:   432,
			TopicTags: []string{"architecture", "hot_take"},
		},
		{
			Platform:  "reddit",
			Author:    "u/senior_dev",
			Content:   "The best debugging technique nobody talks about: explain your code to a rubber duck. Sounds stupid. Works every time.",
			URL:       "https://reddit.com/r/programming/mock4",
			Likes:     4210,
			Replies:   356,
			TopicTags: []string{"debugging", "practical_tip"},
		},
	}
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts, nil
}

func (MockNewsClient) Close() error { return nil }

// HackerNewsClient fetches top and best stories from the public
// Firebase-backed Hacker News API. No auth required.
type HackerNewsClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ NewsClient = (*HackerNewsClient)(nil)

// NewsOption configures a HackerNewsClient.
type NewsOption func(*HackerNewsClient)

// WithNewsBaseURL overrides the API endpoint, mainly for tests.
func WithNewsBaseURL(u string) NewsOption {
	return func(h *HackerNewsClient) { h.baseURL = u }
}

// WithNewsHTTPClient overrides the HTTP client.
func WithNewsHTTPClient(c *http.Client) NewsOption {
	return func(h *HackerNewsClient) { h.httpClient = c }
}

// WithNewsLogger sets the logger.
func WithNewsLogger(l *slog.Logger) NewsOption {
	return func(h *HackerNewsClient) { h.logger = l }
}

// NewHackerNewsClient creates a real Hacker News client.
func NewHackerNewsClient(opts ...NewsOption) *HackerNewsClient {
	h := &HackerNewsClient{
		baseURL:    hackerNewsBaseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type hnStory struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

// ViralPosts fetches top and best story lists concurrently, deduplicates, and
// keeps stories that cleared the minimum score. A failed list fetch degrades
// to the other list; individual story failures are skipped.
func (h *HackerNewsClient) ViralPosts(ctx context.Context, limit int) ([]content.ViralPost, error) {
	if limit <= 0 {
		limit = 30
	}

	var topIDs, bestIDs []int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := h.storyIDs(gctx, "topstories")
		if err != nil {
			h.logger.Warn("failed to fetch top stories", "error", err)
			return nil
		}
		topIDs = ids
		return nil
	})
	g.Go(func() error {
		ids, err := h.storyIDs(gctx, "beststories")
		if err != nil {
			h.logger.Warn("failed to fetch best stories", "error", err)
			return nil
		}
		bestIDs = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	var ids []int
	for _, id := range append(clip(topIDs, limit), clip(bestIDs, limit)...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	ids = clip(ids, limit)

	stories := make([]*hnStory, len(ids))
	fg, fctx := errgroup.WithContext(ctx)
	fg.SetLimit(8)
	var failures atomic.Int32
	for i, id := range ids {
		fg.Go(func() error {
			story, err := h.fetchStory(fctx, id)
			if err != nil {
				failures.Add(1)
				return nil
			}
			stories[i] = story
			return nil
		})
	}
	if err := fg.Wait(); err != nil {
		return nil, err
	}

	var posts []content.ViralPost
	for _, story := range stories {
		if story == nil || story.Score < minStoryScore {
			continue
		}
		url := story.URL
		if url == "" {
			url = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
		}
		posts = append(posts, content.ViralPost{
			Platform: "hackernews",
			Author:   story.By,
			Content:  story.Title,
			URL:      url,
			Likes:    story.Score,
			Replies:  story.Descendants,
		})
	}

	if n := failures.Load(); n > 0 {
		h.logger.Warn("some story fetches failed", "failed", n, "total", len(ids))
	}
	h.logger.Info("fetched viral stories", "count", len(posts))
	return posts, nil
}

func (h *HackerNewsClient) storyIDs(ctx context.Context, list string) ([]int, error) {
	var ids []int
	if err := h.getJSON(ctx, fmt.Sprintf("%s/%s.json", h.baseURL, list), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (h *HackerNewsClient) fetchStory(ctx context.Context, id int) (*hnStory, error) {
	var story hnStory
	if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.baseURL, id), &story); err != nil {
		return nil, err
	}
	if story.Type != "story" || story.Dead || story.Deleted {
		return nil, fmt.Errorf("story %d not usable", id)
	}
	return &story, nil
}

func (h *HackerNewsClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("hackernews API: status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

func (h *HackerNewsClient) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}

func clip(ids []int, n int) []int {
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}

// NewNewsClient returns the combined real sources in production, the mock
// otherwise.
func NewNewsClient(cfg *config.Config) NewsClient {
	if cfg.Core.IsProduction() {
		return NewMultiNewsClient(NewHackerNewsClient(), NewRedditClient())
	}
	return &MockNewsClient{}
}
