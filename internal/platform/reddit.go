package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
)

const redditBaseURL = "https://www.reddit.com"

// minRedditScore filters out submissions that never gained traction.
const minRedditScore = 100

// maxSelftextRunes caps how much of a text post is carried as content.
const maxSelftextRunes = 500

// defaultSubreddits are the developer-audience communities mined when no
// niche-specific list is given.
var defaultSubreddits = []string{"programming", "webdev", "cscareerquestions", "startups", "technology"}

// RedditClient fetches top submissions of the week from the public Reddit
// JSON listings. Read-only access, no OAuth required, but Reddit expects a
// descriptive User-Agent.
type RedditClient struct {
	baseURL    string
	subreddits []string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ NewsClient = (*RedditClient)(nil)

// RedditOption configures a RedditClient.
type RedditOption func(*RedditClient)

// WithRedditBaseURL overrides the API endpoint, mainly for tests.
func WithRedditBaseURL(u string) RedditOption {
	return func(r *RedditClient) { r.baseURL = u }
}

// WithRedditSubreddits replaces the default subreddit list.
func WithRedditSubreddits(subs []string) RedditOption {
	return func(r *RedditClient) { r.subreddits = subs }
}

// WithRedditHTTPClient overrides the HTTP client.
func WithRedditHTTPClient(c *http.Client) RedditOption {
	return func(r *RedditClient) { r.httpClient = c }
}

// WithRedditLogger sets the logger.
func WithRedditLogger(l *slog.Logger) RedditOption {
	return func(r *RedditClient) { r.logger = l }
}

// NewRedditClient creates a real Reddit client.
func NewRedditClient(opts ...RedditOption) *RedditClient {
	r := &RedditClient{
		baseURL:    redditBaseURL,
		subreddits: defaultSubreddits,
		userAgent:  "autoviralai:research (by /u/autoviralai)",
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Author      string `json:"author"`
	Title       string `json:"title"`
	Selftext    string `json:"selftext"`
	IsSelf      bool   `json:"is_self"`
	Permalink   string `json:"permalink"`
	Score       int    `json:"score"`
	NumComments int    `json:"num_comments"`
	Subreddit   string `json:"subreddit"`
	Stickied    bool   `json:"stickied"`
}

// ViralPosts fetches each subreddit's weekly top listing concurrently and
// keeps submissions that cleared the minimum score. A failed subreddit
// degrades to the others.
func (r *RedditClient) ViralPosts(ctx context.Context, limit int) ([]content.ViralPost, error) {
	if limit <= 0 {
		limit = 10
	}

	var mu sync.Mutex
	var posts []content.ViralPost

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, sub := range r.subreddits {
		g.Go(func() error {
			found, err := r.topOfWeek(gctx, sub, limit)
			if err != nil {
				r.logger.Warn("failed to fetch subreddit", "subreddit", sub, "error", err)
				return nil
			}
			mu.Lock()
			posts = append(posts, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("fetched viral submissions", "count", len(posts), "subreddits", len(r.subreddits))
	return posts, nil
}

func (r *RedditClient) topOfWeek(ctx context.Context, subreddit string, limit int) ([]content.ViralPost, error) {
	endpoint := fmt.Sprintf("%s/r/%s/top.json?t=week&limit=%d", r.baseURL, subreddit, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("reddit API: status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, err
	}

	var posts []content.ViralPost
	for _, child := range listing.Data.Children {
		p := child.Data
		if p.Stickied || p.Score < minRedditScore {
			continue
		}
		text := p.Title
		if p.IsSelf && p.Selftext != "" {
			if runes := []rune(p.Selftext); len(runes) > maxSelftextRunes {
				text = string(runes[:maxSelftextRunes])
			} else {
				text = p.Selftext
			}
		}
		author := "deleted"
		if p.Author != "" {
			author = "u/" + p.Author
		}
		posts = append(posts, content.ViralPost{
			Platform:  "reddit",
			Author:    author,
			Content:   text,
			URL:       redditBaseURL + p.Permalink,
			Likes:     p.Score,
			Replies:   p.NumComments,
			TopicTags: []string{strings.ToLower(p.Subreddit)},
		})
	}
	return posts, nil
}

func (r *RedditClient) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}

// multiNewsClient fans research out to several sources. Each source
// degrades independently; the combined fetch fails only when every source
// failed.
type multiNewsClient struct {
	sources []NewsClient
	logger  *slog.Logger
}

var _ NewsClient = (*multiNewsClient)(nil)

// NewMultiNewsClient combines news sources into one NewsClient.
func NewMultiNewsClient(sources ...NewsClient) NewsClient {
	return &multiNewsClient{sources: sources, logger: slog.Default()}
}

func (m *multiNewsClient) ViralPosts(ctx context.Context, limit int) ([]content.ViralPost, error) {
	var all []content.ViralPost
	var failed int
	var lastErr error
	for _, src := range m.sources {
		posts, err := src.ViralPosts(ctx, limit)
		if err != nil {
			failed++
			lastErr = err
			m.logger.Warn("news source failed", "error", err)
			continue
		}
		all = append(all, posts...)
	}
	if len(m.sources) > 0 && failed == len(m.sources) {
		return nil, fmt.Errorf("all %d news sources failed: %w", failed, lastErr)
	}
	return all, nil
}

func (m *multiNewsClient) Close() error {
	var errs []string
	for _, src := range m.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
