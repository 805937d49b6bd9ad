package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kgarbacinski/AutoViralAI/internal/config"
	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// Scraper discovers viral posts on the social platform by hashtag.
type Scraper interface {
	ScrapeViralPosts(ctx context.Context, hashtags []string, limit int) ([]content.ViralPost, error)
}

// MockScraper returns a fixed set of sample viral posts.
type MockScraper struct{}

var _ Scraper = (*MockScraper)(nil)

func (MockScraper) ScrapeViralPosts(ctx context.Context, hashtags []string, limit int) ([]content.ViralPost, error) {
	posts := []content.ViralPost{
		{
			Platform:       "threads",
			Author:         "@techbro",
			Content:        "Python in 2025:\n\n- uv replaced pip\n- Pydantic replaced dataclasses\n- FastAPI replaced Flask\n- Ruff replaced black+isort+flake8\n\nThe ecosystem moves fast. Adapt or get left behind.",
			Likes:          12500,
			Replies:        890,
			Reposts:        3200,
			Views:          450000,
			EngagementRate: 0.037,
			TopicTags:      []string{"python", "tools"},
		},
		{
			Platform:       "threads",
			Author:         "@devinsights",
			Content:        "Stop saying 'I'm not a real developer because I use AI tools.'\n\nPilots use autopilot.\nDoctors use diagnostic AI.\nAccountants use calculators.\n\nUsing tools doesn't make you less skilled. It makes you more effective.",
			Likes:          28900,
			Replies:        2100,
			Reposts:        8400,
			Views:          1200000,
			EngagementRate: 0.033,
			TopicTags:      []string{"ai", "career"},
		},
		{
			Platform:       "threads",
			Author:         "@startuplessons",
			Content:        "My side project made $0 for 11 months.\n\nMonth 12: $47\nMonth 13: $340\nMonth 14: $1,200\nMonth 18: $8,500/mo\n\nThe growth was never linear. Most people quit during the $0 months.\n\nDon't be most people.",
			Likes:          45000,
			Replies:        3400,
			Reposts:        12000,
			Views:          2000000,
			EngagementRate: 0.030,
			TopicTags:      []string{"startup", "motivation"},
		},
	}
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts, nil
}

const actorAPIBaseURL = "https://api.apify.com/v2"

// ActorScraper runs a hosted scraper actor synchronously and maps its dataset
// items into viral posts.
type ActorScraper struct {
	apiToken   string
	actorID    string
	baseURL    string
	httpClient *http.Client
}

var _ Scraper = (*ActorScraper)(nil)

// NewActorScraper creates the real hashtag scraper.
func NewActorScraper(apiToken string) *ActorScraper {
	return &ActorScraper{
		apiToken:   apiToken,
		actorID:    "apify~threads-scraper",
		baseURL:    actorAPIBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *ActorScraper) ScrapeViralPosts(ctx context.Context, hashtags []string, limit int) ([]content.ViralPost, error) {
	input := map[string]any{
		"hashtags":     hashtags,
		"resultsLimit": limit,
		"sortBy":       "popular",
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?token=%s",
		s.baseURL, s.actorID, s.apiToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("scraper actor run: status %d", resp.StatusCode)
	}

	var items []struct {
		Author struct {
			Username string `json:"username"`
		} `json:"author"`
		Text    string `json:"text"`
		URL     string `json:"url"`
		Likes   int    `json:"likes"`
		Replies int    `json:"replies"`
		Reposts int    `json:"reposts"`
		Views   int    `json:"views"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}

	posts := make([]content.ViralPost, 0, len(items))
	for _, item := range items {
		author := item.Author.Username
		if author == "" {
			author = "unknown"
		}
		posts = append(posts, content.ViralPost{
			Platform: "threads",
			Author:   author,
			Content:  item.Text,
			URL:      item.URL,
			Likes:    item.Likes,
			Replies:  item.Replies,
			Reposts:  item.Reposts,
			Views:    item.Views,
		})
	}
	return posts, nil
}

// NewScraper returns the real scraper in production, the mock otherwise.
func NewScraper(cfg *config.Config) (Scraper, error) {
	if !cfg.Core.IsProduction() {
		return &MockScraper{}, nil
	}
	if cfg.Platform.ScraperToken == "" {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED,
			"scraper token is required in production")
	}
	return NewActorScraper(cfg.Platform.ScraperToken), nil
}
