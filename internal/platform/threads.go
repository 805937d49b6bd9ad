package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kgarbacinski/AutoViralAI/internal/content"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

const threadsBaseURL = "https://graph.threads.net/v1.0"

// containerPollAttempts bounds how long a publish waits for the media
// container to finish processing.
const containerPollAttempts = 10

// ThreadsClient talks to the Threads Graph API. Publishing is a two-phase
// flow: create a media container, poll it until FINISHED, then publish it.
type ThreadsClient struct {
	accessToken string
	userID      string
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ SocialClient = (*ThreadsClient)(nil)

// ThreadsOption configures a ThreadsClient.
type ThreadsOption func(*ThreadsClient)

// WithThreadsHTTPClient overrides the HTTP client, mainly for tests.
func WithThreadsHTTPClient(c *http.Client) ThreadsOption {
	return func(t *ThreadsClient) { t.httpClient = c }
}

// WithThreadsBaseURL overrides the API endpoint, mainly for tests.
func WithThreadsBaseURL(u string) ThreadsOption {
	return func(t *ThreadsClient) { t.baseURL = u }
}

// WithThreadsLogger sets the logger.
func WithThreadsLogger(l *slog.Logger) ThreadsOption {
	return func(t *ThreadsClient) { t.logger = l }
}

// NewThreadsClient creates a client for the given account credentials.
func NewThreadsClient(accessToken, userID string, opts ...ThreadsOption) *ThreadsClient {
	t := &ThreadsClient{
		accessToken: accessToken,
		userID:      userID,
		baseURL:     threadsBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *ThreadsClient) FollowerCount(ctx context.Context) (int, error) {
	var out struct {
		Data []struct {
			TotalValue struct {
				Value int `json:"value"`
			} `json:"total_value"`
		} `json:"data"`
	}
	params := url.Values{"metric": {"followers_count"}}
	if err := t.get(ctx, fmt.Sprintf("%s/threads_insights", t.userID), params, &out); err != nil {
		return 0, err
	}
	if len(out.Data) == 0 {
		return 0, nil
	}
	return out.Data[0].TotalValue.Value, nil
}

func (t *ThreadsClient) PublishPost(ctx context.Context, text string) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	params := url.Values{"media_type": {"TEXT"}, "text": {text}}
	if err := t.post(ctx, fmt.Sprintf("%s/threads", t.userID), params, &created); err != nil {
		return "", types.WrapError(types.PUBLISH_FAILED, "failed to create media container", err)
	}

	if err := t.waitForContainer(ctx, created.ID); err != nil {
		return "", err
	}

	var published struct {
		ID string `json:"id"`
	}
	params = url.Values{"creation_id": {created.ID}}
	if err := t.post(ctx, fmt.Sprintf("%s/threads_publish", t.userID), params, &published); err != nil {
		return "", types.WrapError(types.PUBLISH_FAILED, "failed to publish container", err)
	}
	return published.ID, nil
}

// waitForContainer polls the container status with exponential backoff until
// it reports FINISHED.
func (t *ThreadsClient) waitForContainer(ctx context.Context, containerID string) error {
	delay := time.Second
	for attempt := 1; attempt <= containerPollAttempts; attempt++ {
		var status struct {
			Status       string `json:"status"`
			ErrorMessage string `json:"error_message"`
		}
		params := url.Values{"fields": {"status"}}
		if err := t.get(ctx, containerID, params, &status); err != nil {
			return types.WrapError(types.PUBLISH_FAILED, "failed to poll container status", err)
		}

		t.logger.Info("container status",
			"container_id", containerID,
			"status", status.Status,
			"attempt", attempt,
		)

		switch status.Status {
		case "FINISHED":
			return nil
		case "ERROR":
			msg := status.ErrorMessage
			if msg == "" {
				msg = "unknown error"
			}
			return types.NewErrorf(types.PUBLISH_FAILED, "container %s failed: %s", containerID, msg)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < 10*time.Second {
			delay *= 2
		}
	}
	return types.NewErrorf(types.PUBLISH_CONTAINER_TIMEOUT,
		"container %s did not finish after %d attempts", containerID, containerPollAttempts)
}

func (t *ThreadsClient) PostMetrics(ctx context.Context, postID string) (content.PostMetrics, error) {
	var out struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	params := url.Values{"metric": {"views,likes,replies,reposts,quotes"}}
	if err := t.get(ctx, fmt.Sprintf("%s/insights", postID), params, &out); err != nil {
		return content.PostMetrics{}, err
	}

	metrics := content.PostMetrics{PostID: postID, CollectedAt: time.Now().UTC()}
	for _, item := range out.Data {
		if len(item.Values) == 0 {
			continue
		}
		v := item.Values[0].Value
		switch item.Name {
		case "views":
			metrics.Views = v
		case "likes":
			metrics.Likes = v
		case "replies":
			metrics.Replies = v
		case "reposts":
			metrics.Reposts = v
		case "quotes":
			metrics.Quotes = v
		}
	}
	metrics.EngagementRate = metrics.ComputeEngagementRate()
	return metrics, nil
}

func (t *ThreadsClient) UserPosts(ctx context.Context, limit int) ([]UserPost, error) {
	var out struct {
		Data []struct {
			ID        string    `json:"id"`
			Text      string    `json:"text"`
			Timestamp time.Time `json:"timestamp"`
		} `json:"data"`
	}
	params := url.Values{
		"fields": {"id,text,timestamp"},
		"limit":  {strconv.Itoa(limit)},
	}
	if err := t.get(ctx, fmt.Sprintf("%s/threads", t.userID), params, &out); err != nil {
		return nil, err
	}
	posts := make([]UserPost, 0, len(out.Data))
	for _, p := range out.Data {
		posts = append(posts, UserPost{ID: p.ID, Text: p.Text, Timestamp: p.Timestamp})
	}
	return posts, nil
}

func (t *ThreadsClient) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

func (t *ThreadsClient) get(ctx context.Context, path string, params url.Values, out any) error {
	return t.do(ctx, http.MethodGet, path, params, out)
}

func (t *ThreadsClient) post(ctx context.Context, path string, params url.Values, out any) error {
	return t.do(ctx, http.MethodPost, path, params, out)
}

func (t *ThreadsClient) do(ctx context.Context, method, path string, params url.Values, out any) error {
	params.Set("access_token", t.accessToken)
	endpoint := fmt.Sprintf("%s/%s?%s", t.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("threads API %s %s: status %d: %s", method, path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
