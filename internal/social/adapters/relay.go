// path: internal/social/adapters/relay.go
// Reference adapter that publishes through an HTTP relay service. The relay
// fronts many platforms behind one API-key-authenticated surface, so one
// adapter instance can serve several platform ids.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/social"
)

const relayAPIKeyHeader = "relay-api-key"

// RelayAdapter implements social.Adapter against a relay service.
type RelayAdapter struct {
	baseURL    string
	apiKey     string
	platforms  []content.Platform
	httpClient *http.Client
}

// NewRelayAdapter creates a relay adapter serving the given platforms.
func NewRelayAdapter(baseURL, apiKey string, platforms []content.Platform) *RelayAdapter {
	return &RelayAdapter{
		baseURL:   baseURL,
		apiKey:    apiKey,
		platforms: platforms,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (a *RelayAdapter) ID() string          { return "relay" }
func (a *RelayAdapter) DisplayName() string { return "HTTP Relay" }

func (a *RelayAdapter) SupportedPlatforms() []content.Platform {
	out := make([]content.Platform, len(a.platforms))
	copy(out, a.platforms)
	return out
}

func (a *RelayAdapter) SupportsScheduling() bool { return false }

func (a *RelayAdapter) RateLimits() map[string]social.RateLimit {
	return map[string]social.RateLimit{
		"default": {Requests: 60, Per: time.Minute, Burst: 10},
	}
}

type relayPublishRequest struct {
	Platform       string                 `json:"platform"`
	ExternalID     string                 `json:"externalId"`
	MediaURLs      []string               `json:"mediaUrls"`
	Caption        string                 `json:"caption"`
	Hashtags       []string               `json:"hashtags,omitempty"`
	IdempotencyKey string                 `json:"idempotencyKey,omitempty"`
	Options        map[string]interface{} `json:"options,omitempty"`
}

type relaySubmission struct {
	SubmissionID string `json:"submissionId"`
	Status       string `json:"status"`
	PostID       string `json:"postId"`
	PublicURL    string `json:"publicUrl"`
	PublishedAt  string `json:"publishedAt"`
	Error        string `json:"error"`
	ExternalID   string `json:"externalId"`
}

// Publish submits the post and reads back the submission state. The relay
// resolves idempotency keys server-side, so a retried submit returns the
// original submission.
func (a *RelayAdapter) Publish(ctx context.Context, req *social.PublishRequest) (*social.PublishResult, error) {
	body := relayPublishRequest{
		Platform:       string(req.Platform),
		ExternalID:     req.VariantID.String(),
		MediaURLs:      req.MediaURLs,
		Caption:        req.Caption,
		Hashtags:       req.Hashtags,
		IdempotencyKey: req.IdempotencyKey,
		Options:        req.Metadata,
	}

	var sub relaySubmission
	if err := a.do(ctx, http.MethodPost, "/posts", body, &sub); err != nil {
		return nil, err
	}

	switch sub.Status {
	case "complete", "published":
		return a.toResult(&sub)
	case "failed", "error":
		return nil, social.ClassifyHTTP(http.StatusUnprocessableEntity, sub.Error)
	default:
		// Queued or processing on the relay side. The dispatcher treats this
		// as transient and the idempotency key makes the retry safe.
		return nil, common.Transient(fmt.Errorf("relay submission %s still %s: %w", sub.SubmissionID, sub.Status, social.ErrPostStillPending))
	}
}

// LookupRecent polls the relay's submission index for the variant; used for
// publish idempotency when an earlier attempt ended ambiguously.
func (a *RelayAdapter) LookupRecent(ctx context.Context, variantID uuid.UUID) (string, bool, error) {
	var sub relaySubmission
	err := a.do(ctx, http.MethodGet, "/posts/by-external/"+variantID.String(), nil, &sub)
	if err != nil {
		return "", false, err
	}
	if (sub.Status == "complete" || sub.Status == "published") && sub.PostID != "" {
		return sub.PostID, true, nil
	}
	return "", false, nil
}

type relayMetrics struct {
	Views       int64    `json:"views"`
	Impressions *int64   `json:"impressions"`
	Likes       int64    `json:"likes"`
	Comments    int64    `json:"comments"`
	Shares      int64    `json:"shares"`
	Saves       *int64   `json:"saves"`
	Clicks      *int64   `json:"clicks"`
	WatchTimeS  *float64 `json:"watchTimeSeconds"`
	Processing  bool     `json:"processing"`
}

func (a *RelayAdapter) FetchMetrics(ctx context.Context, platform content.Platform, platformPostID string) (*social.MetricsResult, error) {
	var raw json.RawMessage
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf("/analytics/%s/%s", platform, platformPostID), nil, &raw); err != nil {
		return nil, err
	}

	var m relayMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding relay metrics: %w", err)
	}
	if m.Processing {
		return nil, nil
	}

	return &social.MetricsResult{
		Views:       m.Views,
		Impressions: m.Impressions,
		Likes:       m.Likes,
		Comments:    m.Comments,
		Shares:      m.Shares,
		Saves:       m.Saves,
		Clicks:      m.Clicks,
		WatchTimeS:  m.WatchTimeS,
		Raw:         raw,
	}, nil
}

type relayCommentsPage struct {
	Comments []struct {
		AuthorHandle string    `json:"authorHandle"`
		AuthorName   string    `json:"authorName"`
		Text         string    `json:"text"`
		CreatedAt    time.Time `json:"createdAt"`
	} `json:"comments"`
	NextCursor string `json:"nextCursor"`
}

func (a *RelayAdapter) FetchComments(ctx context.Context, platform content.Platform, platformPostID string, since *time.Time, cursor string) (*social.CommentsPage, error) {
	path := fmt.Sprintf("/comments/%s/%s", platform, platformPostID)
	sep := "?"
	if since != nil {
		path += sep + "since=" + since.UTC().Format(time.RFC3339)
		sep = "&"
	}
	if cursor != "" {
		path += sep + "cursor=" + cursor
	}

	var page relayCommentsPage
	if err := a.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}

	out := &social.CommentsPage{NextCursor: page.NextCursor}
	for _, c := range page.Comments {
		out.Comments = append(out.Comments, social.CommentRecord{
			AuthorHandle: c.AuthorHandle,
			AuthorName:   c.AuthorName,
			Text:         c.Text,
			CreatedAt:    c.CreatedAt,
		})
	}
	return out, nil
}

func (a *RelayAdapter) toResult(sub *relaySubmission) (*social.PublishResult, error) {
	publishedAt := time.Now().UTC()
	if sub.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, sub.PublishedAt); err == nil {
			publishedAt = t.UTC()
		}
	}
	if sub.PostID == "" {
		return nil, social.ClassifyHTTP(http.StatusBadGateway, "relay reported success without a post id")
	}
	return &social.PublishResult{
		PlatformPostID: sub.PostID,
		PlatformURL:    sub.PublicURL,
		PublishedAt:    publishedAt,
	}, nil
}

func (a *RelayAdapter) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding relay request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building relay request: %w", err)
	}
	req.Header.Set(relayAPIKeyHeader, a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return social.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return social.ClassifyTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return social.ClassifyHTTP(resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding relay response: %w", err)
		}
	}
	return nil
}
