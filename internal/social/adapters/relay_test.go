// path: internal/social/adapters/relay_test.go
package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/social"
)

func newTestAdapter(serverURL string) *RelayAdapter {
	return NewRelayAdapter(serverURL, "test_key", []content.Platform{content.PlatformInstagram, content.PlatformTikTok})
}

func TestRelayAdapter_SupportedPlatforms(t *testing.T) {
	adapter := newTestAdapter("http://localhost")
	platforms := adapter.SupportedPlatforms()
	if len(platforms) != 2 {
		t.Fatalf("expected 2 platforms, got %d", len(platforms))
	}
	if adapter.SupportsScheduling() {
		t.Error("relay adapter must not claim native scheduling")
	}
}

func TestRelayAdapter_PublishComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("relay-api-key") != "test_key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path == "/posts" && r.Method == http.MethodPost {
			var req map[string]interface{}
			json.NewDecoder(r.Body).Decode(&req)
			if req["platform"] != "instagram" {
				t.Errorf("expected platform instagram, got %v", req["platform"])
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"submissionId": "sub-1",
				"status":       "complete",
				"postId":       "ig-777",
				"publicUrl":    "https://instagram.com/p/777",
				"publishedAt":  "2025-06-01T09:00:00Z",
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	result, err := adapter.Publish(context.Background(), &social.PublishRequest{
		VariantID: uuid.New(),
		Platform:  content.PlatformInstagram,
		MediaURLs: []string{"https://cdn.example.com/v.mp4"},
		Caption:   "hello",
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if result.PlatformPostID != "ig-777" {
		t.Errorf("expected post id ig-777, got %s", result.PlatformPostID)
	}
	if !strings.Contains(result.PlatformURL, "instagram.com") {
		t.Errorf("unexpected URL %s", result.PlatformURL)
	}
}

func TestRelayAdapter_PublishPendingIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"submissionId": "sub-2",
			"status":       "processing",
		})
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	_, err := adapter.Publish(context.Background(), &social.PublishRequest{
		VariantID: uuid.New(),
		Platform:  content.PlatformInstagram,
	})
	if err == nil {
		t.Fatal("expected error for pending submission")
	}
	if !common.IsTransient(err) {
		t.Errorf("expected transient classification, got %v", err)
	}
}

func TestRelayAdapter_AuthErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	_, err := adapter.Publish(context.Background(), &social.PublishRequest{
		VariantID: uuid.New(),
		Platform:  content.PlatformInstagram,
	})
	if !common.IsAuthExpired(err) {
		t.Errorf("expected auth expired classification, got %v", err)
	}
}

func TestRelayAdapter_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	_, err := adapter.FetchMetrics(context.Background(), content.PlatformInstagram, "ig-1")
	if !common.IsTransient(err) {
		t.Errorf("expected transient classification, got %v", err)
	}
}

func TestRelayAdapter_FetchMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/analytics/instagram/ig-777") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"views": 1200, "likes": 88, "comments": 7, "shares": 3,
			"watchTimeSeconds": 14.25,
		})
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	m, err := adapter.FetchMetrics(context.Background(), content.PlatformInstagram, "ig-777")
	if err != nil {
		t.Fatalf("FetchMetrics failed: %v", err)
	}
	if m.Views != 1200 || m.Likes != 88 {
		t.Errorf("unexpected metrics: %+v", m)
	}
	if m.WatchTimeS == nil || *m.WatchTimeS != 14.25 {
		t.Errorf("expected watch time 14.25, got %v", m.WatchTimeS)
	}
}

func TestRelayAdapter_FetchMetricsProcessingReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"processing": true})
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	m, err := adapter.FetchMetrics(context.Background(), content.PlatformInstagram, "ig-1")
	if err != nil {
		t.Fatalf("FetchMetrics failed: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil while processing, got %+v", m)
	}
}

func TestRelayAdapter_LookupRecent(t *testing.T) {
	variantID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/posts/by-external/"+variantID.String() {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "published", "postId": "ig-42",
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	postID, found, err := adapter.LookupRecent(context.Background(), variantID)
	if err != nil {
		t.Fatalf("LookupRecent failed: %v", err)
	}
	if !found || postID != "ig-42" {
		t.Errorf("expected ig-42 found, got %q found=%v", postID, found)
	}
}

func TestRelayAdapter_FetchComments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"comments": []map[string]interface{}{
				{"authorHandle": "@alice", "text": "love it", "createdAt": "2025-06-01T10:00:00Z"},
			},
			"nextCursor": "page2",
		})
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	page, err := adapter.FetchComments(context.Background(), content.PlatformInstagram, "ig-777", nil, "")
	if err != nil {
		t.Fatalf("FetchComments failed: %v", err)
	}
	if len(page.Comments) != 1 || page.Comments[0].AuthorHandle != "@alice" {
		t.Errorf("unexpected comments: %+v", page.Comments)
	}
	if page.NextCursor != "page2" {
		t.Errorf("expected cursor page2, got %s", page.NextCursor)
	}
}
