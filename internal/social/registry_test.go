// path: internal/social/registry_test.go
package social

import (
	"context"
	"testing"
	"time"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

type stubAdapter struct {
	id        string
	platforms []content.Platform
}

func (a *stubAdapter) ID() string          { return a.id }
func (a *stubAdapter) DisplayName() string { return a.id }
func (a *stubAdapter) SupportedPlatforms() []content.Platform {
	return a.platforms
}
func (a *stubAdapter) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	return &PublishResult{PlatformPostID: "stub"}, nil
}
func (a *stubAdapter) FetchMetrics(ctx context.Context, platform content.Platform, platformPostID string) (*MetricsResult, error) {
	return nil, nil
}
func (a *stubAdapter) FetchComments(ctx context.Context, platform content.Platform, platformPostID string, since *time.Time, cursor string) (*CommentsPage, error) {
	return &CommentsPage{}, nil
}
func (a *stubAdapter) SupportsScheduling() bool { return false }
func (a *stubAdapter) RateLimits() map[string]RateLimit {
	return map[string]RateLimit{"default": {Requests: 10, Per: time.Second, Burst: 2}}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	adapter := &stubAdapter{id: "a", platforms: []content.Platform{content.PlatformInstagram}}

	if err := r.Register(adapter); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := r.Get(content.PlatformInstagram)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID() != "a" {
		t.Errorf("expected adapter a, got %s", got.ID())
	}
}

func TestRegistry_CollisionIsError(t *testing.T) {
	r := NewRegistry()
	platforms := []content.Platform{content.PlatformTikTok}

	if err := r.Register(&stubAdapter{id: "a", platforms: platforms}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register(&stubAdapter{id: "b", platforms: platforms}); err == nil {
		t.Fatal("expected collision error, got nil")
	}
}

func TestRegistry_UnknownPlatform(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(content.PlatformYouTube); err == nil {
		t.Fatal("expected error for unregistered platform")
	}
}

func TestRegistry_DisableEnable(t *testing.T) {
	r := NewRegistry()
	adapter := &stubAdapter{id: "a", platforms: []content.Platform{content.PlatformInstagram}}
	if err := r.Register(adapter); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	r.Disable(content.PlatformInstagram)
	if _, err := r.Get(content.PlatformInstagram); err == nil {
		t.Fatal("expected disabled adapter error")
	}
	if !r.IsDisabled(content.PlatformInstagram) {
		t.Error("expected platform to report disabled")
	}

	r.Enable(content.PlatformInstagram)
	if _, err := r.Get(content.PlatformInstagram); err != nil {
		t.Fatalf("expected adapter back after enable: %v", err)
	}
}

func TestRegistry_NoPlatformsRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubAdapter{id: "empty"}); err == nil {
		t.Fatal("expected error for adapter with no platforms")
	}
}
