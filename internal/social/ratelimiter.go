// path: internal/social/ratelimiter.go
package social

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

// RateLimiter manages per-platform token buckets built from each adapter's
// advertised limits. Buckets are worker-local and rebuilt on startup.
type RateLimiter struct {
	registry *Registry
	limiters map[content.Platform]*rate.Limiter
	mu       sync.RWMutex
}

// NewRateLimiter creates a rate limiter over the registry's adapters.
func NewRateLimiter(registry *Registry) *RateLimiter {
	return &RateLimiter{
		registry: registry,
		limiters: make(map[content.Platform]*rate.Limiter),
	}
}

func (rl *RateLimiter) limiterFor(platform content.Platform) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[platform]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists := rl.limiters[platform]; exists {
		return limiter
	}

	// Default: 60 requests per minute, burst 10.
	r := rate.Every(time.Minute / 60)
	burst := 10

	if adapter, err := rl.registry.Get(platform); err == nil {
		if limit, ok := adapter.RateLimits()["default"]; ok && limit.Requests > 0 && limit.Per > 0 {
			r = rate.Every(limit.Per / time.Duration(limit.Requests))
			if limit.Burst > 0 {
				burst = limit.Burst
			}
		}
	}

	limiter = rate.NewLimiter(r, burst)
	rl.limiters[platform] = limiter
	return limiter
}

// Wait blocks until the platform's bucket allows one request.
func (rl *RateLimiter) Wait(ctx context.Context, platform content.Platform) error {
	return rl.limiterFor(platform).Wait(ctx)
}

// Allow checks the bucket without blocking.
func (rl *RateLimiter) Allow(platform content.Platform) bool {
	return rl.limiterFor(platform).Allow()
}
