// path: internal/social/registry.go
package social

import (
	"fmt"
	"sync"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

// Registry manages all registered platform adapters. Exactly one enabled
// adapter per platform; collisions are startup errors.
type Registry struct {
	byPlatform map[content.Platform]Adapter
	disabled   map[content.Platform]bool
	mu         sync.RWMutex
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		byPlatform: make(map[content.Platform]Adapter),
		disabled:   make(map[content.Platform]bool),
	}
}

// Register adds an adapter under every platform it supports.
func (r *Registry) Register(adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	platforms := adapter.SupportedPlatforms()
	if len(platforms) == 0 {
		return fmt.Errorf("adapter %s supports no platforms", adapter.ID())
	}
	for _, p := range platforms {
		if existing, exists := r.byPlatform[p]; exists {
			return fmt.Errorf("%w: %s claimed by %s and %s", ErrAdapterCollision, p, existing.ID(), adapter.ID())
		}
	}
	for _, p := range platforms {
		r.byPlatform[p] = adapter
	}
	return nil
}

// Get resolves the enabled adapter for a platform.
func (r *Registry) Get(platform content.Platform) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.byPlatform[platform]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, platform)
	}
	if r.disabled[platform] {
		return nil, fmt.Errorf("%w: %s", ErrAdapterDisabled, platform)
	}
	return adapter, nil
}

// Disable takes a platform's adapter out of rotation (expired credentials).
// Queued work for the platform is preserved; only dispatch stops.
func (r *Registry) Disable(platform content.Platform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[platform] = true
}

// Enable returns a platform's adapter to rotation.
func (r *Registry) Enable(platform content.Platform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.disabled, platform)
}

// IsDisabled reports whether a platform's adapter is out of rotation.
func (r *Registry) IsDisabled(platform content.Platform) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disabled[platform]
}

// ListPlatforms returns all registered platform ids.
func (r *Registry) ListPlatforms() []content.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := make([]content.Platform, 0, len(r.byPlatform))
	for p := range r.byPlatform {
		platforms = append(platforms, p)
	}
	return platforms
}
