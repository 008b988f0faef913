// ============================================================================
// FILE: internal/infrastructure/services/workspace_lock.go
// PURPOSE: Redis advisory lock serializing scheduler runs per workspace
// ============================================================================
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
)

const lockKeyPrefix = "lock:scheduler:"

// WorkspaceLock implements common.AdvisoryLock with SET NX and a fencing
// token so only the holder can release.
type WorkspaceLock struct {
	client *redis.Client
}

// NewWorkspaceLock creates the lock service.
func NewWorkspaceLock(client *redis.Client) common.AdvisoryLock {
	return &WorkspaceLock{client: client}
}

func (l *WorkspaceLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	fullKey := lockKeyPrefix + key

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: scheduler already running for %s", common.ErrConflict, key)
	}

	release := func() {
		// Release only if we still hold it; an expired lock may belong to
		// someone else by now.
		script := redis.NewScript(`
			if redis.call("GET", KEYS[1]) == ARGV[1] then
				return redis.call("DEL", KEYS[1])
			end
			return 0
		`)
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = script.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
	}
	return release, nil
}
