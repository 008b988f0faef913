// path: internal/dispatcher/reaper.go
package dispatcher

import (
	"context"
	"fmt"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/domain/queue"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/services"
)

// Reaper promotes leased items whose lease expired back to queued. The lease
// timed out, not the work, so no attempt is charged.
type Reaper struct {
	queue   queue.Repository
	logger  common.Logger
	clk     clock.Clock
	metrics *services.EngineMetrics
}

// NewReaper creates a lease reaper.
func NewReaper(q queue.Repository, logger common.Logger, clk clock.Clock, metrics *services.EngineMetrics) *Reaper {
	return &Reaper{queue: q, logger: logger, clk: clk, metrics: metrics}
}

// Sweep reclaims expired leases once.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	n, err := r.queue.ExpireLeases(ctx, r.clk.Now())
	if err != nil {
		return 0, fmt.Errorf("expiring leases: %w", err)
	}
	if n > 0 {
		r.metrics.LeasesExpired.Add(float64(n))
		r.logger.Warn("reclaimed expired leases", "count", n)
	}
	return n, nil
}
