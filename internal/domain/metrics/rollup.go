// path: internal/domain/metrics/rollup.go
package metrics

import (
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

// Rollup is the latest aggregate across a content item's variants. Derived
// state: rebuildable from snapshots at any time, never user-mutated.
type Rollup struct {
	ContentID        uuid.UUID
	TotalViews       int64
	TotalImpressions int64
	TotalLikes       int64
	TotalComments    int64
	TotalShares      int64
	TotalSaves       int64
	TotalClicks      int64
	AvgWatchTimeS    *float64
	BestPlatform     *content.Platform
	LastUpdatedAt    time.Time
}

// Recompute builds a rollup from the latest snapshot per variant. Platforms
// tie on views lexicographically by platform id so recomputes are stable.
func Recompute(contentID uuid.UUID, latest map[content.Platform]*Snapshot, now time.Time) *Rollup {
	r := &Rollup{ContentID: contentID, LastUpdatedAt: now.UTC()}

	var watchSum float64
	var watchN int
	var best *content.Platform
	var bestViews int64 = -1

	for platform, s := range latest {
		if s == nil {
			continue
		}
		r.TotalViews += s.Views
		r.TotalLikes += s.Likes
		r.TotalComments += s.Comments
		r.TotalShares += s.Shares
		if s.Impressions != nil {
			r.TotalImpressions += *s.Impressions
		}
		if s.Saves != nil {
			r.TotalSaves += *s.Saves
		}
		if s.Clicks != nil {
			r.TotalClicks += *s.Clicks
		}
		if s.WatchTimeS != nil {
			watchSum += *s.WatchTimeS
			watchN++
		}
		p := platform
		if s.Views > bestViews || (s.Views == bestViews && best != nil && string(p) < string(*best)) {
			best = &p
			bestViews = s.Views
		}
	}

	if watchN > 0 {
		avg := watchSum / float64(watchN)
		r.AvgWatchTimeS = &avg
	}
	r.BestPlatform = best
	return r
}
