// path: internal/domain/metrics/rollup_test.go
package metrics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

func snap(views, likes int64, watch *float64) *Snapshot {
	return &Snapshot{
		ID:         uuid.New(),
		VariantID:  uuid.New(),
		SnapshotAt: time.Now().UTC(),
		Views:      views,
		Likes:      likes,
		WatchTimeS: watch,
	}
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestRecompute_SumsAndBestPlatform(t *testing.T) {
	contentID := uuid.New()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	latest := map[content.Platform]*Snapshot{
		content.PlatformInstagram: snap(1000, 50, f64(12.5)),
		content.PlatformTikTok:    snap(400, 90, f64(7.5)),
	}
	latest[content.PlatformInstagram].Saves = i64(5)

	r := Recompute(contentID, latest, now)

	assert.Equal(t, int64(1400), r.TotalViews)
	assert.Equal(t, int64(140), r.TotalLikes)
	assert.Equal(t, int64(5), r.TotalSaves)
	require.NotNil(t, r.AvgWatchTimeS)
	assert.InDelta(t, 10.0, *r.AvgWatchTimeS, 0.0001)
	require.NotNil(t, r.BestPlatform)
	assert.Equal(t, content.PlatformInstagram, *r.BestPlatform)
	assert.Equal(t, now, r.LastUpdatedAt)
}

func TestRecompute_TiesBreakLexicographically(t *testing.T) {
	latest := map[content.Platform]*Snapshot{
		content.PlatformTikTok:    snap(500, 0, nil),
		content.PlatformInstagram: snap(500, 0, nil),
	}

	r := Recompute(uuid.New(), latest, time.Now())
	require.NotNil(t, r.BestPlatform)
	assert.Equal(t, content.PlatformInstagram, *r.BestPlatform)
}

func TestRecompute_Idempotent(t *testing.T) {
	contentID := uuid.New()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	latest := map[content.Platform]*Snapshot{
		content.PlatformInstagram: snap(1000, 50, nil),
		content.PlatformYouTube:   snap(250, 10, f64(33)),
	}

	first := Recompute(contentID, latest, now)
	second := Recompute(contentID, latest, now)
	assert.Equal(t, first, second)
}

func TestRecompute_OnePlatformMissing(t *testing.T) {
	// Platform Y's adapter errored: only X's snapshot exists. The rollup
	// reflects whichever platforms did report.
	latest := map[content.Platform]*Snapshot{
		content.PlatformInstagram: snap(1000, 0, nil),
	}

	r := Recompute(uuid.New(), latest, time.Now())
	assert.Equal(t, int64(1000), r.TotalViews)
	require.NotNil(t, r.BestPlatform)
	assert.Equal(t, content.PlatformInstagram, *r.BestPlatform)

	// Y recovers: its counts add without double-counting X.
	latest[content.PlatformTikTok] = snap(300, 0, nil)
	r2 := Recompute(uuid.New(), latest, time.Now())
	assert.Equal(t, int64(1300), r2.TotalViews)
}
