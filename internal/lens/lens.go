// path: internal/lens/lens.go
// Lens computation: derives per-person insights from a sliding 90-day window
// of engagement events.
package lens

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/IsaiahDupree/mediaposter/internal/domain/people"
)

// WindowDays is the sliding window the lens looks back over.
const WindowDays = 90

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "this": {}, "that": {}, "is": {},
	"it": {}, "to": {}, "and": {}, "or": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "with": {}, "was": {}, "are": {}, "you": {}, "your": {},
	"have": {}, "has": {}, "not": {}, "but": {}, "just": {}, "what": {},
}

// ComputeInsight derives the lens for one person. events must be within the
// window, newest first. Returns nil when there is nothing in the window.
func ComputeInsight(events []*people.Event, now time.Time) *people.Insight {
	if len(events) == 0 {
		return nil
	}
	now = now.UTC()
	last := events[0].OccurredAt

	insight := &people.Insight{
		Interests:          Interests(events),
		TonePreferences:    ToneDistribution(events),
		ChannelPreferences: ChannelPreferences(events),
		ActivityState:      people.ActivityStateAt(last, now),
		WarmthScore:        Warmth(events, now),
		LastActiveAt:       &last,
		UpdatedAt:          now,
	}
	return insight
}

// Interests tokenizes content excerpts, drops stopwords and short tokens,
// and returns the top 10 by frequency.
func Interests(events []*people.Event) []string {
	counts := map[string]int{}
	for _, e := range events {
		if e.ContentExcerpt == nil {
			continue
		}
		for _, w := range strings.Fields(strings.ToLower(*e.ContentExcerpt)) {
			w = strings.Trim(w, ".,!?:;\"'()[]#@")
			if len(w) <= 3 {
				continue
			}
			if _, skip := stopwords[w]; skip {
				continue
			}
			counts[w]++
		}
	}

	type wc struct {
		word  string
		count int
	}
	ranked := make([]wc, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, wc{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	top := make([]string, 0, 10)
	for i := 0; i < len(ranked) && i < 10; i++ {
		top = append(top, ranked[i].word)
	}
	return top
}

var technicalMarkers = []string{"api", "code", "function", "system", "deploy", "latency", "backend"}
var enthusiasticMarkers = []string{"lol", "love", "amazing", "!!"}

// ToneDistribution scores excerpts into casual/formal/enthusiastic/technical
// buckets and normalizes to a distribution summing to 1.
func ToneDistribution(events []*people.Event) map[string]float64 {
	tones := map[string]float64{
		"casual": 0, "formal": 0, "enthusiastic": 0, "technical": 0,
	}

	for _, e := range events {
		if e.ContentExcerpt == nil {
			continue
		}
		text := strings.ToLower(*e.ContentExcerpt)

		for _, m := range enthusiasticMarkers {
			if strings.Contains(text, m) {
				tones["enthusiastic"]++
				break
			}
		}
		if strings.Count(text, "!") >= 2 {
			tones["enthusiastic"]++
		}
		for _, m := range technicalMarkers {
			if strings.Contains(text, m) {
				tones["technical"]++
				break
			}
		}
		// Long punctuated prose reads formal; everything else casual.
		if len(text) > 100 && strings.Contains(text, ".") {
			tones["formal"]++
		} else {
			tones["casual"]++
		}
	}

	total := 0.0
	for _, v := range tones {
		total += v
	}
	if total == 0 {
		return tones
	}
	for k := range tones {
		tones[k] /= total
	}
	return tones
}

// ChannelPreferences is the frequency distribution over channels.
func ChannelPreferences(events []*people.Event) map[string]float64 {
	counts := map[string]float64{}
	for _, e := range events {
		counts[e.Channel]++
	}
	total := float64(len(events))
	for k := range counts {
		counts[k] /= total
	}
	return counts
}

// Warmth scores recency, frequency, and depth into [0,1]:
//
//	w = 0.4·R + 0.3·F + 0.3·D
//
// R decays linearly over the window; F saturates at 5 of the events passed
// in; D averages per-event depth weights.
func Warmth(events []*people.Event, now time.Time) float64 {
	if len(events) == 0 {
		return 0
	}
	now = now.UTC()

	daysSinceLast := now.Sub(events[0].OccurredAt).Hours() / 24
	recency := math.Max(0, 1-daysSinceLast/float64(WindowDays))

	// Frequency counts all events passed in, saturating at 5 events.
	frequency := math.Min(1, float64(len(events))/5)

	var depthSum float64
	for _, e := range events {
		depthSum += e.EventType.DepthWeight()
	}
	depth := depthSum / float64(len(events))

	w := 0.4*recency + 0.3*frequency + 0.3*depth
	return math.Round(w*1000) / 1000
}
