// path: internal/scheduler/planner.go
package scheduler

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

// Config carries the planning tunables for one run.
type Config struct {
	HorizonMonths  int
	MinPerDayShort float64
	MaxPerDayShort float64
	MinPerDayLong  float64
	MaxPerDayLong  float64
	PreferredHours []int
	Platforms      []content.Platform
	ForceReschedule bool

	// PlatformWindows nudges each bound slot toward the platform's best
	// posting hours instead of taking preferred_hours literally.
	PlatformWindows bool
}

// Validate checks the config the way the API surfaces InvalidConfig.
func (c Config) Validate() error {
	if c.HorizonMonths < 1 {
		return fmt.Errorf("%w: horizon_months must be >= 1", common.ErrInvalidRequest)
	}
	if c.MinPerDayShort > c.MaxPerDayShort || c.MinPerDayLong > c.MaxPerDayLong {
		return fmt.Errorf("%w: cadence min exceeds max", common.ErrInvalidRequest)
	}
	if len(c.PreferredHours) == 0 {
		return fmt.Errorf("%w: preferred_hours must not be empty", common.ErrInvalidRequest)
	}
	for _, h := range c.PreferredHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("%w: preferred hour %d out of range", common.ErrInvalidRequest, h)
		}
	}
	if len(c.Platforms) == 0 {
		return fmt.Errorf("%w: at least one platform required", common.ErrInvalidRequest)
	}
	for _, p := range c.Platforms {
		if !content.IsValidPlatform(p) {
			return fmt.Errorf("%w: unknown platform %q", common.ErrInvalidRequest, p)
		}
	}
	return nil
}

// HorizonDays converts the month horizon to planning days.
func (c Config) HorizonDays() int { return c.HorizonMonths * 30 }

// Slot is one planned publish position before artifact binding.
type Slot struct {
	Day  int // 0-based offset from the horizon start
	At   time.Time
	Form content.Form
}

// Binding assigns one artifact to a platform at a slot time.
type Binding struct {
	Artifact *content.Artifact
	Platform content.Platform
	At       time.Time
}

// Plan is the scheduler's output: rates, slots, and bindings.
type Plan struct {
	HorizonStart     time.Time
	HorizonDays      int
	RateShort        float64
	RateLong         float64
	Slots            []Slot
	Bindings         []Binding
	CanExtendHorizon bool
}

// Compute derives a plan from classified inventory. The horizon starts at
// the next day boundary after now so the first slot lands tomorrow.
func Compute(inv *Inventory, cfg Config, now time.Time) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	days := cfg.HorizonDays()

	rateShort, extendShort := pickRate(len(inv.Short), days, cfg.MinPerDayShort, cfg.MaxPerDayShort)
	rateLong, extendLong := pickRate(len(inv.Long), days, cfg.MinPerDayLong, cfg.MaxPerDayLong)

	plan := &Plan{
		HorizonStart:     start,
		HorizonDays:      days,
		RateShort:        rateShort,
		RateLong:         rateLong,
		CanExtendHorizon: extendShort || extendLong,
	}

	totalShort := slotTotal(rateShort, days, len(inv.Short))
	totalLong := slotTotal(rateLong, days, len(inv.Long))

	// Shorts anchor at the horizon start; longs sit at half-period offsets
	// so the two forms do not cluster on the same days.
	shortDays := spreadDays(totalShort, days, 0)
	longDays := spreadDays(totalLong, days, 0.5)

	plan.Slots = append(plan.Slots, timeSlots(shortDays, content.FormShort, start, cfg.PreferredHours)...)
	plan.Slots = append(plan.Slots, timeSlots(longDays, content.FormLong, start, cfg.PreferredHours)...)
	sort.Slice(plan.Slots, func(i, j int) bool { return plan.Slots[i].At.Before(plan.Slots[j].At) })

	plan.Bindings = bind(plan.Slots, inv, cfg.Platforms, cfg.PlatformWindows, now)
	return plan, nil
}

// pickRate clamps supply/horizon into the cadence band. A rate above max is
// capped and flags horizon extension; a supply below the min-rate floor
// simply publishes at the supply rate — an empty locker cannot post.
func pickRate(n, days int, min, max float64) (rate float64, extend bool) {
	raw := float64(n) / float64(days)
	if raw > max {
		return max, true
	}
	if raw >= min {
		return raw, false
	}
	return raw, false
}

func slotTotal(rate float64, days, supply int) int {
	t := int(math.Round(rate * float64(days)))
	if t > supply {
		t = supply
	}
	return t
}

// spreadDays places total slots over days with a fractional accumulator so
// slots never cluster at day zero. phase shifts the pattern in units of one
// period (0 anchors at the start, 0.5 centers between neighbors).
func spreadDays(total, days int, phase float64) []int {
	if total <= 0 || days <= 0 {
		return nil
	}
	out := make([]int, 0, total)
	for k := 0; k < total; k++ {
		d := int(math.Floor((float64(k) + phase) * float64(days) / float64(total)))
		if d >= days {
			d = days - 1
		}
		out = append(out, d)
	}
	return out
}

// timeSlots assigns clock times within each day: slot i of a day takes
// preferred_hours[i mod len].
func timeSlots(dayIdx []int, form content.Form, start time.Time, preferredHours []int) []Slot {
	perDay := map[int]int{}
	slots := make([]Slot, 0, len(dayIdx))
	for _, d := range dayIdx {
		i := perDay[d]
		perDay[d]++
		hour := preferredHours[i%len(preferredHours)]
		at := start.AddDate(0, 0, d).Add(time.Duration(hour) * time.Hour)
		slots = append(slots, Slot{Day: d, At: at, Form: form})
	}
	return slots
}

// platformHours carries per-platform posting windows used as a tie-break
// when a bound slot's hour falls outside the platform's best hours.
var platformHours = map[content.Platform][]int{
	content.PlatformInstagram: {11, 14, 17, 20},
	content.PlatformTikTok:    {9, 12, 19, 21},
	content.PlatformYouTube:   {12, 15, 18, 20},
	content.PlatformFacebook:  {9, 13, 16},
	content.PlatformLinkedIn:  {8, 10, 12, 17},
	content.PlatformTwitter:   {8, 12, 17, 21},
}

// snapToPlatformHour nudges a slot to the platform's nearest preferred hour
// when the configured hour is not already one of them. Only the clock moves;
// the day never changes.
func snapToPlatformHour(at time.Time, platform content.Platform) time.Time {
	hours, ok := platformHours[platform]
	if !ok || len(hours) == 0 {
		return at
	}
	h := at.Hour()
	best := hours[0]
	bestDist := distance(h, hours[0])
	for _, candidate := range hours[1:] {
		if d := distance(h, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist == 0 {
		return at
	}
	return at.Add(time.Duration(best-h) * time.Hour)
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// bind consumes artifacts FIFO-by-ready order, assigning each slot a
// platform round-robin. Slot times that slipped into the past round up to
// now + 1 minute.
func bind(slots []Slot, inv *Inventory, platforms []content.Platform, platformWindows bool, now time.Time) []Binding {
	shortQueue := append([]*content.Artifact(nil), inv.Short...)
	longQueue := append([]*content.Artifact(nil), inv.Long...)
	sort.SliceStable(shortQueue, func(i, j int) bool { return shortQueue[i].ReadyAt().Before(shortQueue[j].ReadyAt()) })
	sort.SliceStable(longQueue, func(i, j int) bool { return longQueue[i].ReadyAt().Before(longQueue[j].ReadyAt()) })

	// Round-robin runs per form so shorts alternate platforms even when
	// long slots interleave in time.
	bindings := make([]Binding, 0, len(slots))
	rr := map[content.Form]int{}
	for _, slot := range slots {
		var a *content.Artifact
		switch slot.Form {
		case content.FormShort:
			if len(shortQueue) == 0 {
				continue
			}
			a, shortQueue = shortQueue[0], shortQueue[1:]
		default:
			if len(longQueue) == 0 {
				continue
			}
			a, longQueue = longQueue[0], longQueue[1:]
		}

		platform := platforms[rr[slot.Form]%len(platforms)]
		at := slot.At
		if platformWindows {
			at = snapToPlatformHour(at, platform)
		}
		if at.Before(now) {
			at = now.Add(time.Minute)
		}
		bindings = append(bindings, Binding{
			Artifact: a,
			Platform: platform,
			At:       at,
		})
		rr[slot.Form]++
	}
	return bindings
}
