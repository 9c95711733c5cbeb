// Package policy computes how long a land's cache entry should live before
// the next refresh, based on the game timers visible in its parsed state.
package policy

import (
	"math/rand"
	"time"

	"landwatch/internal/land"
)

const (
	// MinDelay is the floor on any non-idle NextDelay result.
	MinDelay = 15
	// MaxDelay is the ceiling applied to blocked/idle lands.
	MaxDelay = 86400
)

// NextDelay computes the next-refresh delay in seconds for a parsed land,
// in [MinDelay, MaxDelay]. It is deterministic except on the negative-delta
// branch, where it returns a uniform value in [60, 300].
func NextDelay(parsed land.ParsedLandState, now time.Time) int {
	if parsed.IsBlocked {
		return MaxDelay
	}

	target := now.Add(MaxDelay * time.Second)

	if len(parsed.Trees) > 0 {
		var latest time.Time
		for i, tree := range parsed.Trees {
			refresh := tree.UtcRefresh
			if refresh.IsZero() {
				refresh = now
			}
			if i == 0 || refresh.After(latest) {
				latest = refresh
			}
		}
		if latest.Before(target) {
			target = latest
		}
	}

	for _, industries := range [][]land.Industry{parsed.Windmills, parsed.Wineries, parsed.Grills, parsed.Kilns} {
		if len(industries) == 0 {
			continue
		}
		earliest := industries[0].FinishTime
		if earliest.IsZero() {
			earliest = now
		}
		for _, ind := range industries[1:] {
			finish := ind.FinishTime
			if finish.IsZero() {
				finish = now
			}
			if finish.Before(earliest) {
				earliest = finish
			}
		}
		if earliest.Before(target) {
			target = earliest
		}
	}

	delta := int(target.Sub(now).Round(time.Second).Seconds())

	switch {
	case delta == 0:
		return MaxDelay
	case delta < 0:
		return 60 + rand.Intn(241) // uniform in [60, 300]
	default:
		if delta < MinDelay {
			return MinDelay
		}
		return delta
	}
}
