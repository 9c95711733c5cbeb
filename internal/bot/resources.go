package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"landwatch/internal/land"
)

// fullyGrownChops is the chop count at which a tree is considered ready to
// track, mirroring the game's own "fully grown" threshold.
const fullyGrownChops = 4

// treeAvailableAt and industryAvailableAt return the entity's future
// availability time, or the zero time if it is already available.
func treeAvailableAt(t land.Tree) time.Time  { return t.UtcRefresh }
func industryAvailableAt(i land.Industry) time.Time { return i.FinishTime }

// filterTreesByWindow keeps only fully grown trees (Chops >= fullyGrownChops)
// whose time-to-available falls strictly within (lowSec, highSec), sorted
// soonest first. A fully grown tree with no availability time (already
// available) is always kept.
func filterTreesByWindow(trees []land.Tree, now time.Time, lowSec, highSec int) []land.Tree {
	var out []land.Tree
	for _, t := range trees {
		if t.Chops < fullyGrownChops {
			continue
		}
		if !inWindow(treeAvailableAt(t), now, lowSec, highSec) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return treeAvailableAt(out[i]).Before(treeAvailableAt(out[j]))
	})
	return out
}

func filterIndustriesByWindow(items []land.Industry, now time.Time, lowSec, highSec int) []land.Industry {
	var out []land.Industry
	for _, it := range items {
		if !inWindow(industryAvailableAt(it), now, lowSec, highSec) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		return industryAvailableAt(out[i]).Before(industryAvailableAt(out[j]))
	})
	return out
}

func inWindow(dt, now time.Time, lowSec, highSec int) bool {
	if dt.IsZero() {
		return true
	}
	delta := dt.Sub(now).Seconds()
	return float64(lowSec) < delta && delta < float64(highSec)
}

// trackedResources is the subset of a land's entities worth posting to the
// tracker channels: a filtered, sorted window of near-term availability.
type trackedResources struct {
	LandNumber int
	Trees      []land.Tree
	Industries []land.Industry
}

func filterResources(parsed land.ParsedLandState, now time.Time, lowSec, highSec int) trackedResources {
	industries := make([]land.Industry, 0, len(parsed.Windmills)+len(parsed.Wineries)+len(parsed.Grills)+len(parsed.Kilns))
	industries = append(industries, parsed.Grills...)
	industries = append(industries, parsed.Windmills...)
	industries = append(industries, parsed.Wineries...)
	industries = append(industries, parsed.Kilns...)

	return trackedResources{
		LandNumber: parsed.LandNumber,
		Trees:      filterTreesByWindow(parsed.Trees, now, lowSec, highSec),
		Industries: filterIndustriesByWindow(industries, now, lowSec, highSec),
	}
}

func describeTree(landNumber int, t land.Tree) string {
	return fmt.Sprintf("*#%d* 🌲 Tree [*%s*] %s", landNumber, t.State, describeAvailability(t.UtcRefresh))
}

func describeIndustry(landNumber int, i land.Industry) string {
	return fmt.Sprintf("*#%d* %s %s", landNumber, industryEmoji(i.Entity), describeAvailability(i.FinishTime))
}

func industryEmoji(entity string) string {
	switch {
	case strings.HasPrefix(entity, "ent_windmill"):
		return "🌀 Windmill"
	case strings.HasPrefix(entity, "ent_landbbq"):
		return "🍖 Grill"
	case strings.HasPrefix(entity, "ent_kiln"):
		return "🪨 Kiln"
	case strings.HasPrefix(entity, "ent_winery"):
		return "🍇 Winery"
	default:
		return "🤷 " + entity
	}
}

func describeAvailability(dt time.Time) string {
	if dt.IsZero() {
		return "*Available*"
	}
	return fmt.Sprintf("<!date^%d^{time}|%s>", dt.Unix(), dt.Format(time.RFC3339))
}

// formatTrackerMessage renders the lines to post to the trees and
// industries tracker channels. Either may be empty.
func formatTrackerMessage(tr trackedResources) (trees, industries string) {
	treeLines := make([]string, 0, len(tr.Trees))
	for _, t := range tr.Trees {
		treeLines = append(treeLines, describeTree(tr.LandNumber, t))
	}
	industryLines := make([]string, 0, len(tr.Industries))
	for _, i := range tr.Industries {
		industryLines = append(industryLines, describeIndustry(tr.LandNumber, i))
	}
	return strings.Join(treeLines, "\n"), strings.Join(industryLines, "\n")
}

// formatResourcesReply renders the full /resources reply for one land.
func formatResourcesReply(landNumber int, snap *land.CachedSnapshot, parsed land.ParsedLandState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "> Created => *%s*\n", snap.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "> Expires => *%s*\n", snap.ExpiresAt.Format(time.RFC3339))

	for _, t := range parsed.Trees {
		b.WriteString(describeTree(landNumber, t))
		b.WriteString("\n")
	}
	for _, i := range parsed.Grills {
		b.WriteString(describeIndustry(landNumber, i))
		b.WriteString("\n")
	}
	for _, i := range parsed.Windmills {
		b.WriteString(describeIndustry(landNumber, i))
		b.WriteString("\n")
	}
	for _, i := range parsed.Wineries {
		b.WriteString(describeIndustry(landNumber, i))
		b.WriteString("\n")
	}
	for _, i := range parsed.Kilns {
		b.WriteString(describeIndustry(landNumber, i))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
