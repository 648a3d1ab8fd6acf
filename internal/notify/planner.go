package notify

import (
	"sort"
	"time"
)

// PlannedReminder pairs a reminder offset with the instant it should fire.
type PlannedReminder struct {
	OffsetMinutes int
	FireAt        time.Time
}

// Plan derives the reminders that still need scheduling for an event
// starting at start. Offsets are minutes before start; negative offsets and
// duplicates are dropped, and anything that would have already fired is
// silently skipped rather than fired late. Output is sorted by offset
// ascending so the result is deterministic for a given input triple.
func Plan(start time.Time, offsets []int, now time.Time) []PlannedReminder {
	seen := make(map[int]bool, len(offsets))
	planned := make([]PlannedReminder, 0, len(offsets))

	for _, m := range offsets {
		if m < 0 || seen[m] {
			continue
		}
		seen[m] = true

		fireAt := start.Add(-time.Duration(m) * time.Minute)
		if !fireAt.After(now) {
			continue
		}
		planned = append(planned, PlannedReminder{OffsetMinutes: m, FireAt: fireAt})
	}

	sort.Slice(planned, func(i, j int) bool {
		return planned[i].OffsetMinutes < planned[j].OffsetMinutes
	})
	return planned
}
