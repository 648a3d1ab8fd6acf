package domain

import (
	"sort"
	"strings"
	"time"
)

// Recognized repeat frequencies in minutes. Any positive value works,
// these just get nicer labels and ICS rules.
const (
	RepeatHourly   = 60
	RepeatDaily    = 1440
	RepeatWeekly   = 10080
	RepeatBiweekly = 20160
	RepeatMonthly  = 43200
)

// Event is a single scheduled occurrence. EventDate carries only the
// calendar day, StartTime/EndTime carry only the time of day; the two are
// combined with MergeDayTime to get absolute instants.
type Event struct {
	ID                int64
	Title             string
	EventDate         time.Time
	StartTime         time.Time
	EndTime           *time.Time
	UseEndTime        bool
	Notes             string
	ReminderIntervals []int // minutes before start, sorted ascending
	IsArchived        bool
	RepeatReminder    bool
	RepeatFrequency   int // minutes between occurrences, 0 = no recurrence
	CreatedAt         time.Time
}

// MergeDayTime combines a calendar-day value with a time-of-day value into
// one instant in loc. Returns ok=false when either input is missing.
// Components are read in loc, so the result depends on the configured
// timezone at the moment of composition (known limitation, not a bug).
func MergeDayTime(day, tod time.Time, loc *time.Location) (time.Time, bool) {
	if day.IsZero() || tod.IsZero() {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	day = day.In(loc)
	tod = tod.In(loc)
	merged := time.Date(day.Year(), day.Month(), day.Day(),
		tod.Hour(), tod.Minute(), tod.Second(), 0, loc)
	return merged, true
}

// StartInstant resolves the event's absolute start.
func (e *Event) StartInstant(loc *time.Location) (time.Time, bool) {
	return MergeDayTime(e.EventDate, e.StartTime, loc)
}

// EndInstant resolves the event's absolute end. ok=false when the event has
// no usable end time.
func (e *Event) EndInstant(loc *time.Location) (time.Time, bool) {
	if !e.UseEndTime || e.EndTime == nil {
		return time.Time{}, false
	}
	return MergeDayTime(e.EventDate, *e.EndTime, loc)
}

// EffectiveEnd is the instant the event counts as over: the merged end when
// one is set and strictly after the start, otherwise the start itself.
// An end at or before the start is a caller-validation gap; we fall back to
// start-based expiry instead of failing.
func (e *Event) EffectiveEnd(loc *time.Location) (time.Time, bool) {
	start, ok := e.StartInstant(loc)
	if !ok {
		return time.Time{}, false
	}
	if end, ok := e.EndInstant(loc); ok && end.After(start) {
		return end, true
	}
	return start, true
}

// Expired reports whether the event's effective end has passed.
func (e *Event) Expired(now time.Time, loc *time.Location) bool {
	end, ok := e.EffectiveEnd(loc)
	if !ok {
		return false
	}
	return !end.After(now)
}

// Repeats reports whether the lifecycle engine should spawn a next
// occurrence when this event expires.
func (e *Event) Repeats() bool {
	return e.RepeatReminder && e.RepeatFrequency > 0
}

// NextOccurrence builds the following occurrence of a repeating event as a
// brand-new record: start and end advance by RepeatFrequency minutes, and
// EventDate becomes the calendar day of the new start so a recurrence that
// crosses midnight lands on the correct day. Returns nil when the event is
// not repeating or its start cannot be resolved.
func (e *Event) NextOccurrence(loc *time.Location) *Event {
	if !e.Repeats() {
		return nil
	}
	start, ok := e.StartInstant(loc)
	if !ok {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	step := time.Duration(e.RepeatFrequency) * time.Minute
	newStart := start.Add(step)

	next := &Event{
		Title:             e.Title,
		EventDate:         time.Date(newStart.Year(), newStart.Month(), newStart.Day(), 0, 0, 0, 0, loc),
		StartTime:         newStart,
		UseEndTime:        e.UseEndTime,
		Notes:             e.Notes,
		ReminderIntervals: NormalizeIntervals(e.ReminderIntervals),
		RepeatReminder:    e.RepeatReminder,
		RepeatFrequency:   e.RepeatFrequency,
	}
	if e.UseEndTime {
		if end, ok := e.EndInstant(loc); ok {
			newEnd := end.Add(step)
			next.EndTime = &newEnd
		}
	}
	return next
}

// DisplayTitle is the single place the empty-title default lives.
func (e *Event) DisplayTitle() string {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return "Untitled"
	}
	return title
}

// NormalizeIntervals drops negative offsets, collapses duplicates and sorts
// ascending, so [30,30,5] and [5,30] persist and plan identically.
func NormalizeIntervals(intervals []int) []int {
	seen := make(map[int]bool, len(intervals))
	out := make([]int, 0, len(intervals))
	for _, m := range intervals {
		if m < 0 || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// RepeatLabel returns a human label for the repeat frequency.
func (e *Event) RepeatLabel() string {
	switch e.RepeatFrequency {
	case RepeatHourly:
		return "hourly"
	case RepeatDaily:
		return "daily"
	case RepeatWeekly:
		return "weekly"
	case RepeatBiweekly:
		return "biweekly"
	case RepeatMonthly:
		return "monthly"
	default:
		return ""
	}
}
