package ics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/tazhate/eventbot/internal/domain"
)

// Export builds an iCalendar document from the given events. Events whose
// start cannot be resolved are left out.
func Export(events []*domain.Event, tz *time.Location) *ical.Calendar {
	if tz == nil {
		tz = time.Local
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//EventBot//Export//EN")

	for _, e := range events {
		start, ok := e.StartInstant(tz)
		if !ok {
			continue
		}

		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, fmt.Sprintf("%d@eventbot", e.ID))
		vevent.Props.SetText(ical.PropSummary, e.DisplayTitle())
		if e.Notes != "" {
			vevent.Props.SetText(ical.PropDescription, e.Notes)
		}

		// Convert to UTC explicitly - iCalendar will use Z suffix
		vevent.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		if end, ok := e.EndInstant(tz); ok && end.After(start) {
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
		}

		if e.Repeats() {
			if rule := recurrenceRule(e.RepeatFrequency); rule != "" {
				vevent.Props.SetText(ical.PropRecurrenceRule, rule)
			}
		}

		vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
		cal.Children = append(cal.Children, vevent.Component)
	}
	return cal
}

// Encode serializes a calendar to its wire form.
func Encode(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// recurrenceRule maps a repeat frequency in minutes to an RRULE value.
// Canonical frequencies get their natural calendar unit; anything else is
// expressed as a minutely rule.
func recurrenceRule(minutes int) string {
	var opt rrule.ROption
	switch minutes {
	case domain.RepeatHourly:
		opt = rrule.ROption{Freq: rrule.HOURLY}
	case domain.RepeatDaily:
		opt = rrule.ROption{Freq: rrule.DAILY}
	case domain.RepeatWeekly:
		opt = rrule.ROption{Freq: rrule.WEEKLY}
	case domain.RepeatBiweekly:
		opt = rrule.ROption{Freq: rrule.WEEKLY, Interval: 2}
	case domain.RepeatMonthly:
		opt = rrule.ROption{Freq: rrule.MONTHLY}
	default:
		if minutes <= 0 {
			return ""
		}
		opt = rrule.ROption{Freq: rrule.MINUTELY, Interval: minutes}
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return ""
	}
	return r.OrigOptions.RRuleString()
}
