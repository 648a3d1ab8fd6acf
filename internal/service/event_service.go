package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tazhate/eventbot/internal/domain"
	"github.com/tazhate/eventbot/internal/notify"
	"github.com/tazhate/eventbot/internal/storage"
)

// EventService owns event CRUD plus keeping the notification queue in step
// with edits. Notifications are synced only after a successful commit, so a
// failed write never leaves reminders for state that does not exist.
type EventService struct {
	storage  *storage.Storage
	notifier *notify.Synchronizer
	timezone *time.Location
}

func NewEventService(s *storage.Storage, notifier *notify.Synchronizer, tz *time.Location) *EventService {
	if tz == nil {
		tz = time.Local
	}
	return &EventService{
		storage:  s,
		notifier: notifier,
		timezone: tz,
	}
}

func (s *EventService) Create(e *domain.Event) (*domain.Event, error) {
	e.Title = strings.TrimSpace(e.Title)
	e.ReminderIntervals = domain.NormalizeIntervals(e.ReminderIntervals)

	if err := s.storage.CreateEvent(e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	// The event is committed at this point; a reminder sync failure must not
	// be reported as a failed create.
	if err := s.Resync(e, time.Now()); err != nil {
		log.Printf("Error syncing notifications for event #%d: %v", e.ID, err)
	}
	return e, nil
}

func (s *EventService) Update(e *domain.Event) error {
	e.Title = strings.TrimSpace(e.Title)
	e.ReminderIntervals = domain.NormalizeIntervals(e.ReminderIntervals)

	if err := s.storage.UpdateEvent(e); err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	if err := s.Resync(e, time.Now()); err != nil {
		log.Printf("Error syncing notifications for event #%d: %v", e.ID, err)
	}
	return nil
}

// Delete removes the event and purges its scheduled notifications.
func (s *EventService) Delete(id int64) error {
	event, err := s.storage.GetEvent(id)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return fmt.Errorf("event #%d not found", id)
	}

	if err := s.storage.DeleteEvent(id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	if err := s.notifier.CancelAll(id); err != nil {
		return fmt.Errorf("cancel notifications: %w", err)
	}
	return nil
}

func (s *EventService) Get(id int64) (*domain.Event, error) {
	return s.storage.GetEvent(id)
}

func (s *EventService) ListActive() ([]*domain.Event, error) {
	return s.storage.ListActiveEvents()
}

func (s *EventService) ListArchived() ([]*domain.Event, error) {
	return s.storage.ListArchivedEvents()
}

// ListForDay returns active events whose calendar day matches day.
func (s *EventService) ListForDay(day time.Time) ([]*domain.Event, error) {
	events, err := s.storage.ListActiveEvents()
	if err != nil {
		return nil, err
	}

	day = day.In(s.timezone)
	var out []*domain.Event
	for _, e := range events {
		start, ok := e.StartInstant(s.timezone)
		if !ok {
			continue
		}
		if start.Year() == day.Year() && start.YearDay() == day.YearDay() {
			out = append(out, e)
		}
	}
	return out, nil
}

// Resync replaces the event's pending notifications with the set derived
// from its current reminder configuration.
func (s *EventService) Resync(e *domain.Event, now time.Time) error {
	start, ok := e.StartInstant(s.timezone)
	if !ok || e.IsArchived {
		return s.notifier.CancelAll(e.ID)
	}

	planned := notify.Plan(start, e.ReminderIntervals, now)
	return s.notifier.Sync(e.ID, e.DisplayTitle(), planned)
}

// FormatEventList renders events as an HTML list for Telegram.
func (s *EventService) FormatEventList(events []*domain.Event) string {
	if len(events) == 0 {
		return "No events"
	}

	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(fmt.Sprintf("#%d <b>%s</b> — %s", e.ID, e.DisplayTitle(), s.formatWhen(e)))
		if label := e.RepeatLabel(); e.Repeats() && label != "" {
			sb.WriteString(" 🔁 " + label)
		} else if e.Repeats() {
			sb.WriteString(fmt.Sprintf(" 🔁 every %d min", e.RepeatFrequency))
		}
		if len(e.ReminderIntervals) > 0 {
			sb.WriteString(" 🔔")
		}
		sb.WriteString("\n")
		if e.Notes != "" {
			sb.WriteString("   " + e.Notes + "\n")
		}
	}
	return sb.String()
}

func (s *EventService) formatWhen(e *domain.Event) string {
	start, ok := e.StartInstant(s.timezone)
	if !ok {
		return "—"
	}
	when := start.Format("02.01.2006 15:04")
	if end, ok := e.EndInstant(s.timezone); ok && end.After(start) {
		when += "-" + end.Format("15:04")
	}
	return when
}
