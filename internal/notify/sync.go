package notify

import (
	"fmt"
	"strings"
	"time"
)

// Pending is a scheduled-but-undelivered notification as seen by a Sink.
type Pending struct {
	Identifier string
	FireAt     time.Time
}

// Sink is the notification scheduler the synchronizer reconciles against.
// Implementations must tolerate Schedule being called again with an
// identifier that already exists (replace semantics).
type Sink interface {
	RequestPermission() (bool, error)
	GetPending() ([]Pending, error)
	Cancel(identifiers []string) error
	Schedule(identifier, title, body string, fireAt time.Time) error
}

// Synchronizer reconciles an event's scheduled notifications against a
// freshly planned set: everything under the event's identifier prefix is
// cancelled, then the planned entries are scheduled. Cancel-all-then-
// reschedule-all means redundant calls converge to the same pending set.
type Synchronizer struct {
	sink Sink
}

func NewSynchronizer(sink Sink) *Synchronizer {
	return &Synchronizer{sink: sink}
}

// Identifier builds the deterministic notification identifier for an
// event/offset pair. Recomputing identifiers from the event alone is what
// lets Sync find stale entries without a separate index.
func Identifier(eventID int64, offsetMinutes int) string {
	return fmt.Sprintf("%d-min-%d", eventID, offsetMinutes)
}

func identifierPrefix(eventID int64) string {
	return fmt.Sprintf("%d-min-", eventID)
}

// Sync replaces the event's pending notifications with the planned set.
// When permission is not granted it silently does nothing; absent reminders
// are the expected, user-visible outcome.
func (s *Synchronizer) Sync(eventID int64, title string, planned []PlannedReminder) error {
	granted, err := s.sink.RequestPermission()
	if err != nil {
		return fmt.Errorf("request permission: %w", err)
	}
	if !granted {
		return nil
	}

	if err := s.cancelPending(eventID); err != nil {
		return err
	}

	for _, p := range planned {
		id := Identifier(eventID, p.OffsetMinutes)
		body := fmt.Sprintf("%s starts in %s", title, FormatLead(p.OffsetMinutes))
		// Triggers keep minute resolution only.
		if err := s.sink.Schedule(id, title, body, p.FireAt.Truncate(time.Minute)); err != nil {
			return fmt.Errorf("schedule %s: %w", id, err)
		}
	}
	return nil
}

// CancelAll removes every pending notification for the event, used when an
// event is archived or deleted.
func (s *Synchronizer) CancelAll(eventID int64) error {
	granted, err := s.sink.RequestPermission()
	if err != nil {
		return fmt.Errorf("request permission: %w", err)
	}
	if !granted {
		return nil
	}
	return s.cancelPending(eventID)
}

func (s *Synchronizer) cancelPending(eventID int64) error {
	pending, err := s.sink.GetPending()
	if err != nil {
		return fmt.Errorf("get pending: %w", err)
	}

	prefix := identifierPrefix(eventID)
	var stale []string
	for _, p := range pending {
		if strings.HasPrefix(p.Identifier, prefix) {
			stale = append(stale, p.Identifier)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := s.sink.Cancel(stale); err != nil {
		return fmt.Errorf("cancel stale: %w", err)
	}
	return nil
}
