package notify

import (
	"time"

	"github.com/tazhate/eventbot/internal/storage"
)

// StoreSink is a Sink backed by the notification queue in Storage. The
// scheduler later delivers due rows and removes them; until then they are
// the "pending" set the synchronizer reconciles against.
//
// Permission maps to the NOTIFICATIONS_ENABLED switch: with notifications
// turned off every operation is a silent no-op, mirroring a denied
// permission prompt.
type StoreSink struct {
	storage *storage.Storage
	enabled bool
}

func NewStoreSink(s *storage.Storage, enabled bool) *StoreSink {
	return &StoreSink{storage: s, enabled: enabled}
}

func (s *StoreSink) RequestPermission() (bool, error) {
	return s.enabled, nil
}

func (s *StoreSink) GetPending() ([]Pending, error) {
	rows, err := s.storage.ListNotifications()
	if err != nil {
		return nil, err
	}

	pending := make([]Pending, 0, len(rows))
	for _, n := range rows {
		pending = append(pending, Pending{Identifier: n.Identifier, FireAt: n.FireAt})
	}
	return pending, nil
}

func (s *StoreSink) Cancel(identifiers []string) error {
	return s.storage.DeleteNotifications(identifiers)
}

func (s *StoreSink) Schedule(identifier, title, body string, fireAt time.Time) error {
	return s.storage.SaveNotification(&storage.Notification{
		Identifier: identifier,
		Title:      title,
		Body:       body,
		FireAt:     fireAt.Truncate(time.Minute),
	})
}
