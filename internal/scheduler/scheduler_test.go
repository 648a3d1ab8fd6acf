package scheduler

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/eventbot/config"
	"github.com/tazhate/eventbot/internal/notify"
	"github.com/tazhate/eventbot/internal/service"
	"github.com/tazhate/eventbot/internal/storage"
)

type fakeSender struct {
	sent    []string
	failAll bool
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	if f.failAll {
		return fmt.Errorf("send failed")
	}
	f.sent = append(f.sent, text)
	return nil
}

func setupSchedulerTest(t *testing.T) (*Scheduler, *storage.Storage, *fakeSender) {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{OwnerTelegramID: 1, Timezone: time.UTC, DigestTime: "08:00"}
	notifier := notify.NewSynchronizer(notify.NewStoreSink(store, true))
	eventSvc := service.NewEventService(store, notifier, time.UTC)
	lifecycleSvc := service.NewLifecycleService(store, notifier, time.UTC)

	s := New(cfg, store, eventSvc, lifecycleSvc)
	sender := &fakeSender{}
	s.SetSender(sender)
	return s, store, sender
}

func TestCronSpecForTime(t *testing.T) {
	spec, err := cronSpecForTime("08:30")
	require.NoError(t, err)
	assert.Equal(t, "30 08 * * *", spec)

	_, err = cronSpecForTime("0830")
	assert.Error(t, err)
}

func TestDispatchNotifications_DeliversDueOnly(t *testing.T) {
	s, store, sender := setupSchedulerTest(t)
	now := time.Now().UTC()

	require.NoError(t, store.SaveNotification(&storage.Notification{
		Identifier: "1-min-10", Body: "Dentist starts in 10 minutes", FireAt: now.Add(-time.Minute),
	}))
	require.NoError(t, store.SaveNotification(&storage.Notification{
		Identifier: "1-min-60", Body: "Dentist starts in 1 hour", FireAt: now.Add(time.Hour),
	}))

	s.dispatchNotifications()

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Dentist starts in 10 minutes")

	// The delivered row is gone, the future one remains.
	rows, err := store.ListNotifications()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1-min-60", rows[0].Identifier)
}

func TestDispatchNotifications_FailedSendKeepsRow(t *testing.T) {
	s, store, sender := setupSchedulerTest(t)
	sender.failAll = true

	require.NoError(t, store.SaveNotification(&storage.Notification{
		Identifier: "1-min-10", Body: "x", FireAt: time.Now().UTC().Add(-time.Minute),
	}))

	s.dispatchNotifications()

	rows, err := store.ListNotifications()
	require.NoError(t, err)
	assert.Len(t, rows, 1, "undelivered notifications are retried next pass")
}

func TestDispatchNotifications_NoSender(t *testing.T) {
	s, store, _ := setupSchedulerTest(t)
	s.sender = nil

	require.NoError(t, store.SaveNotification(&storage.Notification{
		Identifier: "1-min-10", Body: "x", FireAt: time.Now().UTC().Add(-time.Minute),
	}))

	s.dispatchNotifications()

	rows, err := store.ListNotifications()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
