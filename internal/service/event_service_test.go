package service

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/eventbot/internal/domain"
	"github.com/tazhate/eventbot/internal/notify"
	"github.com/tazhate/eventbot/internal/storage"
)

func setupEventTest(t *testing.T) (*EventService, *storage.Storage) {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	notifier := notify.NewSynchronizer(notify.NewStoreSink(store, true))
	return NewEventService(store, notifier, time.UTC), store
}

func TestCreate_NormalizesAndSchedules(t *testing.T) {
	svc, store := setupEventTest(t)

	start := time.Now().UTC().Add(24 * time.Hour)
	e := eventStartingAt(start)
	e.Title = "  Dentist  "
	e.ReminderIntervals = []int{60, 10, 60, -1}

	created, err := svc.Create(e)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	assert.Equal(t, "Dentist", created.Title)
	assert.Equal(t, []int{10, 60}, created.ReminderIntervals)
	assert.Len(t, pendingForEvent(t, store, created.ID), 2)
}

func TestCreate_PastRemindersNotScheduled(t *testing.T) {
	svc, store := setupEventTest(t)

	e := eventStartingAt(time.Now().UTC().Add(-5 * time.Minute))
	e.ReminderIntervals = []int{10, 60}

	created, err := svc.Create(e)
	require.NoError(t, err)
	assert.Empty(t, pendingForEvent(t, store, created.ID), "already-passed reminders are dropped, not fired late")
}

type failingSink struct{}

func (failingSink) RequestPermission() (bool, error) { return true, nil }
func (failingSink) GetPending() ([]notify.Pending, error) {
	return nil, fmt.Errorf("queue unavailable")
}
func (failingSink) Cancel([]string) error { return fmt.Errorf("queue unavailable") }
func (failingSink) Schedule(string, string, string, time.Time) error {
	return fmt.Errorf("queue unavailable")
}

func TestCreate_SurvivesNotificationSyncFailure(t *testing.T) {
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := NewEventService(store, notify.NewSynchronizer(failingSink{}), time.UTC)

	e := eventStartingAt(time.Now().UTC().Add(24 * time.Hour))
	e.ReminderIntervals = []int{10}

	// The row is committed before sync runs, so a broken reminder queue must
	// not turn a successful create into a reported failure.
	created, err := svc.Create(e)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := store.GetEvent(created.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	created.Title = "Dentist (moved)"
	assert.NoError(t, svc.Update(created))
}

func TestUpdate_ResyncsNotifications(t *testing.T) {
	svc, store := setupEventTest(t)

	e := eventStartingAt(time.Now().UTC().Add(24 * time.Hour))
	e.ReminderIntervals = []int{10, 60}
	created, err := svc.Create(e)
	require.NoError(t, err)
	require.Len(t, pendingForEvent(t, store, created.ID), 2)

	created.ReminderIntervals = []int{30}
	require.NoError(t, svc.Update(created))

	ids := pendingForEvent(t, store, created.ID)
	require.Len(t, ids, 1)
	assert.Equal(t, notify.Identifier(created.ID, 30), ids[0])
}

func TestDelete_PurgesNotifications(t *testing.T) {
	svc, store := setupEventTest(t)

	e := eventStartingAt(time.Now().UTC().Add(24 * time.Hour))
	e.ReminderIntervals = []int{10}
	created, err := svc.Create(e)
	require.NoError(t, err)
	require.Len(t, pendingForEvent(t, store, created.ID), 1)

	require.NoError(t, svc.Delete(created.ID))

	got, err := store.GetEvent(created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, pendingForEvent(t, store, created.ID))
}

func TestDelete_UnknownEvent(t *testing.T) {
	svc, _ := setupEventTest(t)
	assert.Error(t, svc.Delete(999))
}

func TestListForDay(t *testing.T) {
	svc, _ := setupEventTest(t)

	today := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	_, err := svc.Create(eventStartingAt(today.Add(3 * time.Hour)))
	require.NoError(t, err)
	_, err = svc.Create(eventStartingAt(today.Add(26 * time.Hour)))
	require.NoError(t, err)

	events, err := svc.ListForDay(today)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestFormatEventList(t *testing.T) {
	svc, _ := setupEventTest(t)

	e := eventStartingAt(time.Date(2026, 9, 14, 15, 0, 0, 0, time.UTC))
	e.ID = 3
	e.Notes = "room 204"
	e.RepeatReminder = true
	e.RepeatFrequency = domain.RepeatWeekly
	e.ReminderIntervals = []int{10}

	text := svc.FormatEventList([]*domain.Event{e})
	assert.Contains(t, text, "#3")
	assert.Contains(t, text, "Dentist")
	assert.Contains(t, text, "14.09.2026 15:00")
	assert.Contains(t, text, "weekly")
	assert.Contains(t, text, "room 204")
}

func TestFormatEventList_Empty(t *testing.T) {
	svc, _ := setupEventTest(t)
	assert.Equal(t, "No events", svc.FormatEventList(nil))
}
