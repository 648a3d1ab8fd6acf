package notify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/eventbot/internal/storage"
)

func setupSyncTest(t *testing.T, enabled bool) (*Synchronizer, *storage.Storage) {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewSynchronizer(NewStoreSink(store, enabled)), store
}

func pendingIdentifiers(t *testing.T, store *storage.Storage) []string {
	t.Helper()

	rows, err := store.ListNotifications()
	require.NoError(t, err)

	ids := make([]string, 0, len(rows))
	for _, n := range rows {
		ids = append(ids, n.Identifier)
	}
	return ids
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "42-min-10", Identifier(42, 10))
}

func TestSync_SchedulesPlanned(t *testing.T) {
	sync, store := setupSyncTest(t, true)
	start := time.Date(2026, 9, 14, 15, 0, 30, 0, time.UTC)

	planned := []PlannedReminder{
		{OffsetMinutes: 10, FireAt: start.Add(-10 * time.Minute)},
		{OffsetMinutes: 60, FireAt: start.Add(-60 * time.Minute)},
	}
	require.NoError(t, sync.Sync(7, "Dentist", planned))

	rows, err := store.ListNotifications()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "7-min-60", rows[0].Identifier)
	assert.Equal(t, "Dentist starts in 1 hour", rows[0].Body)
	assert.Equal(t, "7-min-10", rows[1].Identifier)
	assert.Equal(t, "Dentist starts in 10 minutes", rows[1].Body)

	// Second-level precision is not preserved in the trigger.
	for _, n := range rows {
		assert.Zero(t, n.FireAt.Second())
	}
}

func TestSync_Idempotent(t *testing.T) {
	sync, store := setupSyncTest(t, true)
	start := time.Date(2026, 9, 14, 15, 0, 0, 0, time.UTC)

	planned := []PlannedReminder{
		{OffsetMinutes: 10, FireAt: start.Add(-10 * time.Minute)},
		{OffsetMinutes: 60, FireAt: start.Add(-60 * time.Minute)},
	}

	require.NoError(t, sync.Sync(7, "Dentist", planned))
	first := pendingIdentifiers(t, store)

	require.NoError(t, sync.Sync(7, "Dentist", planned))
	second := pendingIdentifiers(t, store)

	assert.Equal(t, first, second)
	assert.Len(t, second, 2)
}

func TestSync_RemovesStaleEntries(t *testing.T) {
	sync, store := setupSyncTest(t, true)
	start := time.Date(2026, 9, 14, 15, 0, 0, 0, time.UTC)

	require.NoError(t, sync.Sync(7, "Dentist", []PlannedReminder{
		{OffsetMinutes: 10, FireAt: start.Add(-10 * time.Minute)},
		{OffsetMinutes: 60, FireAt: start.Add(-60 * time.Minute)},
	}))
	require.NoError(t, sync.Sync(7, "Dentist", []PlannedReminder{
		{OffsetMinutes: 10, FireAt: start.Add(-10 * time.Minute)},
	}))

	assert.Equal(t, []string{"7-min-10"}, pendingIdentifiers(t, store))
}

func TestSync_DoesNotTouchOtherEvents(t *testing.T) {
	sync, store := setupSyncTest(t, true)
	start := time.Date(2026, 9, 14, 15, 0, 0, 0, time.UTC)

	// Event 12 shares the leading digit with event 1; the "-min-" separator
	// keeps their identifier prefixes distinct.
	require.NoError(t, sync.Sync(1, "One", []PlannedReminder{
		{OffsetMinutes: 10, FireAt: start.Add(-10 * time.Minute)},
	}))
	require.NoError(t, sync.Sync(12, "Twelve", []PlannedReminder{
		{OffsetMinutes: 10, FireAt: start.Add(-10 * time.Minute)},
	}))

	require.NoError(t, sync.Sync(1, "One", nil))

	assert.Equal(t, []string{"12-min-10"}, pendingIdentifiers(t, store))
}

func TestCancelAll(t *testing.T) {
	sync, store := setupSyncTest(t, true)
	start := time.Date(2026, 9, 14, 15, 0, 0, 0, time.UTC)

	require.NoError(t, sync.Sync(7, "Dentist", []PlannedReminder{
		{OffsetMinutes: 10, FireAt: start.Add(-10 * time.Minute)},
		{OffsetMinutes: 60, FireAt: start.Add(-60 * time.Minute)},
	}))

	require.NoError(t, sync.CancelAll(7))
	assert.Empty(t, pendingIdentifiers(t, store))
}

func TestSync_PermissionDeniedNoOps(t *testing.T) {
	sync, store := setupSyncTest(t, false)
	start := time.Date(2026, 9, 14, 15, 0, 0, 0, time.UTC)

	err := sync.Sync(7, "Dentist", []PlannedReminder{
		{OffsetMinutes: 10, FireAt: start.Add(-10 * time.Minute)},
	})
	require.NoError(t, err, "denied permission is not an error")
	assert.Empty(t, pendingIdentifiers(t, store))
}
