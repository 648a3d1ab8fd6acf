package service

import (
	"fmt"
	"log"
	"time"

	"github.com/tazhate/eventbot/internal/domain"
	"github.com/tazhate/eventbot/internal/notify"
	"github.com/tazhate/eventbot/internal/storage"
)

// LifecycleService archives events whose effective end has passed and spawns
// the next occurrence of repeating ones. Tick is the single entry point; the
// scheduler calls it periodically.
type LifecycleService struct {
	storage  *storage.Storage
	notifier *notify.Synchronizer
	timezone *time.Location
}

func NewLifecycleService(s *storage.Storage, notifier *notify.Synchronizer, tz *time.Location) *LifecycleService {
	if tz == nil {
		tz = time.Local
	}
	return &LifecycleService{
		storage:  s,
		notifier: notifier,
		timezone: tz,
	}
}

// TickResult summarizes one lifecycle pass.
type TickResult struct {
	Scanned  int
	Archived int
	Spawned  int
	Skipped  int
	Failed   int
}

// Tick evaluates every active event against now. Each event is processed
// independently: one failure is logged and counted, never propagated to
// abort the rest of the batch.
func (s *LifecycleService) Tick(now time.Time) (*TickResult, error) {
	events, err := s.storage.ListActiveEvents()
	if err != nil {
		return nil, fmt.Errorf("list active events: %w", err)
	}

	res := &TickResult{Scanned: len(events)}
	for _, e := range events {
		if err := s.processEvent(e, now, res); err != nil {
			res.Failed++
			log.Printf("Lifecycle: event #%d: %v", e.ID, err)
		}
	}
	return res, nil
}

func (s *LifecycleService) processEvent(e *domain.Event, now time.Time, res *TickResult) error {
	end, ok := e.EffectiveEnd(s.timezone)
	if !ok {
		// Unresolvable time: skip for this cycle, re-evaluated next tick.
		res.Skipped++
		return nil
	}
	if end.After(now) {
		return nil
	}

	if e.Repeats() {
		return s.spawnAndArchive(e, now, res)
	}

	if err := s.storage.ArchiveEvent(e.ID); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	res.Archived++

	if err := s.notifier.CancelAll(e.ID); err != nil {
		// The record is already archived; stale reminders are an acceptable
		// leftover and will not resurrect the event.
		log.Printf("Lifecycle: cancel notifications for #%d: %v", e.ID, err)
	}
	return nil
}

func (s *LifecycleService) spawnAndArchive(e *domain.Event, now time.Time, res *TickResult) error {
	next := e.NextOccurrence(s.timezone)
	if next == nil {
		return fmt.Errorf("next occurrence unresolvable")
	}

	// Spawn and archive commit together; the insert goes first inside the
	// transaction so a partial failure cannot end the series.
	if err := s.storage.SpawnNextAndArchive(next, e.ID); err != nil {
		return fmt.Errorf("spawn next occurrence: %w", err)
	}
	res.Spawned++
	res.Archived++

	if err := s.notifier.CancelAll(e.ID); err != nil {
		log.Printf("Lifecycle: cancel notifications for #%d: %v", e.ID, err)
	}

	start, ok := next.StartInstant(s.timezone)
	if !ok {
		return nil
	}
	planned := notify.Plan(start, next.ReminderIntervals, now)
	if err := s.notifier.Sync(next.ID, next.DisplayTitle(), planned); err != nil {
		// The occurrence is committed; reminders can be rebuilt on the next
		// edit or sync, so this is logged rather than failed.
		log.Printf("Lifecycle: sync notifications for #%d: %v", next.ID, err)
	}
	return nil
}
