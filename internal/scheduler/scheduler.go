package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tazhate/eventbot/config"
	"github.com/tazhate/eventbot/internal/service"
	"github.com/tazhate/eventbot/internal/storage"
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Scheduler drives the periodic work: the lifecycle tick, delivery of due
// notifications and the morning agenda digest.
type Scheduler struct {
	cron         *cron.Cron
	cfg          *config.Config
	storage      *storage.Storage
	eventService *service.EventService
	lifecycle    *service.LifecycleService
	sender       MessageSender
}

func New(cfg *config.Config, storage *storage.Storage, eventSvc *service.EventService, lifecycleSvc *service.LifecycleService) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:         c,
		cfg:          cfg,
		storage:      storage,
		eventService: eventSvc,
		lifecycle:    lifecycleSvc,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) Start(ctx context.Context) error {
	// Lifecycle pass + notification delivery every minute
	if _, err := s.cron.AddFunc("* * * * *", s.runTick); err != nil {
		return fmt.Errorf("add lifecycle tick: %w", err)
	}
	if _, err := s.cron.AddFunc("* * * * *", s.dispatchNotifications); err != nil {
		return fmt.Errorf("add notification dispatch: %w", err)
	}

	digestSpec, err := cronSpecForTime(s.cfg.DigestTime)
	if err != nil {
		return fmt.Errorf("digest time: %w", err)
	}
	if _, err := s.cron.AddFunc(digestSpec, s.morningDigest); err != nil {
		return fmt.Errorf("add morning digest: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, digest: %s)", s.cfg.Timezone, s.cfg.DigestTime)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// cronSpecForTime turns "HH:MM" into a daily cron spec.
func cronSpecForTime(t string) (string, error) {
	parts := strings.Split(t, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format: %s", t)
	}
	return fmt.Sprintf("%s %s * * *", parts[1], parts[0]), nil
}

func (s *Scheduler) runTick() {
	now := time.Now().In(s.cfg.Timezone)

	res, err := s.lifecycle.Tick(now)
	if err != nil {
		log.Printf("Lifecycle tick error: %v", err)
		return
	}
	if res.Archived > 0 || res.Spawned > 0 || res.Failed > 0 {
		log.Printf("Lifecycle tick: scanned=%d archived=%d spawned=%d skipped=%d failed=%d",
			res.Scanned, res.Archived, res.Spawned, res.Skipped, res.Failed)
	}
}

func (s *Scheduler) dispatchNotifications() {
	if s.sender == nil {
		return
	}

	now := time.Now().In(s.cfg.Timezone)
	due, err := s.storage.ListDueNotifications(now)
	if err != nil {
		log.Printf("Error getting due notifications: %v", err)
		return
	}

	for _, n := range due {
		text := fmt.Sprintf("🔔 <b>Reminder</b>\n\n%s", n.Body)
		if err := s.sender.SendMessage(s.cfg.OwnerTelegramID, text); err != nil {
			log.Printf("Error sending notification %s: %v", n.Identifier, err)
			continue
		}

		// Delete only after a successful send; a failed delivery retries
		// on the next pass.
		if err := s.storage.DeleteNotifications([]string{n.Identifier}); err != nil {
			log.Printf("Error deleting notification %s: %v", n.Identifier, err)
		}
	}
}

func (s *Scheduler) morningDigest() {
	if s.sender == nil {
		return
	}

	today := time.Now().In(s.cfg.Timezone)
	events, err := s.eventService.ListForDay(today)
	if err != nil {
		log.Printf("Error getting today's events: %v", err)
		return
	}

	text := "☀️ <b>Good morning!</b>\n\n"
	if len(events) == 0 {
		text += "No events today. Enjoy your day!"
	} else {
		text += fmt.Sprintf("<b>%d event(s) today:</b>\n\n", len(events))
		text += s.eventService.FormatEventList(events)
	}

	if err := s.sender.SendMessage(s.cfg.OwnerTelegramID, text); err != nil {
		log.Printf("Error sending morning digest: %v", err)
	}
}
