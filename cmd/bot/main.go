package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tazhate/eventbot/config"
	"github.com/tazhate/eventbot/internal/bot"
	"github.com/tazhate/eventbot/internal/notify"
	"github.com/tazhate/eventbot/internal/scheduler"
	"github.com/tazhate/eventbot/internal/service"
	"github.com/tazhate/eventbot/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	sink := notify.NewStoreSink(store, cfg.NotificationsEnabled)
	notifier := notify.NewSynchronizer(sink)

	eventSvc := service.NewEventService(store, notifier, cfg.Timezone)
	lifecycleSvc := service.NewLifecycleService(store, notifier, cfg.Timezone)

	tgBot, err := bot.New(cfg, eventSvc)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	sched := scheduler.New(cfg, store, eventSvc, lifecycleSvc)
	sched.SetSender(tgBot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Printf("Bot error: %v", err)
		}
	}()

	log.Println("EventBot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	sched.Stop()

	log.Println("EventBot stopped")
}
