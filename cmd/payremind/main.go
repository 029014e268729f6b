package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"payremind/internal/bot"
	"payremind/internal/config"
	"payremind/internal/notify"
	"payremind/internal/service"
	"payremind/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Telegram.Token == "" {
		log.Fatalf("config: telegram token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatalf("bot api: %v", err)
	}
	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	st, err := store.Select(ctx, store.Capability{Mode: cfg.Storage.Mode, DSN: cfg.Storage.DSN})
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	if closer, ok := st.Store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	var sinks []notify.Sink
	if cfg.Telegram.ChatID != 0 {
		sinks = append(sinks, notify.NewTelegramSink(api, cfg.Telegram.ChatID))
	}
	if cfg.Twilio.Enabled() {
		sinks = append(sinks, notify.NewTwilioSink(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From, cfg.Twilio.To))
	}

	scheduler := notify.NewLocalScheduler(sinks...)
	defer scheduler.Close()
	if err := scheduler.Ready(); err != nil {
		log.Printf("notify: %v — reminders will be tracked without push delivery", err)
	}

	lifecycle := service.NewLifecycle(st, scheduler, cfg.Location)
	if err := lifecycle.Resync(ctx); err != nil && !errors.Is(err, service.ErrNotifyDegraded) {
		log.Fatalf("resync: %v", err)
	}

	digest := service.NewDigest(st, cfg.Location, sinks...)
	if cfg.Notify.Digest && len(sinks) > 0 {
		if err := digest.Start(cfg.Notify.DigestTime); err != nil {
			log.Fatalf("digest: %v", err)
		}
		defer digest.Stop()
	}

	telegramBot := bot.New(api, lifecycle, digest, cfg)

	log.Println("PayRemind bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
