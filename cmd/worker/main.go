package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"taskpulse/internal/config"
	"taskpulse/internal/eventbus"
	"taskpulse/internal/logging"
	"taskpulse/internal/notifier"
	"taskpulse/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("DATABASE_URL", "REDIS_URL", "VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY", "SERVICE_TOKEN")
	if err != nil {
		bootLog := logging.New("worker", "info", false)
		bootLog.Fatal().Err(err).Msg("configuration invalid")
	}
	log := logging.New("worker", cfg.LogLevel, false)

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	if err := eventbus.PingRedis(ctx, cfg.RedisAddr); err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}

	bus := eventbus.NewAsynqBus(cfg.RedisAddr, 4)
	defer bus.Close()

	worker := &notifier.Worker{
		Tasks:  notifier.NewTaskReader(pool),
		API:    notifier.NewAPIClient(cfg.APIBaseURL, cfg.ServiceToken),
		Sender: notifier.WebPushSender{},
		VAPID: notifier.VAPIDConfig{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subject:    cfg.VAPIDSubject,
		},
		Log: log,
	}

	log.Info().Msg("notification worker starting")
	if err := bus.Subscribe(ctx, eventbus.TopicReminders, worker.Handle); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}
