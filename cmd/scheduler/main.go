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
	"taskpulse/internal/scheduler"
	"taskpulse/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("DATABASE_URL", "REDIS_URL")
	if err != nil {
		bootLog := logging.New("scheduler", "info", false)
		bootLog.Fatal().Err(err).Msg("configuration invalid")
	}
	log := logging.New("scheduler", cfg.LogLevel, false)

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	if err := eventbus.PingRedis(ctx, cfg.RedisAddr); err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}

	bus := eventbus.NewAsynqBus(cfg.RedisAddr, 1)
	defer bus.Close()

	log.Info().Dur("interval", cfg.SchedulerTickInterval).Msg("scheduler starting")
	if err := scheduler.Run(ctx, pool, bus, cfg.SchedulerTickInterval, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("scheduler stopped")
	}
}
