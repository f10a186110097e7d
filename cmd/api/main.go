package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskpulse/internal/api"
	"taskpulse/internal/app"
	"taskpulse/internal/config"
	"taskpulse/internal/eventbus"
	"taskpulse/internal/logging"
	"taskpulse/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("DATABASE_URL", "REDIS_URL", "JWT_SECRET", "SERVICE_TOKEN")
	if err != nil {
		bootLog := logging.New("api", "info", false)
		bootLog.Fatal().Err(err).Msg("configuration invalid")
	}
	log := logging.New("api", cfg.LogLevel, false)

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	bus := eventbus.NewAsynqBus(cfg.RedisAddr, 1)
	defer bus.Close()

	r := api.NewRouter(app.Deps{DB: pool, Bus: bus, Cfg: cfg, Log: log})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", srv.Addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}
