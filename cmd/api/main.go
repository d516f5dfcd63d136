package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billing/internal/app"
	"billing/internal/config"
	"billing/internal/logger"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// @title           Billing Reconciliation API
// @version         1.0
// @description     Applies payments to invoices, tracks advance payments and reports status drift.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	envErr := godotenv.Load("configs/.env")

	cfg, err := config.Load()
	if err != nil {
		_ = logger.Setup(logger.DefaultConfig())
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		_ = logger.Setup(logger.DefaultConfig())
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}
	mainLog := logger.WithComponent("main")
	if envErr != nil {
		mainLog.Debug().Err(envErr).Msg("no configs/.env file loaded")
	}

	if err := app.InitSentry(cfg); err != nil {
		mainLog.Error().Err(err).Msg("sentry init error")
	}
	defer sentry.Flush(2 * time.Second)

	a, err := app.New(cfg)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("failed to start")
	}
	mainLog.Info().Msg("connected to PostgreSQL")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		mainLog.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLog.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	mainLog.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := a.Close(); err != nil {
		mainLog.Error().Err(err).Msg("failed to close resources")
	}
}
