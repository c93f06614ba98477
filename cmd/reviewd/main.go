// Command reviewd runs the submission review API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/submission_review/internal/app"
	"github.com/R3E-Network/submission_review/internal/config"
	"github.com/R3E-Network/submission_review/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("REVIEW_CONFIG"), "Path to YAML configuration file (optional)")
	flag.Parse()

	bootLog := logging.NewDefault("reviewd")

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.WithError(err).Fatal("load configuration")
	}
	log := logging.New("reviewd", cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}
	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("start application")
	}
	log.WithField("services", application.Services()).Info("submission review service started")

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown incomplete")
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
