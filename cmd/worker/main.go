package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/app"
	"github.com/Nweremizu/helm/internal/config"
	"github.com/Nweremizu/helm/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config YAML (or set HELM_CONFIG)")
		runOnce    = flag.String("run", "", "Run one task immediately and exit (sync-all, categorize-sweep, archive-insights, daily-snapshot)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	// Syncs dispatch categorization jobs, so the queue runs here too.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	if err := a.StartWorkers(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start categorization workers")
	}

	sched, err := a.Scheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build scheduler")
	}

	if *runOnce != "" {
		if err := sched.RunNow(ctx, *runOnce); err != nil {
			log.Error().Err(err).Str("task", *runOnce).Msg("Task failed")
			drain(a, cfg.Server.ShutdownTimeout, log)
			a.Close()
			os.Exit(1)
		}
		drain(a, cfg.Server.ShutdownTimeout, log)
		fmt.Printf("Task %s completed.\n", *runOnce)
		return
	}

	if !cfg.Scheduler.Enabled {
		log.Warn().Msg("Scheduler disabled in config, nothing to do")
		return
	}

	sched.Start()
	for _, name := range sched.Tasks() {
		if next := sched.Next(name); !next.IsZero() {
			log.Info().Str("task", name).Time("next_run", next).Msg("Next run")
		}
	}

	log.Info().Msg("Worker service started, waiting for schedules...")
	<-ctx.Done()

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Scheduler did not stop cleanly")
	}
	drain(a, cfg.Server.ShutdownTimeout, log)

	log.Info().Msg("Worker service exited")
}

// drain waits for dispatched categorization jobs to finish.
func drain(a *app.App, timeout time.Duration, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.StopWorkers(ctx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
}
