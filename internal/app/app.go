// Package app wires the pipeline components from configuration. The API,
// worker and CLI binaries share it.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/Nweremizu/helm/internal/analytics"
	"github.com/Nweremizu/helm/internal/api/handlers"
	"github.com/Nweremizu/helm/internal/bank"
	"github.com/Nweremizu/helm/internal/banksync"
	"github.com/Nweremizu/helm/internal/categorizer"
	"github.com/Nweremizu/helm/internal/classifier"
	"github.com/Nweremizu/helm/internal/config"
	"github.com/Nweremizu/helm/internal/gcs"
	infraBQ "github.com/Nweremizu/helm/internal/infra/bigquery"
	"github.com/Nweremizu/helm/internal/insights"
	"github.com/Nweremizu/helm/internal/jobs/inmemory"
	"github.com/Nweremizu/helm/internal/scheduler"
	"github.com/Nweremizu/helm/internal/store"
	"github.com/Nweremizu/helm/internal/store/memory"
	"github.com/Nweremizu/helm/internal/store/postgres"
)

// App holds the wired components. Warehouse, Exporter, Audit, Storage and
// Archiver are nil when their GCP settings are absent.
type App struct {
	Config config.Config
	Log    zerolog.Logger

	Store        store.Store
	Bank         bank.Client
	JobStore     *inmemory.Store
	Queue        *inmemory.Queue
	Classifier   classifier.Classifier
	Categorizer  *categorizer.Categorizer
	Scanner      *insights.Scanner
	Trends       *insights.TrendGenerator
	Insights     *insights.Service
	Detector     *analytics.Detector
	Snapshots    *analytics.SnapshotRecorder
	Orchestrator *banksync.Orchestrator

	Warehouse *infraBQ.Warehouse
	Exporter  *infraBQ.TransactionExporter
	Audit     *infraBQ.ModelOutputRecorder
	Storage   *gcs.GCSStorageService
	Archiver  *gcs.Archiver

	closers []func()
}

// New builds every component from cfg. Call Close when done.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	loc := cfg.Location()

	if cfg.Database.URL != "" {
		pg, err := postgres.New(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("app.New: connect postgres: %w", err)
		}
		a.Store = pg
		log.Info().Msg("Using Postgres store")
	} else {
		a.Store = memory.New()
		log.Warn().Msg("No database URL configured, using in-memory store")
	}
	a.closers = append(a.closers, a.Store.Close)

	if cfg.Bank.SecretKey != "" {
		a.Bank = bank.NewHTTPClient(cfg.Bank.BaseURL, cfg.Bank.SecretKey, nil)
	} else {
		a.Bank = bank.NewMockClient()
		log.Warn().Msg("No bank secret key configured, serving mock transactions")
	}

	if err := a.initGCP(ctx, loc); err != nil {
		a.Close()
		return nil, err
	}

	cl, err := classifier.NewFromConfig(ctx, cfg.AI, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}
	a.Classifier = cl

	var catOpts []categorizer.Option
	if a.Audit != nil {
		catOpts = append(catOpts, categorizer.WithAuditor(a.Audit))
	}
	a.Categorizer = categorizer.New(a.Store, cl, log, catOpts...)

	a.JobStore = inmemory.NewStore()
	a.Queue = inmemory.NewQueue(cfg.Jobs.BufferSize, cfg.Jobs.Workers, a.JobStore, log)

	a.Scanner = insights.NewScanner(a.Store, log)
	a.Trends = insights.NewTrendGenerator(a.Store, loc, time.Now, log)
	a.Insights = insights.NewService(a.Store, a.Trends, time.Now, log)
	a.Detector = analytics.NewDetector(a.Store, analytics.DefaultRecurringKeywords(), time.Now)
	a.Snapshots = analytics.NewSnapshotRecorder(a.Store, a.Bank, loc, time.Now, log)

	syncOpts := []banksync.Option{banksync.WithPageTimeout(cfg.Bank.PageTimeout)}
	if a.Archiver != nil {
		syncOpts = append(syncOpts, banksync.WithArchiver(a.Archiver))
	}
	if a.Exporter != nil {
		syncOpts = append(syncOpts, banksync.WithExporter(a.Exporter))
	}
	a.Orchestrator = banksync.New(a.Bank, a.Store, a.Queue, a.Scanner, log, syncOpts...)

	return a, nil
}

func (a *App) initGCP(ctx context.Context, loc *time.Location) error {
	gcp := a.Config.GCP
	var opts []option.ClientOption
	if gcp.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(gcp.CredentialsFile))
	}

	if gcp.ProjectID != "" {
		w, err := infraBQ.NewWarehouse(ctx, gcp.ProjectID, gcp.Dataset, opts...)
		if err != nil {
			return fmt.Errorf("app.New: create warehouse: %w", err)
		}
		a.Warehouse = w
		a.Exporter = infraBQ.NewTransactionExporter(w, loc)
		a.Audit = infraBQ.NewModelOutputRecorder(w)
		a.closers = append(a.closers, func() {
			if err := w.Close(); err != nil {
				a.Log.Error().Err(err).Msg("Failed to close warehouse client")
			}
		})
		a.Log.Info().Str("project", gcp.ProjectID).Str("dataset", gcp.Dataset).Msg("Warehouse export enabled")
	}

	if gcp.ArchiveBucket != "" {
		svc, err := gcs.NewGCSStorageService(ctx, opts...)
		if err != nil {
			return fmt.Errorf("app.New: create storage client: %w", err)
		}
		a.Storage = svc
		a.Archiver = gcs.NewArchiver(svc, gcp.ArchiveBucket, time.Now)
		a.closers = append(a.closers, func() {
			if err := svc.Close(); err != nil {
				a.Log.Error().Err(err).Msg("Failed to close storage client")
			}
		})
		a.Log.Info().Str("bucket", gcp.ArchiveBucket).Msg("Raw page archive enabled")
	}
	return nil
}

// SeedRules installs the default merchant rules, skipping keywords that exist.
func (a *App) SeedRules(ctx context.Context) (int, error) {
	rules, err := categorizer.DefaultSeedRules()
	if err != nil {
		return 0, err
	}
	return categorizer.SeedRules(ctx, a.Store, rules)
}

// StartWorkers starts the categorization queue consumers.
func (a *App) StartWorkers(ctx context.Context) error {
	return a.Queue.Start(ctx, a.Categorizer.HandleJob)
}

// StopWorkers drains in-flight categorization jobs.
func (a *App) StopWorkers(ctx context.Context) error {
	return a.Queue.Stop(ctx)
}

// Router builds the HTTP API.
func (a *App) Router() http.Handler {
	return handlers.NewRouter(handlers.RouterConfig{
		Transactions: handlers.NewTransactionsHandler(a.Store, a.Store, a.Orchestrator, a.Categorizer, a.Log),
		Insights:     handlers.NewInsightsHandler(a.Insights, a.Log),
		Analytics:    handlers.NewAnalyticsHandler(a.Detector, a.Snapshots, a.Log),
		Cron:         handlers.NewCronHandler(a.Insights, a.Snapshots, a.Config.Insights.RetentionDays, time.Now, a.Log),
		Jobs:         handlers.NewJobsHandler(a.JobStore, a.Log),
		CronSecret:   a.Config.Server.CronSecret,
		Log:          a.Log,
	})
}

// Scheduler builds a scheduler with the standard pipeline tasks registered.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(a.Config.Location(), a.Log)
	err := scheduler.Register(s, a.Config.Scheduler, scheduler.Deps{
		Syncer:        a.Orchestrator,
		Accounts:      a.Store,
		Sweeper:       a.Categorizer,
		Archiver:      a.Insights,
		Snapshots:     a.Snapshots,
		Jobs:          a.JobStore,
		RetentionDays: a.Config.Insights.RetentionDays,
		JobRetention:  a.Config.Jobs.Retention,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
