// Command migrate applies schema migrations to the Postgres database or the
// BigQuery warehouse dataset.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/config"
	"github.com/Nweremizu/helm/internal/logger"
)

var (
	target        = flag.String("target", "postgres", "Migration target: postgres or bigquery")
	configPath    = flag.String("config", "", "Path to config file (optional)")
	databaseURL   = flag.String("database-url", "", "Postgres URL (defaults to database.url from config)")
	projectID     = flag.String("project", "", "GCP project ID (defaults to gcp.project_id from config)")
	datasetID     = flag.String("dataset", "", "BigQuery dataset ID (defaults to gcp.dataset from config)")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "", "Path to migrations directory (defaults to migrations/<target>)")
)

func main() {
	flag.Parse()

	log := logger.New()
	if err := run(context.Background(), log); err != nil {
		log.Fatal().Err(err).Str("target", *target).Msg("Migration failed")
	}
}

func run(ctx context.Context, log zerolog.Logger) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir := *migrationsDir
	if dir == "" {
		dir = "migrations/" + *target
	}

	switch *target {
	case "postgres":
		url := firstNonEmpty(*databaseURL, cfg.Database.URL)
		if url == "" {
			return errors.New("postgres URL is required: set -database-url or DATABASE_URL")
		}
		return migratePostgres(url, dir, log)

	case "bigquery":
		project := firstNonEmpty(*projectID, cfg.GCP.ProjectID)
		if project == "" {
			return errors.New("GCP project is required: set -project or GOOGLE_CLOUD_PROJECT")
		}
		m, err := newBQMigrator(ctx, project, firstNonEmpty(*datasetID, cfg.GCP.Dataset), *appliedBy, cfg.GCP.CredentialsFile)
		if err != nil {
			return fmt.Errorf("create BigQuery client: %w", err)
		}
		defer m.Close()
		return m.Run(ctx, dir, log)
	}
	return fmt.Errorf("unknown migration target %q", *target)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
