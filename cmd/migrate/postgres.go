package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// migratePostgres applies every pending up migration in dir.
func migratePostgres(databaseURL, dir string, log zerolog.Logger) error {
	dir, err := findMigrationsDir(dir)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("migratePostgres: sql.Open: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migratePostgres: postgres.WithInstance: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migratePostgres: migrate.NewWithDatabaseInstance: %w", err)
	}

	pre, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		pre = 0
	} else if err != nil {
		return fmt.Errorf("migratePostgres: reading version: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migratePostgres: up: %w", err)
	}

	post, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("migratePostgres: reading version: %w", err)
	}

	log.Info().
		Uint("pre_migration_version", pre).
		Uint("post_migration_version", post).
		Bool("dirty", dirty).
		Msg("Migration status")
	return nil
}
