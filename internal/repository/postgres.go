package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type PoolConfig struct {
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetimeS int
	ConnMaxIdleTimeS int
	// ConnectTimeout bounds how long NewPostgresDB keeps retrying the
	// initial ping. Zero means a single attempt.
	ConnectTimeout time.Duration
}

func NewPostgresDB(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresDB: open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeS) * time.Second)

	var b backoff.BackOff = &backoff.StopBackOff{}
	if pool.ConnectTimeout > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = pool.ConnectTimeout
		b = eb
	}

	attempt := 0
	ping := func() error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			slog.Info("waiting for database", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgresDB: ping: %w", err)
	}

	return db, nil
}

// Migrate applies every pending up migration found in dir.
func Migrate(db *sql.DB, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("Migrate: %w", err)
	}
	source := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("Migrate: driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source.String(), "postgres", driver)
	if err != nil {
		return fmt.Errorf("Migrate: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("no new migrations")
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("Migrate: no migrations in %s: %w", abs, err)
		}
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return fmt.Errorf("Migrate: dirty database version %d", dirty.Version)
		}
		return fmt.Errorf("Migrate: %w", err)
	}

	version, _, _ := m.Version()
	slog.Info("migrations applied", "version", version)
	return nil
}

// FindMigrationsDir walks up from the working directory looking for a
// migrations directory, so tests can run from any package.
func FindMigrationsDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "migrations"
	}
	for range 10 {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return "migrations"
}
