// Package app wires configuration into the database, component templates and
// the history backend shared by the server and the CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Simplici0/stackcost/internal/config"
	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/db"
	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/metrics"
	"github.com/Simplici0/stackcost/internal/migrations"
	"github.com/Simplici0/stackcost/internal/seed"
)

// App holds the opened resources.
type App struct {
	DB        *sql.DB
	Redis     *redis.Client
	Store     history.Store
	Templates []costing.ComponentInputs
}

// Options controls startup side effects.
type Options struct {
	// Migrate applies pending schema migrations before seeding.
	Migrate bool
}

// Open connects to SQLite (and Redis when it backs history), seeds component
// templates and builds the instrumented history store.
func Open(ctx context.Context, cfg config.Config, opts Options, logger *zap.Logger) (*App, error) {
	const operation = "app.Open"

	database, err := db.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	a := &App{DB: database}

	migrated := true
	if opts.Migrate {
		if err := migrations.Up(database); err != nil {
			a.Close()
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
	} else {
		version, err := migrations.Version(database)
		if err != nil || version == 0 {
			migrated = false
			logger.Warn("database schema is not migrated, run `costctl migrate`",
				zap.String("path", cfg.DBPath))
		}
	}

	a.Templates, err = loadTemplates(ctx, cfg, database, migrated, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	store, err := a.openStore(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	a.Store = metrics.InstrumentStore(store)

	logger.Info("history store ready",
		zap.String("backend", cfg.HistoryBackend),
		zap.Int("templates", len(a.Templates)))

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (history.Store, error) {
	switch cfg.HistoryBackend {
	case config.BackendFile:
		return history.NewFileStore(cfg.HistoryDir, logger)
	case config.BackendRedis:
		client, err := db.OpenRedis(ctx, db.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.Redis = client
		return history.NewRedisStore(client, logger), nil
	default:
		return history.NewSQLiteStore(a.DB, logger), nil
	}
}

func loadTemplates(ctx context.Context, cfg config.Config, database *sql.DB, migrated bool, logger *zap.Logger) ([]costing.ComponentInputs, error) {
	templates, err := seed.LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		return nil, err
	}
	if !migrated {
		return templates, nil
	}

	stats, err := seed.Run(ctx, database, templates)
	if err != nil {
		return nil, err
	}
	logger.Info("component templates seeded",
		zap.Int("inserts", stats.Inserts),
		zap.Int("updates", stats.Updates))

	stored, err := seed.Templates(ctx, database)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return seed.DefaultTemplates(), nil
	}
	return stored, nil
}

// Close releases every opened resource.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
