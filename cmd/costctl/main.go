// Command costctl runs cost estimates and strip yield calculations from YAML job
// files and manages the saved history.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/stackcost/internal/app"
	"github.com/Simplici0/stackcost/internal/config"
	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/logging"
	"github.com/Simplici0/stackcost/internal/migrations"
)

// resources is what the history-backed commands need. It is opened lazily so
// that plain calculations never touch the database.
type resources struct {
	store   history.Store
	migrate func() (int64, error)
	logger  *zap.Logger
	close   func() error
}

type openFunc func(ctx context.Context) (*resources, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openResources, time.Now).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func openResources(ctx context.Context) (*resources, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	a, err := app.Open(ctx, cfg, app.Options{Migrate: true}, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &resources{
		store: a.Store,
		migrate: func() (int64, error) {
			if err := migrations.Up(a.DB); err != nil {
				return 0, err
			}
			return migrations.Version(a.DB)
		},
		logger: logger,
		close: func() error {
			_ = logger.Sync()
			return a.Close()
		},
	}, nil
}
