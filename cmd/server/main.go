package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/stackcost/internal/app"
	"github.com/Simplici0/stackcost/internal/config"
	"github.com/Simplici0/stackcost/internal/costing"
	"github.com/Simplici0/stackcost/internal/history"
	"github.com/Simplici0/stackcost/internal/logging"
)

type server struct {
	auth      *authService
	store     history.Store
	templates []costing.ComponentInputs
	logger    *zap.Logger
	now       func() time.Time
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stackcost: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, app.Options{Migrate: cfg.IsDev()}, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	auth, err := newAuthService(cfg.CostPassword, cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}

	srv := &server{
		auth:      auth,
		store:     a.Store,
		templates: a.Templates,
		logger:    logger,
		now:       time.Now,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", httpServer.Addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
