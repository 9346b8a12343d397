package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/identity"
	"fintrack/internal/log"
	"fintrack/internal/rollup"
	"fintrack/internal/session"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = 5 * time.Minute
	maxSessions     = 1000
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	be := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	publisher, amqpClient := cli.ConnectEvents(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}
	notifier, closeNotifier := cli.Notifier(logger, cfg)
	defer func() { _ = closeNotifier() }()

	ids := identity.NewLocal(be.Store, logger)
	sessions := session.NewManager(be.Store, session.Options{
		UndoLimit:         cfg.UndoLimit,
		RemoveConcurrency: cfg.RemoveAllConcurrency,
		Publisher:         publisher,
		Logger:            logger,
	}, cfg.SessionTTL, maxSessions)
	sessions.Observe(ids)
	defer sessions.Close()

	caches := cache.NewManager(logger)
	caches.Register(sessions)
	caches.StartCleanup(sweepInterval)
	defer caches.Stop()

	savings := rollup.NewService(be.Store,
		rollup.WithPublisher(publisher),
		rollup.WithNotifier(notifier),
		rollup.WithLogger(logger),
		rollup.WithAutoSaveHour(cfg.AutoSaveHour),
	)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Identity: ids,
		Sessions: sessions,
		Savings:  savings,
		Store:    be.Store,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port, "backend", cfg.DataBackend, "autosave", cfg.AutoSaveEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.AutoSaveEnabled {
		sched := rollup.NewScheduler(savings, be.Store, be.Store, cfg.AutoSaveInterval, logger)
		g.Go(func() error {
			if err := sched.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error(), log.FieldOperation, log.OpShutdown)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
