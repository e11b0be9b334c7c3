package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kanflow/movedigest/internal/api"
	"github.com/kanflow/movedigest/internal/api/handler"
	"github.com/kanflow/movedigest/internal/config"
	"github.com/kanflow/movedigest/internal/db"
	"github.com/kanflow/movedigest/internal/digest"
	"github.com/kanflow/movedigest/internal/email"
	"github.com/kanflow/movedigest/internal/metrics"
	"github.com/kanflow/movedigest/internal/ratelimiter"
	"github.com/kanflow/movedigest/internal/repository"
	"github.com/kanflow/movedigest/internal/service"
	"github.com/kanflow/movedigest/internal/storage/sqlite"
	"github.com/kanflow/movedigest/internal/worker"
)

// stores bundles whichever backend STORE_DRIVER selected.
type stores struct {
	directory repository.Directory
	pending   repository.PendingEmailRepository
	pinger    handler.Pinger
	close     func()
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sender, err := newSender(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create email sender", zap.Error(err))
	}
	sender = email.RateLimited(sender, ratelimiter.New(cfg.EmailRateLimit))

	notifier := service.NewMoveNotifier(st.directory, st.pending, logger, service.NotifierHooks{
		OnQueued: m.NotifierHooks(),
	})

	onClaimed, onSent, onFailed, onRun := m.DispatcherHooks()
	dispatcher := service.NewDigestDispatcher(st.pending, sender, cfg.BaseURL, logger, service.DispatcherHooks{
		OnClaimed: onClaimed,
		OnSent:    onSent,
		OnFailed:  onFailed,
		OnRun:     onRun,
		OnPending: m.SetPending,
	}).WithSendTimeout(cfg.EmailTimeout)

	// ---- in-process schedule ----
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	if cfg.DigestInterval > 0 {
		sched := worker.NewDigestScheduler(dispatcher, cfg.DigestInterval, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(workerCtx)
		}()
	}

	// ---- HTTP server ----
	router := api.NewRouter(api.Deps{
		Queuer:     notifier,
		Dispatcher: dispatcher,
		Pending:    st.pending,
		Store:      st.pinger,
		Gatherer:   reg,
		CronSecret: cfg.CronSecret,
		Logger:     logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("email_transport", cfg.EmailTransport),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests; in-flight dispatches finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the scheduler and wait for its current tick.
	cancelWorkers()
	wg.Wait()

	logger.Info("server stopped cleanly")
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &stores{
			directory: s,
			pending:   s,
			pinger:    s,
			close:     func() { _ = s.Close() },
		}, nil

	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(cfg.DatabaseURL, "migrations"); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database migrations applied")
		return &stores{
			directory: repository.NewPgDirectory(pool),
			pending:   repository.NewPgPendingEmailRepository(pool),
			pinger:    pool,
			close:     pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func newSender(cfg *config.Config, logger *zap.Logger) (email.Sender, error) {
	switch cfg.EmailTransport {
	case config.TransportSMTP:
		renderer, err := digest.NewRenderer(cfg.EmailFromName)
		if err != nil {
			return nil, err
		}
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
		}, renderer), nil
	case config.TransportWebhook:
		return email.NewWebhookSender(cfg.EmailWebhookURL, cfg.EmailWebhookToken, cfg.EmailTimeout), nil
	default:
		return email.NewLogSender(logger), nil
	}
}
