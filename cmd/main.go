// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/Shivanand-hulikatti/interview-registration/internal/auth"
	"github.com/Shivanand-hulikatti/interview-registration/internal/config"
	"github.com/Shivanand-hulikatti/interview-registration/internal/database"
	"github.com/Shivanand-hulikatti/interview-registration/internal/handler"
	"github.com/Shivanand-hulikatti/interview-registration/internal/logger"
	"github.com/Shivanand-hulikatti/interview-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/interview-registration/internal/notify"
	"github.com/Shivanand-hulikatti/interview-registration/internal/repository"
	"github.com/Shivanand-hulikatti/interview-registration/internal/repository/memory"
	"github.com/Shivanand-hulikatti/interview-registration/internal/service"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// ── 1. Storage ───────────────────────────────────────────────────────
	stores, logs, closeStore, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 2. Notifications ─────────────────────────────────────────────────
	dispatchOpts := []notify.Option{
		notify.WithQueueSize(cfg.Notify.QueueSize),
		notify.WithWorkers(cfg.Notify.Workers),
		notify.WithLogStore(logs),
		notify.WithLogger(log),
		notify.WithMetrics(m),
	}
	if cfg.Redis.URL != "" {
		rdb, err := openRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		dispatchOpts = append(dispatchOpts, notify.WithDeduper(notify.NewRedisDeduper(rdb, cfg.Notify.DedupeTTL)))
		log.Info("notification dedupe enabled")
	}
	dispatcher := notify.NewDispatcher(notify.NewLogSender(log), dispatchOpts...)

	// ── 3. Wire up layers ────────────────────────────────────────────────
	svcOpts := []service.Option{
		service.WithPassThreshold(cfg.Results.PassThreshold),
		service.WithPublisher(dispatcher),
		service.WithMetrics(m),
		service.WithLogger(log),
	}
	router := handler.NewRouter(handler.RouterConfig{
		Registrations: handler.NewRegistrationHandler(service.NewRegistrationService(stores, svcOpts...), log),
		Interviews:    handler.NewInterviewHandler(service.NewInterviewService(stores, svcOpts...), log),
		Validator:     auth.NewValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Metrics:       m,
		Logger:        log,
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		log.Info("server listening", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openStorage returns the service stores and notification log for the configured driver.
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.Stores, notify.LogStore, func(), error) {
	if cfg.Storage.Driver == config.DriverMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		store := memory.New()
		return service.Stores{
			Tx:            store,
			Interviews:    store.Interviews(),
			Slots:         store.Slots(),
			Ledger:        store.Ledger(),
			Registrations: store.Registrations(),
		}, store.NotificationLogs(), func() {}, nil
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL,
		database.WithMaxConns(cfg.Database.MaxConns),
		database.WithMinConns(cfg.Database.MinConns),
		database.WithConnectAttempts(cfg.Database.ConnectAttempts),
		database.WithLogger(log),
	)
	if err != nil {
		return service.Stores{}, nil, nil, fmt.Errorf("database: %w", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return service.Stores{}, nil, nil, fmt.Errorf("database: %w", err)
	}
	log.Info("connected to postgres")

	return service.Stores{
		Tx:            database.NewTransactor(pool),
		Interviews:    repository.NewInterviewRepository(pool),
		Slots:         repository.NewSlotRepository(pool),
		Ledger:        repository.NewLedger(pool),
		Registrations: repository.NewRegistrationRepository(pool),
	}, repository.NewNotificationLogRepository(pool), pool.Close, nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
