package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/skillsvault/backend/internal/config"
	"github.com/skillsvault/backend/internal/database"
	"github.com/skillsvault/backend/internal/ledger"
	"github.com/skillsvault/backend/internal/metrics"
	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/notify"
	"github.com/skillsvault/backend/internal/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if cfg.UsingDevSecret() {
		logger.Warn("JWT_SECRET not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("cannot reach PostgreSQL, ensure it is running: %w", err)
	}
	defer pool.Close()
	logger.Info("Connected to PostgreSQL database successfully!")

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var publisher notify.Publisher
	if cfg.RedisURL != "" {
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := goredis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, realtime fan-out will fail until it recovers", "error", err)
		}
		publisher = notify.NewRedisPublisher(rdb)
	} else {
		logger.Info("REDIS_URL not set, realtime fan-out disabled")
	}

	repos := repositories{
		profiles:     repository.NewProfileRepo(pool),
		skills:       repository.NewSkillRepo(pool),
		requests:     repository.NewRequestRepo(pool),
		transactions: repository.NewTransactionRepo(pool),
		messages:     repository.NewMessageRepo(pool),
		ratings:      repository.NewRatingRepo(pool),
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewMessageWorker(repos.messages, publisher, m, logger))
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.NotifyWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return fmt.Errorf("create River client: %w", err)
	}
	enqueue := func(ctx context.Context, args notify.MessageArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	}
	notifier := notify.NewNotifier(enqueue, repos.skills, m, logger)

	ledgerSvc := ledger.NewService(ledger.Stores{
		DB:           pool,
		Requests:     repos.requests,
		Balances:     repos.profiles,
		Transactions: repos.transactions,
	},
		ledger.WithLogger(logger),
		ledger.WithRecorder(m),
		ledger.WithRetry(cfg.LedgerMaxRetries, 0, 0),
		ledger.WithTxTimeout(cfg.LedgerTxTimeout),
		ledger.WithNotifier(notifier),
	)

	mux, err := newMux(cfg, repos, ledgerSvc, notifier, publisher, logger)
	if err != nil {
		return err
	}
	registerOps(mux, pool, reg)

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(middleware.Instrument(m)(mux))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := riverClient.Start(gctx); err != nil {
			return fmt.Errorf("start River client: %w", err)
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return riverClient.Stop(stopCtx)
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
