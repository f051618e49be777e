package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/asbolsyn/asbolsyn-bot/internal/analytics"
	"github.com/asbolsyn/asbolsyn-bot/internal/bot"
	"github.com/asbolsyn/asbolsyn-bot/internal/catalog"
	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/database"
	"github.com/asbolsyn/asbolsyn-bot/internal/earnings"
	"github.com/asbolsyn/asbolsyn-bot/internal/health"
	"github.com/asbolsyn/asbolsyn-bot/internal/i18n"
	"github.com/asbolsyn/asbolsyn-bot/internal/idempotency"
	"github.com/asbolsyn/asbolsyn-bot/internal/jobs"
	jobhandlers "github.com/asbolsyn/asbolsyn-bot/internal/jobs/handlers"
	"github.com/asbolsyn/asbolsyn-bot/internal/lifecycle"
	"github.com/asbolsyn/asbolsyn-bot/internal/middleware"
	"github.com/asbolsyn/asbolsyn-bot/internal/order"
	"github.com/asbolsyn/asbolsyn-bot/internal/payment"
	"github.com/asbolsyn/asbolsyn-bot/internal/ratelimit"
	"github.com/asbolsyn/asbolsyn-bot/internal/repository"
	"github.com/asbolsyn/asbolsyn-bot/internal/state"
	"github.com/asbolsyn/asbolsyn-bot/internal/sweeper"
	"github.com/asbolsyn/asbolsyn-bot/internal/vendor"
	"github.com/asbolsyn/asbolsyn-bot/internal/vendorcache"
	"github.com/asbolsyn/asbolsyn-bot/pkg/config"
	"github.com/asbolsyn/asbolsyn-bot/pkg/graceful"
	"github.com/asbolsyn/asbolsyn-bot/pkg/logger"
	"github.com/asbolsyn/asbolsyn-bot/pkg/metrics"
	pkgredis "github.com/asbolsyn/asbolsyn-bot/pkg/redis"

	_ "github.com/lib/pq"
)

const (
	stateTTL             = 24 * time.Hour
	stateCleanupInterval = time.Hour
	idempotencySweep     = 10 * time.Minute
	rateLimitSweep       = 5 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, _, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     "asbolsyn-bot",
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(cfg.Logger, cfg.Sentry.Enabled)
	log.Info("starting asbolsyn bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("http_port", cfg.Server.Port),
	)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	redisClient, err := pkgredis.New(ctx, pkgredis.Config{
		Addr:            cfg.Redis.Addr,
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		PoolTimeout:     cfg.Redis.PoolTimeout,
		IdleTimeout:     cfg.Redis.IdleTimeout,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	instrumentedRedis := pkgredis.NewMetricsClient(redisClient)

	// Conversation state machine.
	stateStorage := state.NewRedisStorage(redisClient.Client, log)
	fsm := state.NewStateMachine(stateStorage, log, redisClient.Client)
	stateCleaner := state.NewCleaner(redisClient.Client, stateStorage, log, stateTTL, stateCleanupInterval)
	go stateCleaner.Run(ctx)

	// Callback idempotency.
	idemStore := idempotency.NewRedisStore(redisClient.Client, log)
	idemManager := idempotency.NewManager(idemStore, log)
	go idempotency.NewCleaner(redisClient.Client, log, idempotencySweep).Run(ctx)

	// Rate limiting with in-memory fallback when Redis degrades.
	rules := ratelimit.NewRules(cfg.RateLimit)
	limiter := ratelimit.NewAdaptiveLimiter(
		ratelimit.NewRedisLimiter(redisClient.Client, log),
		ratelimit.NewMemoryLimiter(log),
		log,
	)
	go ratelimit.NewCleaner(redisClient.Client, log, rateLimitSweep).Run(ctx)
	rateLimitMw := middleware.NewRateLimitMiddleware(limiter, rules, log)

	clk, err := clock.NewService(cfg.Marketplace.Timezone)
	if err != nil {
		return fmt.Errorf("init clock: %w", err)
	}

	defaultRate, err := decimal.NewFromString(cfg.Marketplace.DefaultCommissionRate)
	if err != nil {
		return fmt.Errorf("parse default commission rate: %w", err)
	}

	vendorRepo := repository.NewVendorRepository(db, log)
	consumerRepo := repository.NewConsumerRepository(db, log)
	listingRepo := repository.NewListingRepository(db, log)
	orderRepo := repository.NewOrderRepository(db, log)
	earningRepo := repository.NewEarningRepository(db, log)
	commissionRepo := repository.NewCommissionRepository(db, log)
	payoutRepo := repository.NewPayoutRepository(db, log)
	metricRepo := repository.NewMetricRepository(db, log)

	tracker := analytics.NewTracker(metricRepo, clk, log)
	vendorCache := vendorcache.NewCache(instrumentedRedis)

	vendorSvc := vendor.NewService(vendorRepo, consumerRepo, listingRepo, vendorCache, clk, tracker, log)
	catalogSvc := catalog.NewService(listingRepo, cfg.Marketplace.DefaultRadiusKm, log)
	earningsSvc := earnings.NewService(earningRepo, commissionRepo, payoutRepo, clk, tracker, defaultRate, log)
	orderSvc := order.NewService(db, orderRepo, listingRepo, earningsSvc, clk, tracker, cfg.Marketplace.RestockOnCancel, log)
	listingSweeper := sweeper.New(listingRepo, clk, log)

	if err := earningsSvc.SeedDefaultRate(ctx); err != nil {
		return fmt.Errorf("seed commission rate: %w", err)
	}

	gateway := payment.NewGateway(cfg.Payment, log)

	i18nManager, err := i18n.Load("en")
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	b, err := bot.New(*cfg, log, bot.Deps{
		FSM:                fsm,
		Vendors:            vendorSvc,
		Catalog:            catalogSvc,
		Orders:             orderSvc,
		Earnings:           earningsSvc,
		PaymentGateway:     gateway,
		Clock:              clk,
		Translator:         i18nManager.Translator("en"),
		IdempotencyManager: idemManager,
		RateLimitMw:        rateLimitMw,
	})
	if err != nil {
		return fmt.Errorf("init bot: %w", err)
	}

	// HTTP server: payment webhook, Prometheus metrics, health probes.
	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	probes := lifecycle.NewProbes(log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/payments/webhook", payment.NewWebhookHandler(
		gateway,
		payment.NewIdempotentConfirmer(b.PaidOrderConfirmer(), idemManager),
		log,
	))
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		if err := probes.Liveness(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())

		status := http.StatusOK
		for _, result := range results {
			if result != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})

	httpServer := graceful.NewServer(log, &http.Server{
		Addr:    cfg.Server.Port,
		Handler: logger.Middleware(middleware.New(log)(mux)),
	}, cfg.Server.ShutdownTimeout)
	go func() {
		if err := httpServer.ListenAndServe(ctx); err != nil {
			log.Error("http server stopped", slog.Any("error", err))
		}
	}()

	// Background jobs: periodic listing sweep and stale state cleanup.
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	queue := jobs.NewManager(redisOpt, log)
	scheduler := jobs.NewScheduler(redisOpt, cfg.Jobs.SweepCron, log)
	if err := scheduler.RegisterTasks(); err != nil {
		return fmt.Errorf("register scheduled tasks: %w", err)
	}
	go scheduler.Run()

	worker := jobs.NewWorker(redisOpt, cfg.Jobs.Queues, cfg.Jobs.Concurrency, log)
	worker.RegisterHandler(jobs.TaskTypeListingSweep, jobhandlers.NewListingSweepHandler(listingSweeper, log))
	worker.RegisterHandler(jobs.TaskTypeStateCleanup, jobhandlers.NewStateCleanupHandler(stateCleaner, log))
	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped", slog.Any("error", err))
		}
	}()

	// Sweep once on boot so listings expired while the bot was down do not
	// linger until the first cron tick.
	if task, err := jobs.NewListingSweepTask(); err == nil {
		if _, err := queue.Enqueue(ctx, task); err != nil {
			log.Warn("failed to enqueue boot sweep", slog.Any("error", err))
		}
	}

	go metrics.NewStateCollector(fsm).Run(ctx)

	go b.Start()
	log.Info("bot is running")

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("telegram bot", func(context.Context) error {
		b.Stop()
		return nil
	})
	shutdown.Register("jobs worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})
	shutdown.Register("jobs scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})
	shutdown.Register("jobs queue", func(context.Context) error {
		return queue.Close()
	})

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}
