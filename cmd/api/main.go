package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-ai/internal/api/http"
	"github.com/spec-kit/ticket-ai/internal/api/http/handlers"
	"github.com/spec-kit/ticket-ai/internal/auth"
	"github.com/spec-kit/ticket-ai/internal/config"
	"github.com/spec-kit/ticket-ai/internal/events"
	"github.com/spec-kit/ticket-ai/internal/notify"
	"github.com/spec-kit/ticket-ai/internal/observability"
	"github.com/spec-kit/ticket-ai/internal/persistence"
	"github.com/spec-kit/ticket-ai/internal/repository"
	"github.com/spec-kit/ticket-ai/internal/service"
	"github.com/spec-kit/ticket-ai/internal/triage"
	"github.com/spec-kit/ticket-ai/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()
	users, tickets := buildStores(pg, logger)
	dispatcher := buildDispatcher(rdb, cfg, logger)

	notifier, err := notify.New(cfg.Mail, logger)
	if err != nil {
		logger.Fatal("failed to init notifier", zap.Error(err))
	}
	analyzer := triage.NewAnalyzer(cfg.Triage)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(users, tokens, dispatcher, cfg.Auth.BcryptCost, logger)
	userService := service.NewUserService(users)
	ticketService := service.NewTicketService(tickets, users, dispatcher, logger)

	var wg sync.WaitGroup
	if cfg.App.WorkerEnabled {
		intake := service.NewIntakeService(service.IntakeDependencies{
			Tickets:  tickets,
			Users:    users,
			Analyzer: analyzer,
			Notifier: notifier,
			Recorder: metrics,
		}, cfg.Pipeline, logger.Named("intake"))
		welcome := service.NewWelcomeService(users, notifier, metrics, cfg.Pipeline, logger.Named("welcome"))
		eventWorker := worker.NewEventWorker(dispatcher, intake, welcome, logger.Named("worker"))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := eventWorker.Run(ctx); err != nil {
				logger.Error("event worker exited", zap.Error(err))
			}
		}()
	} else if !rdb.Enabled() {
		logger.Warn("worker disabled without redis; created tickets will not be processed")
	}

	limiterStore, err := httptransport.NewLimiterStore(rdb.Client, cfg.RateLimit)
	if err != nil {
		logger.Fatal("failed to init rate limiter", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    rdb,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
		AuthLimiter: httptransport.RateLimit(limiterStore, limiter.Rate{
			Period: cfg.RateLimit.AuthPeriod,
			Limit:  cfg.RateLimit.AuthLimit,
		}, logger),
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	wg.Wait()
}

// buildStores picks Postgres repositories when a pool is open and the
// in-memory store otherwise.
func buildStores(pg *persistence.Postgres, logger *zap.Logger) (repository.UserRepository, repository.TicketRepository) {
	if pg.Enabled() {
		return repository.NewUserRepository(pg.Pool), repository.NewTicketRepository(pg.Pool)
	}
	logger.Warn("using in-memory stores; data is lost on restart")
	store := repository.NewMemoryStore()
	return store.Users(), store.Tickets()
}

func buildDispatcher(rdb *persistence.Redis, cfg *config.Config, logger *zap.Logger) events.Dispatcher {
	if rdb.Enabled() {
		return events.NewRedisDispatcher(rdb.Client, events.StreamConfig{
			Stream:        cfg.Events.Stream,
			Group:         cfg.Events.Group,
			Consumer:      consumerName(cfg.Events.Consumer),
			Block:         cfg.Events.Block,
			ReclaimIdle:   cfg.Events.ReclaimIdle,
			MaxDeliveries: cfg.Events.MaxDeliveries,
			DeadLetter:    cfg.Events.DeadLetterStream,
		}, logger.Named("events"))
	}
	return events.NewInMemoryDispatcher(cfg.Events.BufferSize, logger.Named("events"))
}

// consumerName falls back to the hostname so replicas do not share a
// consumer identity.
func consumerName(configured string) string {
	if configured != "" {
		return configured
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "worker"
	}
	return host
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
