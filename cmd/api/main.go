package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/raffle-service/internal/api/http"
	"github.com/spec-kit/raffle-service/internal/api/http/handlers"
	"github.com/spec-kit/raffle-service/internal/auth"
	"github.com/spec-kit/raffle-service/internal/config"
	"github.com/spec-kit/raffle-service/internal/events"
	"github.com/spec-kit/raffle-service/internal/mail"
	"github.com/spec-kit/raffle-service/internal/observability"
	"github.com/spec-kit/raffle-service/internal/persistence"
	"github.com/spec-kit/raffle-service/internal/ratelimit"
	"github.com/spec-kit/raffle-service/internal/repository"
	"github.com/spec-kit/raffle-service/internal/service"
	"github.com/spec-kit/raffle-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.Logger)
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)

	eventBus := events.NewInMemoryDispatcher()
	mailer := mail.NewClient(cfg.Mail.APIURL, cfg.Mail.ServerToken, cfg.Mail.FromEmail, cfg.Mail.Timeout())

	accountService := service.NewAccountService(*cfg, service.AccountDependencies{
		AccountRepo: accountRepo,
		Dispatcher:  eventBus,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(*cfg, service.TicketDependencies{
		TicketRepo: ticketRepo,
		Cache:      redis,
		Dispatcher: eventBus,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(*cfg, service.NotificationDependencies{
		Dispatcher:  eventBus,
		AccountRepo: accountRepo,
		Mailer:      mailer,
		Logger:      logger,
	})
	auditService := service.NewAuditService(service.AuditDependencies{
		Dispatcher: eventBus,
		AuditRepo:  auditRepo,
		Logger:     logger,
	})
	worker.StartNotificationWorker(notificationService)
	worker.StartAuditWorker(auditService)

	limiter := ratelimit.NewLimiter(selectLimiterStore(ctx, redis, logger), limiterWindows(cfg.RateLimit))
	guard := auth.NewGuard(accountService.TokenManager(), accountRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Accounts:   handlers.NewAccountHandler(accountService),
		Tickets:    handlers.NewTicketHandler(ticketService),
		Dispatcher: httptransport.NewDispatcher(guard, limiter, metrics, logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// selectLimiterStore prefers the shared Redis counter; when Redis is down at
// boot the limiter degrades to a per-process memory store.
func selectLimiterStore(ctx context.Context, redis *persistence.Redis, logger *zap.Logger) ratelimit.Store {
	if redis.Available(ctx) {
		return ratelimit.NewRedisStore(redis.Client)
	}

	logger.Warn("redis unavailable, rate limiting falls back to in-memory store")
	store := ratelimit.NewMemoryStore()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				store.Cleanup()
			}
		}
	}()
	return store
}

func limiterWindows(cfg config.RateLimitConfig) map[ratelimit.Class]ratelimit.Window {
	return map[ratelimit.Class]ratelimit.Window{
		ratelimit.ClassRead:   {Requests: cfg.Read.Requests, Length: cfg.Read.Window()},
		ratelimit.ClassWrite:  {Requests: cfg.Write.Requests, Length: cfg.Write.Window()},
		ratelimit.ClassSearch: {Requests: cfg.Search.Requests, Length: cfg.Search.Window()},
		ratelimit.ClassAuth:   {Requests: cfg.Auth.Requests, Length: cfg.Auth.Window()},
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
