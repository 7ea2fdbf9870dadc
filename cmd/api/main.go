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
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/clientflow-auth/internal/api/http"
	"github.com/spec-kit/clientflow-auth/internal/api/http/handlers"
	"github.com/spec-kit/clientflow-auth/internal/auth"
	"github.com/spec-kit/clientflow-auth/internal/bootstrap"
	"github.com/spec-kit/clientflow-auth/internal/config"
	"github.com/spec-kit/clientflow-auth/internal/events"
	"github.com/spec-kit/clientflow-auth/internal/observability"
	"github.com/spec-kit/clientflow-auth/internal/persistence"
	"github.com/spec-kit/clientflow-auth/internal/ratelimit"
	"github.com/spec-kit/clientflow-auth/internal/repository"
	"github.com/spec-kit/clientflow-auth/internal/repository/memory"
	"github.com/spec-kit/clientflow-auth/internal/service"
	"github.com/spec-kit/clientflow-auth/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	userRepo, tokenRepo := newRepositories(pg)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification, cfg.App))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		TokenRepo:  tokenRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	authenticator := auth.NewAuthenticator(authService.TokenCodec(), tokenRepo, userRepo, logger, metrics)

	if err := bootstrap.EnsureUsers(ctx, cfg.Seed, userRepo, authService, logger); err != nil {
		logger.Fatal("failed to seed users", zap.Error(err))
	}

	var rateLimit fiber.Handler
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(redis.Client, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window(), logger)
		rateLimit = ratelimit.Middleware(limiter, cfg.RateLimit.Prefix)
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.IsProduction(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth: handlers.NewAuthHandler(authService, handlers.RefreshCookie{
			Name:   cfg.Auth.RefreshCookieName,
			Path:   cfg.Auth.RefreshCookiePath,
			Secure: cfg.App.IsProduction(),
		}, logger),
		Users:         handlers.NewUsersHandler(authService),
		Authenticator: authenticator,
		RateLimit:     rateLimit,
	})

	var wg sync.WaitGroup
	cleanup := worker.NewTokenCleanupWorker(tokenRepo, cfg.Auth.CleanupInterval(), cfg.Auth.Retention(), logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Run(ctx)
	}()

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	wg.Wait()
}

func newRepositories(pg *persistence.Postgres) (repository.UserRepository, repository.TokenRepository) {
	if !pg.Configured() {
		return memory.NewUserRepository(), memory.NewTokenRepository()
	}
	return repository.NewUserRepository(pg.Pool), repository.NewTokenRepository(pg.Pool)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
