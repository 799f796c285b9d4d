package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/corvid-labs/auth-service/internal/api/http"
	"github.com/corvid-labs/auth-service/internal/api/http/handlers"
	"github.com/corvid-labs/auth-service/internal/auth"
	"github.com/corvid-labs/auth-service/internal/config"
	"github.com/corvid-labs/auth-service/internal/events"
	"github.com/corvid-labs/auth-service/internal/observability"
	"github.com/corvid-labs/auth-service/internal/persistence"
	"github.com/corvid-labs/auth-service/internal/repository"
	"github.com/corvid-labs/auth-service/internal/service"
	"github.com/corvid-labs/auth-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		logger.Fatal("invalid token configuration", zap.Error(err))
	}

	hasher, err := auth.NewHasher(auth.DefaultCost, cfg.Auth.HashConcurrency)
	if err != nil {
		logger.Fatal("failed to init password hasher", zap.Error(err))
	}

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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	pool := pg.PoolHandle()
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:         repository.NewUserRepository(pool),
		RefreshTokenRepo: repository.NewRefreshTokenRepository(pool),
		Hasher:           hasher,
		TokenManager:     tokens,
		DefaultRole:      cfg.Auth.DefaultRole,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, logger, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
