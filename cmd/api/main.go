package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/emergency-backend/internal/api/http"
	"github.com/spec-kit/emergency-backend/internal/api/http/handlers"
	"github.com/spec-kit/emergency-backend/internal/auth"
	"github.com/spec-kit/emergency-backend/internal/config"
	"github.com/spec-kit/emergency-backend/internal/events"
	"github.com/spec-kit/emergency-backend/internal/observability"
	"github.com/spec-kit/emergency-backend/internal/persistence"
	"github.com/spec-kit/emergency-backend/internal/repository"
	"github.com/spec-kit/emergency-backend/internal/repository/memory"
	"github.com/spec-kit/emergency-backend/internal/service"
	"github.com/spec-kit/emergency-backend/internal/worker"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("emergency")

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

	dependencies := map[string]handlers.Pinger{"redis": redis}
	var (
		userRepo    repository.UserRepository
		projectRepo repository.ProjectRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool, cfg.Postgres.QueryTimeout())
		projectRepo = repository.NewProjectRepository(pool, cfg.Postgres.QueryTimeout())
		dependencies["postgres"] = pg
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory storage")
		store := memory.NewStore()
		userRepo = store.Users()
		projectRepo = store.Projects()
	}

	tokens, err := auth.NewTokenCodec(auth.TokenCodecConfig{
		Secret:          []byte(cfg.Auth.SecretKey),
		DefaultLifetime: cfg.Auth.TokenTTL(),
		Scheme:          auth.Scheme(cfg.Auth.TokenScheme),
	})
	if err != nil {
		logger.Fatal("failed to build token codec", zap.Error(err))
	}
	sessions := auth.NewSessionValidator(tokens, userRepo, logger, metrics)
	gate := auth.NewGate(tokens, sessions, logger, metrics)
	limiter := auth.NewLoginLimiter(redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow(), logger)

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		Tokens:     tokens,
		Sessions:   sessions,
		Limiter:    limiter,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	projectService := service.NewProjectService(service.ProjectDependencies{
		ProjectRepo: projectRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	commandService := service.NewCommandService(projectService, userRepo, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, userRepo, projectRepo),
		Users:    handlers.NewUsersHandler(authService),
		Projects: handlers.NewProjectsHandler(projectService),
		Commands: handlers.NewCommandHandler(commandService),
		Gate:     gate,
	})

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = observability.BootstrapMetricsServer(cfg.Metrics.Addr, metrics, redis.Ping, logger)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("env", cfg.App.Env),
			zap.String("token_scheme", cfg.Auth.TokenScheme),
		)
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if metricsServer != nil {
			errs = append(errs, metricsServer.Shutdown(shutdownCtx))
		}
		errs = append(errs, app.ShutdownWithContext(shutdownCtx))
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}
