//go:generate go run github.com/swaggo/swag/cmd/swag@v1.16.3 init -g main.go -d .,../../internal/handlers,../../internal/dto,../../internal/core/domain -o ../docs

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/invoice_review_app/cmd/docs"
	"github.com/SscSPs/invoice_review_app/internal/adapters/notify"
	"github.com/SscSPs/invoice_review_app/internal/adapters/objectstore"
	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/SscSPs/invoice_review_app/internal/core/services"
	"github.com/SscSPs/invoice_review_app/internal/handlers"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
	"github.com/SscSPs/invoice_review_app/internal/platform/config"
	"github.com/SscSPs/invoice_review_app/internal/repositories/database/pgsql"
	"github.com/SscSPs/invoice_review_app/internal/repositories/memory"
	"github.com/SscSPs/invoice_review_app/internal/utils/retry"
	"github.com/SscSPs/invoice_review_app/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Invoice Review API
// @version 1.0
// @description Invoice submission, single-claimant review and ledger-backed balances.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, transient, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store", slog.String("driver", cfg.StoreDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	objects, err := openObjectStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize object store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	hub := notify.NewHub(logger, cfg.CORSAllowedOrigins)
	defer hub.Close()

	push, err := openPushNotifier(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize push notifications", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("Failed to connect to redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if rdb != nil {
		defer func() {
			if cerr := rdb.Close(); cerr != nil {
				logger.Error("Error closing redis client", slog.String("error", cerr.Error()))
			}
		}()
	}

	rateLimiter, err := middleware.NewLimiter(cfg.RateLimit, rdb)
	if err != nil {
		logger.Error("Failed to initialize rate limiter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	container := services.NewServiceContainer(cfg, repos, services.Dependencies{
		ObjectStore: objects,
		Notifier:    notify.NewFanout(hub, push),
		Transient:   transient,
	})

	scheduler := services.NewScheduler(container.Sweeper, services.SchedulerConfig{
		ClaimSweepInterval: cfg.SweepClaimInterval,
		HygieneInterval:    cfg.SweepHygieneInterval,
		RunTimeout:         cfg.SweepRunTimeout,
	}, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, cors)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-Review-Ping-Interval"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	docs.SwaggerInfo.BasePath = "/api/v1"
	handlers.RegisterRoutes(r, cfg, container, handlers.RouteExtras{
		Limiter:   rateLimiter,
		Websocket: hub,
		Swagger:   ginSwagger.WrapHandler(swaggerFiles.Handler),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.String("error", err.Error()))
	}
	logger.Info("Server stopped")
}

// openStore returns the repositories for the configured driver, the transient error classifier
// for retries and a cleanup function.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, retry.Classifier, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using the in-memory store")
		return memory.NewRepositoryProvider(memory.NewStore()), nil, func() {}, nil
	}

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, nil, err
	}

	logger.Info("Running database migrations...")
	if _, err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath, database.MigrateUp, logger); err != nil {
		database.ClosePgxPool(pool, logger)
		return portsrepo.RepositoryProvider{}, nil, nil, err
	}

	return pgsql.NewRepositoryProvider(pool), pgsql.IsTransient, func() { database.ClosePgxPool(pool, logger) }, nil
}

func openObjectStore(cfg *config.Config) (ports.ObjectStore, error) {
	if cfg.ObjectStore == config.ObjectStoreS3 {
		return objectstore.NewS3Store(objectstore.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
	}
	return objectstore.NewMemoryStore(), nil
}

// openPushNotifier uses FCM when credentials are configured and logs notifications otherwise.
func openPushNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.Notifier, error) {
	if cfg.FirebaseCredentialsFile == "" {
		logger.Info("FIREBASE_CREDENTIALS_FILE not set, push notifications are logged only")
		return notify.LogNotifier{}, nil
	}
	return notify.NewFCMNotifier(ctx, cfg.FirebaseCredentialsFile)
}

// openRedis returns nil when no URL is configured.
func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
