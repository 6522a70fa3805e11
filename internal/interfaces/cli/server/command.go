// Package server implements the command serving the Tor Weather web
// frontend.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	subscribeUC "torweather/internal/application/subscribe/usecases"
	"torweather/internal/infrastructure/config"
	"torweather/internal/infrastructure/database"
	"torweather/internal/infrastructure/email"
	"torweather/internal/infrastructure/migration"
	"torweather/internal/infrastructure/observability"
	"torweather/internal/infrastructure/ratelimit"
	"torweather/internal/infrastructure/repository"
	httpRouter "torweather/internal/interfaces/http"
	"torweather/internal/interfaces/http/handlers"
	"torweather/internal/shared/logger"
	"torweather/internal/shared/services/markdown"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the web frontend",
		Long:  `Serve the subscribe, confirm, unsubscribe, and preferences pages plus /healthz and /metrics.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run schema migration on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = mapEnvToGinMode(env)

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting web frontend", "environment", env, "auto_migrate", autoMigrate)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if autoMigrate {
		mgr := migration.NewManager(env, migration.DialectFor(cfg.Database.Driver))
		if err := mgr.Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log := logger.NewLogger()
	db := database.Get()
	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	routerRepo := repository.NewRouterRepository(db, log)
	subscriberRepo := repository.NewSubscriberRepository(db, log)
	subscriptionRepo := repository.NewSubscriptionRepository(db, log)

	mailer := email.NewSMTPEmailService(email.SMTPConfig{
		Host:        cfg.Email.SMTPHost,
		Port:        cfg.Email.SMTPPort,
		Username:    cfg.Email.SMTPUser,
		Password:    cfg.Email.SMTPPassword,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		BaseURL:     cfg.Server.BaseURL,
	})

	var limiter ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		limiter = ratelimit.NewRedisRateLimiter(client)
	}

	infoMarkdown, err := os.ReadFile("docs/notification-info.md")
	if err != nil {
		logger.Warn("notification info document missing", "error", err)
		infoMarkdown = []byte("# Notification types\n")
	}

	web, err := handlers.NewWebHandler(
		subscribeUC.NewSubscribeUseCase(routerRepo, subscriberRepo, subscriptionRepo, mailer, clock, log),
		subscribeUC.NewConfirmUseCase(routerRepo, subscriberRepo, subscriptionRepo, mailer, clock, log),
		subscribeUC.NewResendConfirmationUseCase(routerRepo, subscriberRepo, mailer, log),
		subscribeUC.NewUnsubscribeUseCase(routerRepo, subscriberRepo, log),
		subscribeUC.NewGetPreferencesUseCase(routerRepo, subscriberRepo, subscriptionRepo, log),
		subscribeUC.NewUpdatePreferencesUseCase(routerRepo, subscriberRepo, subscriptionRepo, clock, log),
		metrics,
		markdown.NewMarkdownService(),
		string(infoMarkdown),
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to build web handler: %w", err)
	}

	engine := httpRouter.NewRouter(httpRouter.Dependencies{
		Mode:        cfg.Server.Mode,
		Web:         web,
		Health:      handlers.NewHealthHandler(db, log),
		RateLimiter: limiter,
		RateLimit:   &cfg.RateLimit,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
