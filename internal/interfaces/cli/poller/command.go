// Package poller implements the command running the consensus poll
// worker.
package poller

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	reportUC "torweather/internal/application/report/usecases"
	"torweather/internal/infrastructure/config"
	"torweather/internal/infrastructure/database"
	"torweather/internal/infrastructure/email"
	"torweather/internal/infrastructure/migration"
	"torweather/internal/infrastructure/observability"
	"torweather/internal/infrastructure/repository"
	"torweather/internal/infrastructure/scheduler"
	"torweather/internal/infrastructure/torctl"
	"torweather/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
	runOnce     bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poller",
		Short: "Start the consensus poll worker",
		Long:  `Poll the Tor control port on an interval, refresh the relay table, and send the subscribed notifications.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run schema migration on startup (not recommended for production)")
	cmd.Flags().BoolVar(&runOnce, "once", false, "Run a single poll cycle and exit")

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

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting poll worker", "environment", env, "interval_minutes", cfg.Poller.IntervalMinutes)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctl, cleanup, err := connectTor(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	log := logger.NewLogger()
	db := database.Get()
	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	routerRepo := repository.NewRouterRepository(db, log)
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

	cycle := reportUC.NewRunPollCycleUseCase(
		reportUC.NewUpdateRoutersUseCase(routerRepo, ctl, mailer, metrics, clock, log),
		reportUC.NewCheckNodeDownUseCase(routerRepo, subscriptionRepo, mailer, metrics, clock, log),
		reportUC.NewCheckVersionUseCase(routerRepo, subscriptionRepo, ctl, mailer, metrics, clock, log),
		reportUC.NewCheckBandwidthUseCase(routerRepo, subscriptionRepo, mailer, metrics, clock, log),
		reportUC.NewCheckTShirtUseCase(routerRepo, subscriptionRepo, mailer, metrics, clock, log),
		metrics, clock, log,
	)

	if runOnce {
		return cycle.RunCycle(ctx)
	}

	interval := time.Duration(cfg.Poller.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	sched := scheduler.NewPollScheduler(cycle, interval, log)
	sched.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down poll worker")
	cancel()
	sched.Stop()
	logger.Info("poll worker exited gracefully")
	return nil
}

// connectTor reaches the control port, launching an embedded Tor daemon
// first when configured. The returned cleanup closes both.
func connectTor(ctx context.Context, cfg *config.Config) (*torctl.CtlUtil, func(), error) {
	if !cfg.Tor.LaunchEmbedded {
		ctl, err := torctl.Connect(&cfg.Tor)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to tor control port: %w", err)
		}
		return ctl, func() { ctl.Close() }, nil
	}

	embedded := torctl.NewEmbeddedTor(0)
	if err := embedded.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to launch embedded tor: %w", err)
	}

	ctl, err := torctl.ConnectAddr(embedded.ControlAddr(), cfg.Tor.Password)
	if err != nil {
		embedded.Stop()
		return nil, nil, fmt.Errorf("failed to connect to embedded tor: %w", err)
	}

	return ctl, func() {
		ctl.Close()
		embedded.Stop()
	}, nil
}
