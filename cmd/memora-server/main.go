package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/memora-dev/memora/internal/bootstrap"
	"github.com/memora-dev/memora/internal/config"
	"github.com/memora-dev/memora/internal/database"
	"github.com/memora-dev/memora/internal/item"
	"github.com/memora-dev/memora/internal/queue"
	"github.com/memora-dev/memora/internal/review"
	"github.com/memora-dev/memora/internal/scheduler"
	"github.com/memora-dev/memora/internal/server"
	"github.com/memora-dev/memora/internal/service"
	"github.com/memora-dev/memora/internal/settings"
	"github.com/memora-dev/memora/internal/statistics"
)

var (
	configFile string
	migrate    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "memora-server",
		Short:         "Spaced-repetition scheduling HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations before serving")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app := bootstrap.New()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("database.Open() > %w", err)
	}
	app.AddShutdownHook(func(ctx context.Context) error {
		return db.Close()
	})

	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("database.Migrate() > %w", err)
		}
		slog.Info("schema migrations applied")
	}

	processor := scheduler.NewProcessor(scheduler.Config{
		GraduationThreshold: cfg.Scheduler.GraduationThreshold,
		RelearningStepDays:  cfg.Scheduler.RelearningStepDays,
	})
	settingsRepo := settings.NewDBRepository(db)
	statesRepo := scheduler.NewDBStateRepository(db)
	reviewsRepo := review.NewDBRepository(db)
	itemsRepo := item.NewDBRepository(db)

	schedulerService := service.New(db, processor, settingsRepo,
		service.WithLockTimeout(cfg.Scheduler.LockTimeout()))
	selector := queue.NewSelector(statesRepo, reviewsRepo, settingsRepo)
	analytics := statistics.NewCalculator(statesRepo, reviewsRepo, itemsRepo, settingsRepo)

	apiServer := server.New(schedulerService, selector, analytics, reviewsRepo, settingsRepo)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.CORS(cfg.Server.CORS.AllowedOrigins)(h2c.NewHandler(apiServer.Handler(), &http2.Server{})),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.AddShutdownHook(srv.Shutdown)

	return app.Run(ctx, func(ctx context.Context) error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}
