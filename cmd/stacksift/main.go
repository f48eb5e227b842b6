package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stacksift/api/internal/app"
	"github.com/stacksift/api/internal/config"
	"github.com/stacksift/api/internal/database"
	"github.com/stacksift/api/internal/logging"
	"github.com/stacksift/api/internal/seed"
	"github.com/stacksift/api/internal/version"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("stacksift exited", "error", err)
		os.Exit(1)
	}
}

// run dispatches on an optional leading subcommand. Anything else is treated
// as server flags.
func run(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "seed":
			return runSeed(args[1:])
		case "version":
			fmt.Println(version.Version)
			return nil
		}
	}
	return serve(args)
}

func serve(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- application.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// loadConfig parses flags, layers the config sources and installs the
// default logger.
func loadConfig(args []string) (*config.Config, error) {
	flags := config.SetupFlags()
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}
	path, _ := flags.GetString("config")

	cfg, err := config.Load(path, flags)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logging.Setup(cfg.Log)
	return cfg, nil
}

// runSeed fills the configured database with demo data without starting the
// server.
func runSeed(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Database.Path, database.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
		CacheSize:    cfg.Database.CacheSize,
		MmapSize:     cfg.Database.MmapSize,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return seed.Run(context.Background(), db.DB)
}
