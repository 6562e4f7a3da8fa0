package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carpenike/repcoach/internal/config"
	"github.com/carpenike/repcoach/internal/database"
	"github.com/carpenike/repcoach/internal/handlers"
	"github.com/carpenike/repcoach/internal/llm"
	"github.com/carpenike/repcoach/internal/logger"
	"github.com/carpenike/repcoach/internal/middleware"
	"github.com/carpenike/repcoach/internal/models"
	"github.com/carpenike/repcoach/internal/notify"
	"github.com/carpenike/repcoach/internal/scheduler"
	"github.com/carpenike/repcoach/internal/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("REPCOACH_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "repcoach: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "repcoach: logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("repcoach stopped", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.Tracing, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
	}()

	// Open database and run migrations.
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		return err
	}
	schemaVersion, _ := database.Version(db)
	log.Info("database ready", "path", filepath.Clean(cfg.DBPath), "schema_version", schemaVersion)

	// Sensitive settings are encrypted, so the key must exist before any
	// handler reads or writes them.
	_, keySource, err := models.GetOrCreateSecretKey(db)
	if err != nil {
		return err
	}
	log.Info("settings encryption key ready", "source", keySource)
	if !models.IsModelConfigured(db) {
		log.Warn("no model provider configured; generation requests will be rejected until llm.provider is set")
	}

	notifier := notify.New(db, log)
	defer notifier.Wait()

	sched := scheduler.New(db, log)
	sched.Start()
	defer sched.Stop()

	rl := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.TrustedProxies...)
	defer rl.Stop()

	api := &handlers.API{
		DB:          db,
		Log:         log,
		Notifier:    notifier,
		Maintenance: sched,
		NewProvider: llm.NewProviderFromSettings,
		Version:     version,
	}
	if cfg.AdminKey == "" {
		log.Info("admin API disabled (no admin_key)")
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: handlers.NewRouter(api, handlers.RouterConfig{
			AdminKey:      cfg.AdminKey,
			AllowedOrigin: cfg.CORS.AllowedOrigin,
			RateLimiter:   rl,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		// Covers the largest generation.timeout_seconds; batches hold the
		// connection for the whole generation.
		WriteTimeout: 31 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("repcoach listening", "addr", cfg.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
