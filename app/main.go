package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkoval/feedsink/app/api"
	"github.com/mkoval/feedsink/app/cfg"
	"github.com/mkoval/feedsink/app/database"
	"github.com/mkoval/feedsink/app/feed"
	"github.com/mkoval/feedsink/app/fetch"
	"github.com/mkoval/feedsink/app/sync"
	"github.com/mkoval/feedsink/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Feedsink server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	entryRepo := database.NewEntryRepository(db)
	userRepo := database.NewUserRepository(db)

	adminID, err := ensureAdminUser(userRepo, appCfg)
	if err != nil {
		slog.Error("Failed to ensure admin user", "user", appCfg.AdminUser, "error", err)
		os.Exit(1)
	}

	fetcher := fetch.NewFetcher(&http.Client{}, appCfg.UserAgent,
		time.Duration(appCfg.FetchTimeout)*time.Second, appCfg.MaxBodySize)
	parser := feed.NewParser()

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount,
		"interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(feedRepo, entryRepo, userRepo, fetcher, parser, adminID)
	scheduler.Start()
	defer scheduler.Stop()

	syncService := sync.NewService(entryRepo, userRepo)
	handler := api.NewHandler(syncService, feedRepo, entryRepo)
	server := api.NewServer(handler, userRepo)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

// ensureAdminUser creates the local admin account on first start. The
// account is required before any sync client can authenticate.
func ensureAdminUser(userRepo database.UserRepository, appCfg *cfg.Cfg) (int64, error) {
	ctx := context.Background()

	user, err := userRepo.GetUserByUsername(ctx, appCfg.AdminUser)
	if err != nil {
		return 0, err
	}
	if user != nil {
		return user.ID, nil
	}

	if appCfg.AdminPassword == "" {
		return 0, fmt.Errorf("admin user %q does not exist and no --admin-password was given", appCfg.AdminUser)
	}

	id, err := userRepo.CreateUser(ctx, appCfg.AdminUser, appCfg.AdminPassword, appCfg.AdminEmail)
	if err != nil {
		return 0, err
	}

	slog.Info("Created admin user", "user", appCfg.AdminUser)
	return id, nil
}
