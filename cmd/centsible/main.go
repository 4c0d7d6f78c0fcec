package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centsibleapp/centsible/internal/backup"
	"github.com/centsibleapp/centsible/internal/config"
	"github.com/centsibleapp/centsible/internal/database"
	"github.com/centsibleapp/centsible/internal/email"
	"github.com/centsibleapp/centsible/internal/logging"
	"github.com/centsibleapp/centsible/internal/server"
	"github.com/centsibleapp/centsible/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogJSON)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail)
	if !emailClient.Configured() {
		logger.Warn("email not configured, magic links will only be logged and returned")
	}

	srv := server.New(db, cfg, emailClient, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Hourly cleanup of expired single-use token records and stale
	// rate-limiter entries.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.UsedTokenStore().DeleteExpired(); err != nil {
					logger.Error("cleanup used tokens", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up used tokens", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	if cfg.BackupEnabled() {
		mgr := backup.NewManager(backup.Config{
			Endpoint:   cfg.BackupEndpoint,
			Bucket:     cfg.BackupBucket,
			Region:     cfg.BackupRegion,
			AccessKey:  cfg.BackupAccessKey,
			SecretKey:  cfg.BackupSecretKey,
			Passphrase: cfg.BackupPassphrase,
			DBPath:     cfg.DBPath,
			Interval:   time.Duration(cfg.BackupInterval) * time.Hour,
		}, db, store.NewBackupStore(db), logger.With("component", "backup"))
		go mgr.Run(bgCtx)
	}

	go func() {
		logger.Info("centsible starting", "addr", ":"+cfg.Port, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
