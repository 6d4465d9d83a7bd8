package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rowanhale/verdant/internal/auth"
	"github.com/rowanhale/verdant/internal/backup"
	"github.com/rowanhale/verdant/internal/database"
	"github.com/rowanhale/verdant/internal/email"
	"github.com/rowanhale/verdant/internal/logging"
	"github.com/rowanhale/verdant/internal/server"
)

func main() {
	logger := logging.Setup(envOr("VERDANT_LOG_LEVEL", "info"), envOr("VERDANT_LOG_FORMAT", "text"))

	port := envOr("VERDANT_PORT", "8080")
	dbPath := envOr("VERDANT_DB_PATH", "verdant.db")

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("VERDANT_POSTMARK_TOKEN"),
		envOr("VERDANT_EMAIL_FROM", "hello@verdant.app"),
	)
	if !emailClient.Configured() {
		logger.Warn("email not configured, login codes will only appear in logs")
	}

	tokens := auth.NewTokenIssuer(os.Getenv("VERDANT_JWT_SECRET"), 90*24*time.Hour)

	cfg := server.Config{
		BackupCfg: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("VERDANT_S3_ENDPOINT"),
				Bucket:    os.Getenv("VERDANT_S3_BUCKET"),
				Region:    envOr("VERDANT_S3_REGION", "auto"),
				AccessKey: os.Getenv("VERDANT_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("VERDANT_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			Passphrase:    os.Getenv("VERDANT_BACKUP_PASSPHRASE"),
			Hour:          envIntOr("VERDANT_BACKUP_HOUR", 3),
			RetentionDays: envIntOr("VERDANT_BACKUP_RETENTION_DAYS", 30),
		},
		VAPIDPublicKey:  os.Getenv("VERDANT_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VERDANT_VAPID_PRIVATE_KEY"),
		SecureCookies:   envOr("VERDANT_SECURE_COOKIES", "true") == "true",
	}

	srv := server.New(db, emailClient, tokens, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.PushScheduler().Start(ctx)
	defer srv.PushScheduler().Stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	go cleanupLoop(ctx, srv, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// cleanupLoop purges expired sessions, login codes, stale notification log
// rows, and rate limiter buckets once an hour.
func cleanupLoop(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := srv.SessionStore().DeleteExpired(); err != nil {
				logger.Error("cleanup sessions", "error", err)
			} else if n > 0 {
				logger.Info("cleaned expired sessions", "count", n)
			}
			if _, err := srv.MagicLinkStore().DeleteExpired(); err != nil {
				logger.Error("cleanup login codes", "error", err)
			}
			if _, err := srv.PushStore().PruneLog(30); err != nil {
				logger.Error("cleanup notification log", "error", err)
			}
			srv.RateLimiter().Cleanup()
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
