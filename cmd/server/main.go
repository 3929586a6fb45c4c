package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/api"
	"github.com/sh1zzle/activetime-project/internal/bootstrap"
	"github.com/sh1zzle/activetime-project/internal/config"
	"github.com/sh1zzle/activetime-project/internal/storage"
	"github.com/sh1zzle/activetime-project/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logger, err := internal.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := telemetry.Init(telemetry.Config{DSN: cfg.SentryDSN, Environment: cfg.Env}, logger); err != nil {
		logger.Errorf("sentry disabled: %v", err)
	}
	defer telemetry.Flush(2 * time.Second)

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	repos, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}

	importer, closeArchive, err := bootstrap.NewImporter(ctx, cfg, repos, logger)
	if err != nil {
		logger.Fatalf("failed to init importer: %v", err)
	}
	provider, tokens := bootstrap.NewAuth(cfg, repos.Users, logger)

	app := api.NewApplication(logger, repos, importer, tokens)
	r := api.NewRouter(app, provider, api.RouterOptions{MaxUploadBytes: cfg.MaxUploadMB << 20})

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		logger.Infof("Server running on %s (storage=%s auth=%s)", cfg.Addr, cfg.DBType, cfg.AuthProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	if err := repos.Close(shutdownCtx); err != nil {
		logger.Errorf("storage close: %v", err)
	}
	if err := closeArchive(); err != nil {
		logger.Errorf("export store close: %v", err)
	}
}
