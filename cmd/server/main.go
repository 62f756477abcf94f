package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/config"
	"github.com/laibashaikh28/twee-webapp/internal/container"
	"github.com/laibashaikh28/twee-webapp/internal/handlers"
	"github.com/laibashaikh28/twee-webapp/internal/logging"
	"github.com/laibashaikh28/twee-webapp/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	c, err := container.New(initCtx, cfg, log)
	cancel()
	if err != nil {
		return fmt.Errorf("init backends: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Close(closeCtx); err != nil {
			log.Warn("closing backends", zap.Error(err))
		}
	}()

	sessions := session.NewManager(c.Profiles, cfg.SessionIdleTimeout, log.Named("sessions"))
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		sessions.Run(ctx, time.Minute)
	}()

	routerCfg := handlers.RouterConfig{
		Verifier:        c.Verifier,
		LocalAuth:       c.LocalAuth,
		Users:           c.Users,
		Profiles:        c.Profiles,
		Sessions:        sessions,
		MaxUploadSizeMB: cfg.MaxUploadSizeMB,
		AllowedOrigins:  cfg.AllowedOrigins,
		Logger:          log,
	}
	if c.ServesUploads() {
		routerCfg.UploadDir = cfg.UploadDir
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           handlers.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("twee API server starting",
			zap.String("addr", cfg.ServerAddress),
			zap.String("auth", cfg.AuthMode),
			zap.String("store", cfg.StoreBackend),
			zap.String("blobs", cfg.BlobBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			stop()
			<-reaperDone
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
	<-reaperDone
	return nil
}
