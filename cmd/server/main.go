// Package main runs the revenue and spawn maintenance service:
// - Scheduler (every tick): swap -> split -> replenish, then spawn maintenance
// - HTTP: /health, /status, /metrics and authenticated manual triggers
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pokeball-ops/internal/admin"
	"pokeball-ops/internal/app"
	"pokeball-ops/internal/config"
	"pokeball-ops/internal/coordinator"
	"pokeball-ops/internal/observability"
)

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	logger := app.NewLogger("server")

	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration:\n%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to start: %v", err)
	}
	defer svc.Close()

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	adminServer := admin.New(admin.Options{
		Pipeline: svc.Coordinator,
		Secret:   cfg.AdminSecret,
		Metrics:  observability.Handler(),
		Logger:   app.NewLogger("admin"),
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           adminServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Printf("Starting HTTP server on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	scheduler := coordinator.NewScheduler(coordinator.SchedulerOptions{
		Target:       svc.Coordinator,
		Source:       coordinator.NewTickerSource(cfg.TickInterval),
		InitialDelay: cfg.StartupDelay,
		Logger:       app.NewLogger("scheduler"),
	})
	logger.Printf("Pipeline scheduled every %v (skip swap: %v, mock packs: %v)", cfg.TickInterval, cfg.SkipSwap, cfg.UseMockGacha)

	err = scheduler.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown error: %v", err)
	}
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("Scheduler error: %v", err)
	}
	logger.Println("Shutdown complete")
}
