/*
Package main is the entry point for the hush-fm signaling server.

It is responsible for loading configuration, initializing the global logging
system, wiring the session core (identity, registry, presence, token issuer,
roster hub) together, setting up the HTTP server, and gracefully handling
operating system interrupt signals (SIGINT, SIGTERM) to ensure a smooth
server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dataO1/hush-fm/internal/app/event"
	"github.com/dataO1/hush-fm/internal/app/identity"
	"github.com/dataO1/hush-fm/internal/app/presence"
	"github.com/dataO1/hush-fm/internal/app/registry"
	"github.com/dataO1/hush-fm/internal/app/roster"
	"github.com/dataO1/hush-fm/internal/app/token"
	"github.com/dataO1/hush-fm/internal/configs"
	"github.com/dataO1/hush-fm/internal/handler"
	"github.com/dataO1/hush-fm/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("relay_configured", cfg.RelayConfigured()).
		Dur("stale_threshold", cfg.StaleThreshold).
		Dur("dj_absent_grace", cfg.DJAbsentGrace).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wire the session core.
	bus := event.NewBus()
	identities := identity.NewService()
	reg := registry.NewRegistry(identities, bus)

	tracker := presence.NewTracker(presence.Config{
		StaleThreshold: cfg.StaleThreshold,
		DJAbsentGrace:  cfg.DJAbsentGrace,
		SweepInterval:  cfg.SweepInterval,
	}, reg, bus)
	reg.SetPresence(tracker)

	issuer := token.NewIssuer(cfg, reg, identities)
	hub := roster.NewHub(reg, bus)

	go tracker.Run(ctx)
	go hub.Run(ctx)

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Config:   cfg,
		Identity: identities,
		Registry: reg,
		Presence: tracker,
		Issuer:   issuer,
		Hub:      hub,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("hush-fm signaling server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
}
