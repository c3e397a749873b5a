package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/nexusdigital/identity/internal/auth"
	"codeberg.org/nexusdigital/identity/internal/config"
	"codeberg.org/nexusdigital/identity/internal/logger"
)

// @title Nexus Identity API
// @version 1.0
// @description Session-managed authentication service for the Nexus Digital site
// @description
// @description Features:
// @description - Email/password and social sign-in (Google, Facebook, GitHub, Apple)
// @description - Durable local credential store fallback when no backend is provisioned
// @description - Extended profiles with login history and device/location enrichment
// @description - Session state streaming over WebSockets

// @contact.name API Support
// @contact.url https://codeberg.org/nexusdigital/identity

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authenticated requests. Format: Bearer {token}

func main() {
	logger.Info("starting nexus identity server")

	// load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	// initialize OAuth providers
	providers := auth.InitializeProviders(cfg)
	logger.Info("social providers configured", "providers", providers)

	// create server with all dependencies
	srv, err := NewServer(cfg, providers)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// start server in goroutine
	go func() {
		logger.Info("server listening", "port", cfg.Port, "backend", srv.latch.Mode().String())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// graceful shutdown with 10 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// release sessions, the credential store, and the database pool
	srv.Close()

	logger.Info("server stopped")
}
