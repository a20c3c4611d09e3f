package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/agromesh/realtime-gateway/internal/bridge"
	"github.com/agromesh/realtime-gateway/internal/config"
	"github.com/agromesh/realtime-gateway/internal/dispatch"
	"github.com/agromesh/realtime-gateway/internal/gateway"
	"github.com/agromesh/realtime-gateway/internal/room"
	"github.com/agromesh/realtime-gateway/internal/session"
	"github.com/agromesh/realtime-gateway/internal/token"
	"github.com/agromesh/realtime-gateway/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file (optional, env vars apply on top)")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting realtime gateway",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	for _, name := range config.IgnoredEnvVars() {
		logger.Warn("environment variable is set but has no effect", "name", name)
	}

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"ws_path", cfg.Server.WSPath,
		"bus_url", cfg.Bus.URL,
		"allow_anonymous", cfg.Auth.AllowAnonymous,
	)
	if cfg.Auth.AllowAnonymous {
		logger.Warn("anonymous mode enabled, token verification is OFF")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	var signalled atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		signalled.Store(true)
		cancel()
	}()

	// Core components: room index, session registry, dispatcher
	index := room.NewIndex(cfg.Limits.MaxSubsPerSession)
	registry := session.NewRegistry(index, cfg.Limits.MaxSessionsPerTenant, logger)
	dispatcher := dispatch.New(index, registry, cfg.Limits.DispatchBuffer, logger)
	if err := dispatcher.Start(ctx); err != nil {
		logger.Error("failed to start dispatcher", "error", err)
		return 1
	}

	// Connect to the bus. Unreachable after the initial retry window is
	// a startup failure.
	bus := bridge.New(bridge.Config{
		URL:               cfg.Bus.URL,
		SubjectRoot:       cfg.Bus.SubjectRoot,
		ReconnectBaseWait: cfg.Bus.ReconnectBaseWait,
		ReconnectMaxWait:  cfg.Bus.ReconnectMaxWait,
		ConnectWindow:     cfg.Bus.ConnectWindow,
	}, dispatcher, logger)
	if err := bus.Start(ctx); err != nil {
		logger.Error("failed to connect to bus", "error", err)
		return 1
	}
	logger.Info("bus connected", "url", cfg.Bus.URL)

	// Client-facing WebSocket endpoint plus admin surface
	verifier := token.NewVerifier([]byte(cfg.Auth.SigningKey))
	server := gateway.NewServer(cfg, verifier, index, registry, dispatcher, bus, logger)
	if err := server.Start(ctx); err != nil {
		logger.Error("failed to start server", "error", err)
		return 1
	}

	logger.Info("gateway running", "port", cfg.Server.Port)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	server.Stop(shutdownCtx)
	bus.Stop(shutdownCtx)
	dispatcher.Stop(shutdownCtx)

	logger.Info("gateway stopped")
	if signalled.Load() {
		return 2
	}
	return 0
}
