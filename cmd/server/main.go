// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/engine"
	"github.com/opd-ai/go-skirmish/pkg/event"
	"github.com/opd-ai/go-skirmish/pkg/health"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/metrics"
	"github.com/opd-ai/go-skirmish/pkg/server"
)

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())

	configPath := flag.String("config", "", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	flag.Parse()

	// Create default configuration file if requested
	if *createDefault {
		if *configPath == "" {
			logger.Error(ctx, "Default configuration needs a path", nil)
			os.Exit(1)
		}
		if err := config.Save(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	// Load configuration; SKIRMISH_* environment variables override the file
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", *configPath,
		)
		os.Exit(1)
	}
	logger = logging.NewLoggerWithLevel(os.Stdout, logging.ParseLevel(cfg.Telemetry.LogLevel))

	world, err := engine.NewWorld(cfg, nil, logger)
	if err != nil {
		logger.Error(ctx, "Failed to create world", err)
		os.Exit(1)
	}

	m := metrics.New()
	bus := event.NewEventBus()
	sim := server.New(world, cfg.Server.TickPeriod,
		server.WithEventBus(bus),
		server.WithMetrics(m),
		server.WithLogger(logger),
	)

	// Log a summary every hundred ticks
	bus.Subscribe(event.TickCompleted, func(e event.Event) {
		if te, ok := e.(*event.TickEvent); ok && te.Sequence%100 == 0 {
			logger.Info(ctx, "Tick completed",
				"sequence", te.Sequence,
				"ships", te.Ships,
				"duration", te.Duration,
			)
		}
	})

	// Setup health checks
	healthChecker := health.NewHealthChecker()
	healthChecker.AddCheck(health.NewSimulationHealthCheck(sim.LastTick, sim.Period(), cfg.Server.StaleFactor))
	healthChecker.AddCheck(health.NewRunningHealthCheck("tick_server", sim.Running))

	healthMux := healthChecker.Mux()
	healthMux.Handle("/metrics", m.Handler())

	healthServer := &http.Server{
		Addr:         cfg.Server.HealthAddr,
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	// Start health check server in background
	go func() {
		logger.Info(ctx, "Starting health check server",
			"address", cfg.Server.HealthAddr,
		)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Health check server failed", err)
		}
	}()

	logger.Info(ctx, "Starting simulation",
		"ai_ships", cfg.World.AIShips,
		"tick_period", sim.Period(),
	)
	sim.Start(ctx)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info(ctx, "Shutting down server")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown health check server
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Health check server shutdown failed", err)
	}

	// Stop the tick
	sim.Stop()
	logger.Info(ctx, "Server stopped", "ticks", sim.Sequence())
}
