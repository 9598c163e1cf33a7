package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thoughtgraph/infrastructure/config"
	"thoughtgraph/infrastructure/di"
	"thoughtgraph/interfaces/http/rest"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := di.StartTracing(ctx, cfg, "thoughtgraph-api")
	if err != nil {
		container.Logger.Fatal("Failed to start tracing", zap.Error(err))
	}
	if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				container.Logger.Warn("Tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	container.Logger.Info("Starting reference backend",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage),
		zap.Bool("tracing", tp != nil),
	)

	srv := rest.NewServer(cfg.ServerAddress, container.Router.Setup())
	if err := rest.Serve(ctx, srv, container.Logger); err != nil {
		container.Logger.Fatal("Server failed", zap.Error(err))
	}
}
