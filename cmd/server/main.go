package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/aigoflow/kubescale-predictor/internal/config"
	"github.com/aigoflow/kubescale-predictor/internal/models"
	"github.com/aigoflow/kubescale-predictor/internal/services"
	"github.com/aigoflow/kubescale-predictor/pkg/server"
)

func main() {
	var envFile = flag.String("env", "", "Optional .env file to load")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Collaborators are built once; a missing one stays unavailable until restart
	collaborators := services.BuildCollaborators(cfg)
	opts := append(collaborators.Options(), services.WithDefaultDeployment(cfg.DefaultDeployment))

	var metricsHandler http.Handler
	if collaborators.Metrics != nil {
		metricsHandler = collaborators.Metrics.Handler()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var conn *nats.Conn
	if cfg.NatsURL != "" {
		conn, err = services.ConnectNATS(cfg)
		if err != nil {
			slog.Warn("NATS unavailable, continuing with HTTP only", "nats_url", cfg.NatsURL, "error", err)
			conn = nil
		} else {
			defer conn.Close()
			opts = append(opts, services.WithPublisher(services.NewNATSPublisher(conn, cfg.EventSubject)))
		}
	}

	predictor := services.NewPredictionService(opts...)

	var targets []models.Target
	if cfg.TargetsFile != "" {
		targets, err = config.LoadTargets(cfg.TargetsFile, cfg.DefaultDeployment)
		if err != nil {
			slog.Error("Failed to load targets", "file", cfg.TargetsFile, "error", err)
			os.Exit(1)
		}
	}

	httpServer := server.NewServer(cfg.HTTPAddr, predictor, metricsHandler)
	refresher := services.NewRefresher(predictor, targets, cfg.RefreshInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Start(gctx) })
	g.Go(func() error { return refresher.Start(gctx) })
	if conn != nil {
		monitor := services.NewLoadMonitor(conn, cfg, instanceName())
		natsService := services.NewNATSService(conn, cfg, predictor, monitor)
		healthService := services.NewHealthService(conn, predictor.Availability())
		g.Go(func() error { return natsService.Start(gctx) })
		g.Go(func() error { return healthService.Start(gctx) })
	}

	if err := g.Wait(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutting down server")
}

func instanceName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return ulid.Make().String()
}
