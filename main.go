package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fundingflow/config"
	"fundingflow/internal/dashboard"
	"fundingflow/internal/ingest"
	"fundingflow/internal/metrics"
	"fundingflow/internal/publisher"
	"fundingflow/internal/store"
	"fundingflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolvePath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Fundingflow.Name,
		"version":     cfg.Fundingflow.Version,
		"environment": config.AppEnvironment(),
		"venues":      len(cfg.Source.Enabled()),
	}).Info("starting fundingflow")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.CloudWatch.Enabled {
		logger.InitCloudWatch(ctx, logger.CloudWatchOptions{
			Region:          cfg.CloudWatch.Region,
			Namespace:       cfg.CloudWatch.Namespace,
			Dashboard:       cfg.CloudWatch.Dashboard,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			Endpoint:        cfg.CloudWatch.Endpoint,
			FlushInterval:   cfg.CloudWatch.FlushInterval,
		})
	}

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, cfg.Logging.ReportInterval)
	}

	series := store.New(cfg.Store.MaxPoints)
	recorder := metrics.Default()

	var opts []ingest.Option
	kafkaPublisher, err := publisher.NewKafka(cfg.Publisher.Kafka)
	switch {
	case errors.Is(err, publisher.ErrDisabled):
		log.WithComponent("main").Info("kafka publisher disabled")
	case err != nil:
		log.WithError(err).Error("failed to create kafka publisher")
		os.Exit(1)
	default:
		opts = append(opts, ingest.WithPublishers(kafkaPublisher))
	}

	coordinator := ingest.New(cfg, series, recorder, opts...)
	coordinator.StartAll(ctx)

	var dashOpts []dashboard.Option
	dashOpts = append(dashOpts, dashboard.WithStatus(coordinator))
	if cfg.Metrics.Enabled {
		dashOpts = append(dashOpts, dashboard.WithRecorder(recorder, cfg.Metrics.Path))
	}
	server, err := dashboard.NewServer(cfg.Dashboard, log, series, dashOpts...)
	if err != nil {
		log.WithError(err).Error("failed to create dashboard")
		os.Exit(1)
	}

	dashDone := make(chan error, 1)
	if server != nil {
		go func() {
			dashDone <- server.Run(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-dashDone:
		if err != nil {
			log.WithError(err).Error("dashboard stopped")
		}
		stop()
	}

	log.Info("starting graceful shutdown")

	done := make(chan struct{})
	go func() {
		coordinator.StopAll()
		if kafkaPublisher != nil {
			if err := kafkaPublisher.Close(); err != nil {
				log.WithError(err).Warn("failed to close kafka publisher")
			}
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("fundingflow stopped")
}
