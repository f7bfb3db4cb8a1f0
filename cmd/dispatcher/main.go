package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/fmartins/orderhub/internal/messaging"
	"github.com/fmartins/orderhub/internal/outbox"
	"github.com/fmartins/orderhub/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "dispatcher", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	brokers := strings.Split(kafkaBrokers, ",")
	producer := messaging.NewProducer(brokers, "order.events")
	defer func() { _ = producer.Close() }()

	var opts []outbox.DispatcherOption
	if raw := os.Getenv("DISPATCH_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			logger.Error("invalid DISPATCH_INTERVAL", "value", raw, "error", err)
			os.Exit(1)
		}
		opts = append(opts, outbox.WithInterval(interval))
	}

	dispatcher := outbox.NewDispatcher(outbox.NewStore(db), producer, logger, opts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting outbox dispatcher", "brokers", brokers)

	if err := dispatcher.Run(runCtx); err != nil && runCtx.Err() == nil {
		logger.Error("dispatcher error", "error", err)
		os.Exit(1)
	}
}
