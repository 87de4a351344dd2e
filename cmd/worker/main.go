// Worker consumes auth events from Kafka and forwards them to the structured log and,
// when OTEL_EXPORTER_OTLP_ENDPOINT is set, to the OTel collector as log records.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC and KAFKA_GROUP_ID.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"authledger/internal/config"
	"authledger/internal/platform/logging"
	"authledger/internal/telemetry"
	"authledger/internal/telemetry/consumer"
	oteltelemetry "authledger/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("worker: KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := oteltelemetry.NewProviders(ctx, oteltelemetry.Options{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceName:    "authledger-worker",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Env,
		ExportInterval: cfg.ExportInterval(),
	})
	if err != nil {
		logger.Fatal("worker: telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	sinks := []telemetry.EventEmitter{telemetry.NewLogEmitter(logger.Named("events"))}
	if cfg.OTLPEndpoint != "" {
		sinks = append(sinks, oteltelemetry.NewEventEmitter(providers.LoggerProvider))
	}

	reader := consumer.NewReader(brokers, cfg.TelemetryKafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()

	logger.Info("worker: consuming",
		zap.String("topic", cfg.TelemetryKafkaTopic), zap.String("group", cfg.KafkaGroupID))
	if err := consumer.New(reader, telemetry.Multi(sinks...), logger).Run(ctx); err != nil {
		logger.Error("worker: stopped", zap.Error(err))
		return
	}
	logger.Info("worker: stopped")
}
