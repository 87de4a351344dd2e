package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"authledger/internal/config"
	"authledger/internal/health"
	healthhandler "authledger/internal/health/handler"
	"authledger/internal/identity/service"
	"authledger/internal/platform/guard"
	"authledger/internal/platform/logging"
	"authledger/internal/security"
	"authledger/internal/server"
	"authledger/internal/server/httpapi"
	"authledger/internal/session/ledger"
	"authledger/internal/telemetry"
	oteltelemetry "authledger/internal/telemetry/otel"
	"authledger/internal/telemetry/producer"
)

const (
	serviceName         = "authledger"
	healthCheckInterval = 10 * time.Second
	shutdownTimeout     = 15 * time.Second
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
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := oteltelemetry.NewProviders(ctx, telemetryOptions(cfg, serviceName))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()

	codec, err := newCodec(cfg)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}
	if !cfg.UsesKeyPair() && cfg.JWTSecret == config.DevJWTSecret {
		logger.Warn("signing tokens with the development secret; set JWT_SECRET")
	}

	checker := health.NewChecker(0)
	st, err := openStores(ctx, cfg, checker, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	emitter, closeEmitter, err := newEmitter(cfg, providers, logger)
	if err != nil {
		return err
	}
	defer closeEmitter()

	auth, err := service.NewAuthService(st.users, st.sessions, security.NewHasher(cfg.BcryptCost), codec, emitter, logger.Named("auth"))
	if err != nil {
		return err
	}
	g := guard.New(auth)

	go ledger.NewReaper(st.sessions, cfg.ReapInterval(), logger.Named("reaper")).Run(ctx)

	hs := healthhandler.NewServer(checker, logger.Named("health"), server.ServiceNames()...)
	go hs.Monitor(ctx, healthCheckInterval)

	grpcServer := server.NewGRPCServer(server.Deps{
		Auth:    auth,
		Guard:   g,
		Health:  hs,
		Emitter: emitter,
		Logger:  logger.Named("grpc"),
		Tracing: cfg.OTLPEndpoint != "",
	})
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		httpServer, err = newHTTPServer(cfg, auth, g, checker, st.sessions, logger)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http serve: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		logger.Error("server failed; shutting down", zap.Error(runErr))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}
	grpcServer.GracefulStop()

	// Let in-flight async emits finish before the exporters are closed.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return runErr
}

func newCodec(cfg *config.Config) (*security.Codec, error) {
	if cfg.UsesKeyPair() {
		signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return nil, err
		}
		return security.NewKeyPairCodec(signer, pub, cfg.TokenTTL())
	}
	return security.NewHMACCodec([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.TokenTTL())
}

// newEmitter fans auth events out to OTel logs and metrics and, when brokers are
// configured, to Kafka. The returned func closes the Kafka writer.
func newEmitter(cfg *config.Config, providers *oteltelemetry.Providers, logger *zap.Logger) (telemetry.EventEmitter, func(), error) {
	metrics, err := oteltelemetry.NewMetricsEmitter(providers.MeterProvider)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry metrics: %w", err)
	}
	emitters := []telemetry.EventEmitter{oteltelemetry.NewEventEmitter(providers.LoggerProvider), metrics}
	closeFn := func() {}
	if kp := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic); kp != nil {
		emitters = append(emitters, kp)
		closeFn = func() {
			if err := kp.Close(); err != nil {
				logger.Warn("kafka producer close", zap.Error(err))
			}
		}
		logger.Info("publishing auth events to kafka", zap.String("topic", cfg.TelemetryKafkaTopic))
	}
	return telemetry.Multi(emitters...), closeFn, nil
}

func newHTTPServer(
	cfg *config.Config,
	auth *service.AuthService,
	g *guard.Guard,
	checker *health.Checker,
	sessions ledger.Ledger,
	logger *zap.Logger,
) (*http.Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := httpapi.NewMetrics(reg, sessions, logger)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}
	router := httpapi.NewRouter(httpapi.Deps{
		Auth:     auth,
		Guard:    g,
		Health:   checker,
		Metrics:  metrics,
		Gatherer: reg,
		Logger:   logger.Named("http"),
	})
	return httpapi.NewServer(cfg.HTTPAddr, router), nil
}

func telemetryOptions(cfg *config.Config, name string) oteltelemetry.Options {
	return oteltelemetry.Options{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceName:    name,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Env,
		ExportInterval: cfg.ExportInterval(),
	}
}
