package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	healthhandler "authledger/internal/health/handler"
	identityhandler "authledger/internal/identity/handler"
	identityservice "authledger/internal/identity/service"
	"authledger/internal/platform/guard"
	"authledger/internal/server/interceptors"
	sessionhandler "authledger/internal/session/handler"
	"authledger/internal/telemetry"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// Deps holds the dependencies of the gRPC services and interceptors.
type Deps struct {
	// Auth is the authenticator behind AuthService and SessionService. Required.
	Auth *identityservice.AuthService
	// Guard authenticates protected RPCs. Required.
	Guard *guard.Guard
	// Health serves grpc.health.v1.Health. If nil, the health service is not registered.
	Health *healthhandler.Server
	// Emitter receives one request event per RPC. May be nil.
	Emitter telemetry.EventEmitter
	// Logger writes the access log. Nil means no access log.
	Logger *zap.Logger
	// Tracing enables the otelgrpc stats handler.
	Tracing bool
}

// ServiceNames lists the application services, for health status reporting.
func ServiceNames() []string {
	return []string{identityhandler.ServiceName, sessionhandler.ServiceName}
}

// PublicMethods returns the set of full method names that run without a bearer token.
func PublicMethods() map[string]bool {
	public := map[string]bool{
		healthCheckMethod:              true,
		"/grpc.health.v1.Health/Watch": true,
	}
	for _, m := range identityhandler.PublicMethods() {
		public[m] = true
	}
	return public
}

// NewGRPCServer builds a gRPC server with the interceptor chain (access log, telemetry,
// authentication, in that order) and all services registered.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	skip := map[string]bool{healthCheckMethod: true}
	chain := make([]grpc.UnaryServerInterceptor, 0, 3)
	if deps.Logger != nil {
		chain = append(chain, interceptors.AccessLogUnary(deps.Logger, skip))
	}
	chain = append(chain,
		interceptors.TelemetryUnary(deps.Emitter, skip),
		interceptors.AuthUnary(deps.Guard, PublicMethods()),
	)
	serverOpts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(chain...)}
	if deps.Tracing {
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}
	s := grpc.NewServer(append(serverOpts, opts...)...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers all gRPC services with the given registrar.
//
// Service → handler mapping:
//   - AuthService    → internal/identity/handler
//   - SessionService → internal/session/handler
//   - Health         → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	identityhandler.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth))
	sessionhandler.RegisterSessionServiceServer(s, sessionhandler.NewServer(deps.Auth))
	if deps.Health != nil {
		healthhandler.Register(s, deps.Health)
	}
}
