package interceptors

import (
	"context"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"authledger/internal/platform/guard"
	"authledger/internal/telemetry"
)

// TelemetryUnary returns a unary server interceptor that emits a request event after each RPC.
// Best-effort: failures are logged and do not fail the RPC. If emitter is nil, the interceptor no-ops.
// skipMethods is the set of full method names to not emit (e.g. health checks).
func TelemetryUnary(emitter telemetry.EventEmitter, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		ctx = guard.WithIdentitySlot(ctx)
		resp, err := handler(ctx, req)
		if emitter == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		event := telemetry.NewEvent(telemetry.EventRequest, "grpc_interceptor")
		if id, ok := guard.IdentityFrom(ctx); ok {
			event.UserID = id.UserID
			event.Username = id.Username
		}
		event.Metadata = map[string]string{
			"full_method": info.FullMethod,
			"status_code": status.Code(err).String(),
			"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
			"client_ip":   ClientIP(ctx),
		}
		telemetry.EmitAsync(emitter, ctx, event)
		return resp, err
	}
}
