package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"authledger/internal/identity/domain"
	"authledger/internal/platform/guard"
	"authledger/internal/platform/structrpc"
)

// unaryCall is the request and next handler of a protected RPC.
type unaryCall struct {
	req     interface{}
	handler grpc.UnaryHandler
}

// AuthUnary returns a unary server interceptor that runs protected RPCs through guard.Protect,
// so the handler sees the identity and token in its context.
// publicMethods is the set of full method names that do not require a Bearer token
// (e.g. AuthService Register and Login); they run without authentication.
func AuthUnary(g *guard.Guard, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	protected := guard.Protect(g, func(ctx context.Context, _ *domain.Identity, call unaryCall) (interface{}, error) {
		return call.handler(ctx, call.req)
	})
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		ran := false
		resp, err := protected(ctx, authorizationHeader(ctx), unaryCall{
			req: req,
			handler: func(ctx context.Context, req interface{}) (interface{}, error) {
				ran = true
				return handler(ctx, req)
			},
		})
		if err != nil && !ran {
			return nil, structrpc.Status(err)
		}
		return resp, err
	}
}

// authorizationHeader returns the first authorization metadata value, or "".
func authorizationHeader(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
