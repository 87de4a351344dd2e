// Package structrpc builds unary gRPC services whose requests and responses are
// google.protobuf.Struct messages, and maps authentication errors to gRPC status codes.
package structrpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"authledger/internal/identity/domain"
)

// Method is a unary Struct-in, Struct-out RPC bound to a server of type S.
type Method[S any] func(srv S, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// Handler adapts call into a grpc.MethodHandler for fullMethod, running any configured interceptor.
func Handler[S any](fullMethod string, call Method[S]) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// FullMethod returns "/service/method".
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// Invoke calls a unary Struct method over cc.
func Invoke(ctx context.Context, cc grpc.ClientConnInterface, fullMethod string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, fullMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// String returns the string field key of s, or "" if absent or not a string.
func String(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// Timestamp formats t for responses.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NewStruct builds a Struct from m; it fails only for values structpb cannot represent.
func NewStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, domain.ErrInternal.Error())
	}
	return s, nil
}

// Status maps an authenticator error to a gRPC status with a fixed message.
func Status(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrMissingFields):
		return status.Error(codes.InvalidArgument, domain.ErrMissingFields.Error())
	case errors.Is(err, domain.ErrDuplicateUsername):
		return status.Error(codes.AlreadyExists, domain.ErrDuplicateUsername.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, domain.ErrUnauthenticated.Error())
	default:
		return status.Error(codes.Internal, domain.ErrInternal.Error())
	}
}
