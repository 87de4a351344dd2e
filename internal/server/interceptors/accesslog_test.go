package interceptors

import (
	"context"
	"net"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"authledger/internal/identity/domain"
	"authledger/internal/platform/guard"
)

func TestAccessLogUnary(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	interceptor := AccessLogUnary(zap.New(core), map[string]bool{"/grpc.health.v1.Health/Check": true})

	// The identity is set by an inner interceptor and must still reach the log line.
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		guard.WithIdentity(ctx, &domain.Identity{UserID: "user-1"}, "secret-token")
		return "ok", nil
	}
	if _, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Do"}, handler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}

	failing := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
	if _, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Do"}, failing); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("interceptor should pass the error through, got %v", err)
	}

	if _, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, handler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	first := entries[0].ContextMap()
	if first["user_id"] != "user-1" || first["code"] != "OK" || first["method"] != "/svc/Do" {
		t.Errorf("first entry fields = %v", first)
	}
	for _, v := range first {
		if v == "secret-token" {
			t.Error("token must not be logged")
		}
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["code"] != "Unauthenticated" {
		t.Errorf("second entry = %v %v, want warn Unauthenticated", entries[1].Level, entries[1].ContextMap())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"x-forwarded-for first hop", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "10.0.0.1, 10.0.0.2")), "10.0.0.1"},
		{"x-real-ip", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "10.0.0.3")), "10.0.0.3"},
		{"peer", peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.168.1.5"), Port: 4242}}), "192.168.1.5"},
		{"unknown", context.Background(), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClientIP(tt.ctx); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
