package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	identitydomain "authledger/internal/identity/domain"
	"authledger/internal/identity/service"
	"authledger/internal/platform/guard"
	"authledger/internal/platform/structrpc"
	userdomain "authledger/internal/user/domain"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "authledger.auth.v1.AuthService"

// Full method names; Register and Login are public, the rest require a bearer token.
var (
	MethodRegister = structrpc.FullMethod(ServiceName, "Register")
	MethodLogin    = structrpc.FullMethod(ServiceName, "Login")
	MethodLogout   = structrpc.FullMethod(ServiceName, "Logout")
	MethodVerify   = structrpc.FullMethod(ServiceName, "Verify")
	MethodMe       = structrpc.FullMethod(ServiceName, "Me")
)

// PublicMethods lists the RPCs that do not require a bearer token.
func PublicMethods() []string {
	return []string{MethodRegister, MethodLogin}
}

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Verify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Me(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// AuthServiceDesc describes AuthService for grpc.ServiceRegistrar.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: structrpc.Handler[AuthServiceServer](MethodRegister, AuthServiceServer.Register)},
		{MethodName: "Login", Handler: structrpc.Handler[AuthServiceServer](MethodLogin, AuthServiceServer.Login)},
		{MethodName: "Logout", Handler: structrpc.Handler[AuthServiceServer](MethodLogout, AuthServiceServer.Logout)},
		{MethodName: "Verify", Handler: structrpc.Handler[AuthServiceServer](MethodVerify, AuthServiceServer.Verify)},
		{MethodName: "Me", Handler: structrpc.Handler[AuthServiceServer](MethodMe, AuthServiceServer.Me)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authledger/auth/v1/auth.proto",
}

// AuthServer implements AuthServiceServer over the authenticator.
type AuthServer struct {
	auth *service.AuthService
}

// NewAuthServer returns a new Auth gRPC server.
func NewAuthServer(auth *service.AuthService) *AuthServer {
	return &AuthServer{auth: auth}
}

// Register creates a user account.
func (s *AuthServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := s.auth.Register(ctx, structrpc.String(req, "username"), structrpc.String(req, "password"))
	if err != nil {
		return nil, structrpc.Status(err)
	}
	return structrpc.NewStruct(map[string]any{"user": userView(user)})
}

// Login returns a bearer token for valid credentials.
func (s *AuthServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.auth.Login(ctx, structrpc.String(req, "username"), structrpc.String(req, "password"))
	if err != nil {
		return nil, structrpc.Status(err)
	}
	return structrpc.NewStruct(map[string]any{
		"token":      res.Token,
		"expires_at": structrpc.Timestamp(res.ExpiresAt),
		"user":       map[string]any{"id": res.UserID, "username": res.Username},
	})
}

// Logout revokes the caller's bearer token.
func (s *AuthServer) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	token, ok := guard.TokenFrom(ctx)
	if !ok {
		return nil, structrpc.Status(identitydomain.ErrUnauthenticated)
	}
	if err := s.auth.Logout(ctx, token); err != nil {
		return nil, structrpc.Status(err)
	}
	return structrpc.NewStruct(map[string]any{"message": "logged out"})
}

// Verify reports the identity carried by the caller's token.
func (s *AuthServer) Verify(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	id, ok := guard.IdentityFrom(ctx)
	if !ok {
		return nil, structrpc.Status(identitydomain.ErrUnauthenticated)
	}
	return structrpc.NewStruct(map[string]any{
		"valid":      true,
		"user":       map[string]any{"id": id.UserID, "username": id.Username},
		"expires_at": structrpc.Timestamp(id.ExpiresAt),
	})
}

// Me returns the caller's directory record.
func (s *AuthServer) Me(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	id, ok := guard.IdentityFrom(ctx)
	if !ok {
		return nil, structrpc.Status(identitydomain.ErrUnauthenticated)
	}
	user, err := s.auth.Me(ctx, id)
	if err != nil {
		return nil, structrpc.Status(err)
	}
	return structrpc.NewStruct(map[string]any{"user": userView(user)})
}

func userView(u *userdomain.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"created_at": structrpc.Timestamp(u.CreatedAt),
	}
}

// RegisterAuthServiceServer registers srv on s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}
