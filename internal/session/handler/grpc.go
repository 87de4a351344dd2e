package handler

import (
	"context"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	identitydomain "authledger/internal/identity/domain"
	"authledger/internal/identity/service"
	"authledger/internal/platform/guard"
	"authledger/internal/platform/structrpc"
	"authledger/internal/session/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "authledger.session.v1.SessionService"

// MethodListSessions requires a bearer token.
var MethodListSessions = structrpc.FullMethod(ServiceName, "ListSessions")

// SessionServiceServer is the server API for SessionService.
type SessionServiceServer interface {
	ListSessions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// SessionServiceDesc describes SessionService for grpc.ServiceRegistrar.
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSessions", Handler: structrpc.Handler[SessionServiceServer](MethodListSessions, SessionServiceServer.ListSessions)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authledger/session/v1/session.proto",
}

// Server implements SessionServiceServer. Callers only ever see their own sessions.
type Server struct {
	auth *service.AuthService
}

// NewServer returns a new Session gRPC server.
func NewServer(auth *service.AuthService) *Server {
	return &Server{auth: auth}
}

// ListSessions returns a page of the caller's currently valid sessions, oldest first.
// Request fields: page_size (default 50, max 100) and page_token (an offset from a previous response).
func (s *Server) ListSessions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok := guard.IdentityFrom(ctx)
	if !ok {
		return nil, structrpc.Status(identitydomain.ErrUnauthenticated)
	}
	pageSize := defaultPageSize
	if v, ok := req.GetFields()["page_size"]; ok {
		if n := int(v.GetNumberValue()); n > 0 {
			pageSize = n
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := 0
	if tok := structrpc.String(req, "page_token"); tok != "" {
		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 {
			return nil, status.Error(codes.InvalidArgument, "invalid page_token")
		}
		offset = n
	}

	list, err := s.auth.Sessions(ctx, id)
	if err != nil {
		return nil, structrpc.Status(err)
	}
	total := len(list)
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	page := make([]any, 0, end-offset)
	for _, sess := range list[offset:end] {
		page = append(page, View(sess))
	}
	nextToken := ""
	if end < total {
		nextToken = strconv.Itoa(end)
	}
	return structrpc.NewStruct(map[string]any{
		"sessions":        page,
		"count":           total,
		"next_page_token": nextToken,
	})
}

// View is the client-facing shape of a session: its token hash and timestamps, never the token.
func View(s *domain.Session) map[string]any {
	return map[string]any{
		"id":         s.ID,
		"created_at": structrpc.Timestamp(s.CreatedAt),
		"expires_at": structrpc.Timestamp(s.ExpiresAt),
	}
}

// RegisterSessionServiceServer registers srv on s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}
