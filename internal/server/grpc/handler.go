package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/gateway"
	"github.com/dmitrijs2005/cropauth/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const AuthServiceName = "cropauth.v1.AuthService"

const (
	methodStatus       = "/" + AuthServiceName + "/Status"
	methodWhoAmI       = "/" + AuthServiceName + "/WhoAmI"
	methodListSessions = "/" + AuthServiceName + "/ListSessions"
)

// AuthService lets authenticated gRPC callers inspect their identity and
// session history.
type AuthService interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListSessions(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type authService struct {
	sessions *services.SessionService
}

// Status reports whether the caller's credentials are valid without
// rejecting the call.
func (a *authService) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	id := gateway.IdentityFromContext(ctx)
	if id == nil {
		return structpb.NewStruct(map[string]any{"authenticated": false})
	}
	return structpb.NewStruct(map[string]any{"authenticated": true, "user_id": id.UserID})
}

func (a *authService) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	id := gateway.IdentityFromContext(ctx)
	if id == nil {
		return nil, status.Error(codes.Unauthenticated, "authorization required")
	}
	return structpb.NewStruct(map[string]any{
		"user_id":    id.UserID,
		"username":   id.Username,
		"email":      id.Email,
		"session_id": id.SessionID,
	})
}

func (a *authService) ListSessions(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	id := gateway.IdentityFromContext(ctx)
	if id == nil {
		return nil, status.Error(codes.Unauthenticated, "authorization required")
	}

	list, err := a.sessions.ListSessions(ctx, id.UserID)
	if err != nil {
		return nil, serviceStatus(err)
	}

	items := make([]any, 0, len(list))
	for _, v := range list {
		item := map[string]any{
			"id":               v.ID,
			"ip_address":       v.IPAddress,
			"user_agent":       v.UserAgent,
			"created_at":       v.CreatedAt.UTC().Format(time.RFC3339),
			"is_active":        v.IsActive,
			"duration_seconds": v.DurationSecs,
			"activities":       float64(len(v.Activities)),
		}
		if v.EndedAt != nil {
			item["ended_at"] = v.EndedAt.UTC().Format(time.RFC3339)
			item["logout_reason"] = v.LogoutReason
		}
		items = append(items, item)
	}

	resp, err := structpb.NewStruct(map[string]any{"sessions": items})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func RegisterAuthService(server grpc.ServiceRegistrar, svc AuthService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: AuthServiceName,
		HandlerType: (*AuthService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Status", Handler: unaryHandler(methodStatus, svc.Status)},
			{MethodName: "WhoAmI", Handler: unaryHandler(methodWhoAmI, svc.WhoAmI)},
			{MethodName: "ListSessions", Handler: unaryHandler(methodListSessions, svc.ListSessions)},
		},
		Streams: []grpc.StreamDesc{},
	}, svc)
}

func unaryHandler(fullMethod string, call func(context.Context, *emptypb.Empty) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &emptypb.Empty{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*emptypb.Empty)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

// serviceStatus maps a service failure onto a status that reveals no
// internals.
func serviceStatus(err error) error {
	if errors.Is(err, common.ErrorStoreUnavailable) {
		return status.Error(codes.Unavailable, "store unavailable")
	}
	return status.Error(codes.Internal, "internal error")
}
