package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/cropauth/internal/common"
	"github.com/dmitrijs2005/cropauth/internal/server/gateway"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type authPolicy int

const (
	policyRequired authPolicy = iota
	policyOptional
	policyPublic
)

var healthPrefix = "/" + healthpb.Health_ServiceDesc.ServiceName + "/"

// methodPolicies lists the methods that do not require authentication.
var methodPolicies = map[string]authPolicy{
	methodStatus: policyOptional,
}

func policyFor(fullMethod string) authPolicy {
	if strings.HasPrefix(fullMethod, healthPrefix) {
		return policyPublic
	}
	if p, ok := methodPolicies[fullMethod]; ok {
		return p
	}
	return policyRequired
}

func authorizationFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(strings.ToLower(common.AuthorizationHeaderName)); len(values) > 0 {
		return values[0]
	}
	return ""
}

// authorize applies the method's policy and returns the context the handler
// should run with.
func (s *GRPCServer) authorize(ctx context.Context, fullMethod string) (context.Context, error) {
	switch policyFor(fullMethod) {
	case policyPublic:
		return ctx, nil
	case policyOptional:
		if id := s.gateway.Optional(ctx, authorizationFromMetadata(ctx)); id != nil {
			ctx = gateway.WithIdentity(ctx, id)
		}
		return ctx, nil
	}

	id, err := s.gateway.Required(ctx, authorizationFromMetadata(ctx))
	if err != nil {
		s.logger.Warn(ctx, "grpc call rejected", "method", fullMethod, "reason", err.Error())
		return nil, status.Error(codes.Unauthenticated, unauthenticatedMessage(err))
	}
	return gateway.WithIdentity(ctx, id), nil
}

func unauthenticatedMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrAuthorizationRequired):
		return "authorization required"
	case errors.Is(err, common.ErrInvalidAuthHeaderFormat):
		return "invalid authorization format"
	case errors.Is(err, common.ErrInvalidToken):
		return "invalid or expired token"
	default:
		return "invalid session"
	}
}

func (s *GRPCServer) authUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, err := s.authorize(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *identityStream) Context() context.Context { return w.ctx }

func (s *GRPCServer) authStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authorize(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &identityStream{ServerStream: ss, ctx: ctx})
}
