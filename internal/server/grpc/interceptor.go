package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/server/auth"
	"github.com/dmitrijs2005/elnafo/internal/server/session"
)

// methodPolicies lists the methods that resolve a session. Others run
// without one.
var methodPolicies = map[string]session.Policy{
	CurrentMethod: session.Enforce,
	ProfileMethod: session.Optional,
}

func (s *GRPCServer) sessionInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	policy, ok := methodPolicies[info.FullMethod]
	if !ok {
		return handler(ctx, req)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	token, present := auth.ExtractTokenFromMetadata(md)
	res := s.sessions.Resolve(ctx, token, present)

	if s.metrics != nil {
		s.metrics.AuthResolutions.WithLabelValues(policy.String(), res.Outcome.String()).Inc()
	}

	switch {
	case res.Outcome == session.Authorized:
		return handler(auth.ContextWithUser(ctx, res.User), req)
	case res.Outcome == session.Failed:
		s.logger.Error(ctx, "session lookup failed", "method", info.FullMethod, "policy", policy.String(), "error", res.Err)
		if policy == session.Enforce {
			return nil, status.Error(codes.Internal, common.ErrInternal.Error())
		}
	case policy == session.Enforce:
		return nil, resolutionStatus(res)
	}

	return handler(ctx, req)
}

func resolutionStatus(res session.Resolution) error {
	switch res.Outcome {
	case session.MissingToken:
		return status.Error(codes.InvalidArgument, common.ErrMissingToken.Error())
	case session.InvalidToken:
		return status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	case session.MissingUser:
		return status.Error(codes.Unauthenticated, common.ErrMissingUser.Error())
	default:
		return status.Error(codes.Internal, common.ErrInternal.Error())
	}
}

// loggingInterceptor logs each call with its status code and latency.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", info.FullMethod, "code", code.String(), "latency", time.Since(start).String()}
	switch code {
	case codes.OK:
		s.logger.Debug(ctx, "call completed", args...)
	case codes.Internal, codes.Unknown:
		s.logger.Error(ctx, "call completed", args...)
	default:
		s.logger.Warn(ctx, "call completed", args...)
	}
	return resp, err
}
