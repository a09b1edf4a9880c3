package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/server/auth"
	"github.com/dmitrijs2005/elnafo/internal/server/models"
)

const (
	ServiceName   = "elnafo.v1.UserService"
	CurrentMethod = "/" + ServiceName + "/Current"
	ProfileMethod = "/" + ServiceName + "/Profile"
)

// UserServiceServer is the server API of elnafo.v1.UserService.
type UserServiceServer interface {
	// Current returns the caller. Requires a session.
	Current(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Profile returns the user with the given login. The email is included
	// for the user themself and for administrators.
	Profile(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

var userServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Current", Handler: currentHandler},
		{MethodName: "Profile", Handler: profileHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "elnafo/v1/user.proto",
}

func currentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceServer).Current(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CurrentMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(UserServiceServer).Current(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func profileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceServer).Profile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ProfileMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(UserServiceServer).Profile(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func (s *GRPCServer) Current(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, common.ErrMissingUser.Error())
	}
	return s.userStruct(ctx, user, true)
}

func (s *GRPCServer) Profile(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "login is required")
	}

	user, err := s.users.Profile(ctx, req.GetValue())
	if errors.Is(err, common.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	if err != nil {
		s.logger.Error(ctx, "profile lookup failed", "login", req.GetValue(), "error", err)
		return nil, status.Error(codes.Internal, common.ErrInternal.Error())
	}

	viewer, _ := auth.UserFromContext(ctx)
	return s.userStruct(ctx, user, models.CanSeeEmailOf(viewer, user))
}

func (s *GRPCServer) userStruct(ctx context.Context, u *models.User, withEmail bool) (*structpb.Struct, error) {
	p := u.Public(withEmail)
	fields := map[string]any{
		"id":         p.ID,
		"login":      p.Login,
		"name":       p.Name,
		"is_admin":   p.IsAdmin,
		"avatar":     p.Avatar,
		"created_at": p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if withEmail {
		fields["email"] = p.Email
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		s.logger.Error(ctx, "encode user", "error", err)
		return nil, status.Error(codes.Internal, common.ErrInternal.Error())
	}
	return out, nil
}
