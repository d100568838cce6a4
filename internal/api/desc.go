package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "deconfliction.v1.DeconflictionService"

const (
	methodRegisterMission = "/" + ServiceName + "/RegisterMission"
	methodClearMissions   = "/" + ServiceName + "/ClearMissions"
	methodListMissions    = "/" + ServiceName + "/ListMissions"
	methodGetMission      = "/" + ServiceName + "/GetMission"
	methodCheckMission    = "/" + ServiceName + "/CheckMission"
	methodCheckFleet      = "/" + ServiceName + "/CheckFleet"
)

// DeconflictionServer is the server API for the deconfliction service.
// Payloads are google.protobuf.Struct documents whose shapes mirror the JSON
// encoding of model.MissionSpec and core.CheckResult.
type DeconflictionServer interface {
	RegisterMission(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ClearMissions(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	ListMissions(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetMission(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckMission(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckFleet(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterDeconflictionServer attaches srv to s.
func RegisterDeconflictionServer(s grpc.ServiceRegistrar, srv DeconflictionServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the deconfliction service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeconflictionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RegisterMission",
			Handler: unary(methodRegisterMission, func(s DeconflictionServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.RegisterMission(ctx, in)
			}),
		},
		{
			MethodName: "ClearMissions",
			Handler: unary(methodClearMissions, func(s DeconflictionServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.ClearMissions(ctx, in)
			}),
		},
		{
			MethodName: "ListMissions",
			Handler: unary(methodListMissions, func(s DeconflictionServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.ListMissions(ctx, in)
			}),
		},
		{
			MethodName: "GetMission",
			Handler: unary(methodGetMission, func(s DeconflictionServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.GetMission(ctx, in)
			}),
		},
		{
			MethodName: "CheckMission",
			Handler: unary(methodCheckMission, func(s DeconflictionServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.CheckMission(ctx, in)
			}),
		},
		{
			MethodName: "CheckFleet",
			Handler: unary(methodCheckFleet, func(s DeconflictionServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.CheckFleet(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "deconfliction/v1/deconfliction.proto",
}

// unary builds a grpc method handler that decodes a Req and dispatches it to
// call, routing through the server's interceptor chain when one is set.
func unary[Req any, PReq interface{ *Req }](
	fullMethod string,
	call func(DeconflictionServer, context.Context, PReq) (any, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DeconflictionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DeconflictionServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}
