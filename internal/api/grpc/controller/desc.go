package controller

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "lvc.v1.ControllerService"

// Full method names used by clients.
const (
	FullMethodGetSubstation   = "/" + ServiceName + "/GetSubstation"
	FullMethodListSubstations = "/" + ServiceName + "/ListSubstations"
	FullMethodIssueControl    = "/" + ServiceName + "/IssueControl"
	FullMethodListEvents      = "/" + ServiceName + "/ListEvents"
)

// ControllerServiceServer is the server API of lvc.v1.ControllerService.
type ControllerServiceServer interface {
	GetSubstation(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ListSubstations(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
	IssueControl(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListEvents(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
}

// ServiceDesc describes lvc.v1.ControllerService for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControllerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetSubstation",
			Handler:    getSubstationHandler,
		},
		{
			MethodName: "ListSubstations",
			Handler:    listSubstationsHandler,
		},
		{
			MethodName: "IssueControl",
			Handler:    issueControlHandler,
		},
		{
			MethodName: "ListEvents",
			Handler:    listEventsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lvc/v1/controller.proto",
}

// RegisterControllerServiceServer registers srv on s.
func RegisterControllerServiceServer(s grpc.ServiceRegistrar, srv ControllerServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts a typed method to grpc.MethodHandler.
func unaryHandler[Req any, Resp any](
	fullMethod string,
	newRequest func() *Req,
	call func(ControllerServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newRequest()
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(ControllerServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}

//nolint:gochecknoglobals // Method handlers referenced by ServiceDesc.
var (
	getSubstationHandler = unaryHandler(FullMethodGetSubstation,
		func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
		ControllerServiceServer.GetSubstation)
	listSubstationsHandler = unaryHandler(FullMethodListSubstations,
		func() *emptypb.Empty { return new(emptypb.Empty) },
		ControllerServiceServer.ListSubstations)
	issueControlHandler = unaryHandler(FullMethodIssueControl,
		func() *structpb.Struct { return new(structpb.Struct) },
		ControllerServiceServer.IssueControl)
	listEventsHandler = unaryHandler(FullMethodListEvents,
		func() *emptypb.Empty { return new(emptypb.Empty) },
		ControllerServiceServer.ListEvents)
)
