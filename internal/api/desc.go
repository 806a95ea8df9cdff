// Package api exposes the counter, message and contact operations over gRPC. Messages
// are google.protobuf.Struct values, so the service descriptors are written
// by hand instead of generated.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	CounterServiceName = "mailcount.v1.CounterService"
	ContactServiceName = "mailcount.v1.ContactService"
	MessageServiceName = "mailcount.v1.MessageService"
)

// Full method names, as used by clients.
const (
	MethodStatus          = "/" + CounterServiceName + "/Status"
	MethodListCounters    = "/" + CounterServiceName + "/ListCounters"
	MethodSeedCounters    = "/" + CounterServiceName + "/SeedCounters"
	MethodRebuildCounters = "/" + CounterServiceName + "/RebuildCounters"
	MethodReconcile       = "/" + CounterServiceName + "/Reconcile"
	MethodSubmitBatch     = "/" + CounterServiceName + "/SubmitBatch"
	MethodCancelJob       = "/" + CounterServiceName + "/CancelJob"
	MethodJobStatus       = "/" + CounterServiceName + "/JobStatus"
	MethodWatchCounters   = "/" + CounterServiceName + "/WatchCounters"
	MethodImportContacts  = "/" + ContactServiceName + "/ImportContacts"
	MethodListContacts    = "/" + ContactServiceName + "/ListContacts"
	MethodGetContact      = "/" + ContactServiceName + "/GetContact"
	MethodImportMessages  = "/" + MessageServiceName + "/ImportMessages"
	MethodListMessages    = "/" + MessageServiceName + "/ListMessages"
)

// CounterServiceServer is the server side of mailcount.v1.CounterService.
type CounterServiceServer interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListCounters(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SeedCounters(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RebuildCounters(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reconcile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JobStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchCounters(*emptypb.Empty, grpc.ServerStream) error
}

// ContactServiceServer is the server side of mailcount.v1.ContactService.
type ContactServiceServer interface {
	ImportContacts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListContacts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetContact(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// MessageServiceServer is the server side of mailcount.v1.MessageService.
type MessageServiceServer interface {
	ImportMessages(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMessages(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// WatchCountersStreamDesc describes the server stream for clients.
var WatchCountersStreamDesc = grpc.StreamDesc{
	StreamName:    "WatchCounters",
	ServerStreams: true,
}

var counterServiceDesc = grpc.ServiceDesc{
	ServiceName: CounterServiceName,
	HandlerType: (*CounterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: unary(MethodStatus, newEmpty, func(srv any, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
			return srv.(CounterServiceServer).Status(ctx, in)
		})},
		{MethodName: "ListCounters", Handler: unary(MethodListCounters, newEmpty, func(srv any, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
			return srv.(CounterServiceServer).ListCounters(ctx, in)
		})},
		{MethodName: "SeedCounters", Handler: unary(MethodSeedCounters, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(CounterServiceServer).SeedCounters(ctx, in)
		})},
		{MethodName: "RebuildCounters", Handler: unary(MethodRebuildCounters, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(CounterServiceServer).RebuildCounters(ctx, in)
		})},
		{MethodName: "Reconcile", Handler: unary(MethodReconcile, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(CounterServiceServer).Reconcile(ctx, in)
		})},
		{MethodName: "SubmitBatch", Handler: unary(MethodSubmitBatch, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(CounterServiceServer).SubmitBatch(ctx, in)
		})},
		{MethodName: "CancelJob", Handler: unary(MethodCancelJob, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(CounterServiceServer).CancelJob(ctx, in)
		})},
		{MethodName: "JobStatus", Handler: unary(MethodJobStatus, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(CounterServiceServer).JobStatus(ctx, in)
		})},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchCounters",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(emptypb.Empty)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(CounterServiceServer).WatchCounters(in, stream)
			},
		},
	},
	Metadata: "mailcount/v1/counter.proto",
}

var contactServiceDesc = grpc.ServiceDesc{
	ServiceName: ContactServiceName,
	HandlerType: (*ContactServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ImportContacts", Handler: unary(MethodImportContacts, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(ContactServiceServer).ImportContacts(ctx, in)
		})},
		{MethodName: "ListContacts", Handler: unary(MethodListContacts, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(ContactServiceServer).ListContacts(ctx, in)
		})},
		{MethodName: "GetContact", Handler: unary(MethodGetContact, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(ContactServiceServer).GetContact(ctx, in)
		})},
	},
	Metadata: "mailcount/v1/contact.proto",
}

var messageServiceDesc = grpc.ServiceDesc{
	ServiceName: MessageServiceName,
	HandlerType: (*MessageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ImportMessages", Handler: unary(MethodImportMessages, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(MessageServiceServer).ImportMessages(ctx, in)
		})},
		{MethodName: "ListMessages", Handler: unary(MethodListMessages, newStruct, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(MessageServiceServer).ListMessages(ctx, in)
		})},
	},
	Metadata: "mailcount/v1/message.proto",
}

// RegisterCounterServiceServer registers srv on s.
func RegisterCounterServiceServer(s grpc.ServiceRegistrar, srv CounterServiceServer) {
	s.RegisterService(&counterServiceDesc, srv)
}

// RegisterContactServiceServer registers srv on s.
func RegisterContactServiceServer(s grpc.ServiceRegistrar, srv ContactServiceServer) {
	s.RegisterService(&contactServiceDesc, srv)
}

// RegisterMessageServiceServer registers srv on s.
func RegisterMessageServiceServer(s grpc.ServiceRegistrar, srv MessageServiceServer) {
	s.RegisterService(&messageServiceDesc, srv)
}

func newEmpty() *emptypb.Empty    { return new(emptypb.Empty) }
func newStruct() *structpb.Struct { return new(structpb.Struct) }

// unary adapts a typed call to grpc's method handler signature, running
// any configured interceptor.
func unary[T proto.Message](fullMethod string, newIn func() T, call func(srv any, ctx context.Context, in T) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newIn()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(T))
		}
		return interceptor(ctx, in, info, handler)
	}
}
