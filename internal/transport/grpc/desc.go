package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified name of the beer stock gRPC service.
const ServiceName = "beerstock.v1.BeerStockService"

// BeerStockServer is the server API of the beer stock gRPC service.
// Beers travel as structpb.Struct with the fields of the REST representation, the id encoded as a string.
type BeerStockServer interface {
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindByName(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	FindByID(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListAll(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	DeleteByID(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
	// Increment and Decrement take {"id": "n", "quantity": n}.
	Increment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Decrement(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the beer stock service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BeerStockServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Create", newStruct, BeerStockServer.Create),
		unary("FindByName", newStringValue, BeerStockServer.FindByName),
		unary("FindByID", newInt64Value, BeerStockServer.FindByID),
		unary("ListAll", newEmpty, BeerStockServer.ListAll),
		unary("DeleteByID", newInt64Value, BeerStockServer.DeleteByID),
		unary("Increment", newStruct, BeerStockServer.Increment),
		unary("Decrement", newStruct, BeerStockServer.Decrement),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "beerstock/v1/beerstock.proto",
}

// RegisterBeerStockServer registers srv with the given registrar.
func RegisterBeerStockServer(s grpc.ServiceRegistrar, srv BeerStockServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func newStruct() *structpb.Struct             { return new(structpb.Struct) }
func newStringValue() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newInt64Value() *wrapperspb.Int64Value   { return new(wrapperspb.Int64Value) }
func newEmpty() *emptypb.Empty                { return new(emptypb.Empty) }

// unary builds the method descriptor of a unary call, the same way protoc-gen-go-grpc does per method.
func unary[Req, Resp any](name string, newReq func() Req, call func(BeerStockServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	method := fullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BeerStockServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BeerStockServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
