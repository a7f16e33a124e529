package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "kpi.v1.KpiScoring"

// KpiScoringServer is the server API of the KPI scoring service. Every
// method exchanges google.protobuf.Struct messages.
type KpiScoringServer interface {
	ConfigureKpi(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GrantUpdater(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetPolicy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitValue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ImportValues(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListValues(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv KpiScoringServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KpiScoringServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(KpiScoringServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var KpiScoringServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KpiScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ConfigureKpi", Handler: unaryHandler("ConfigureKpi", KpiScoringServer.ConfigureKpi)},
		{MethodName: "GrantUpdater", Handler: unaryHandler("GrantUpdater", KpiScoringServer.GrantUpdater)},
		{MethodName: "SetPolicy", Handler: unaryHandler("SetPolicy", KpiScoringServer.SetPolicy)},
		{MethodName: "SubmitValue", Handler: unaryHandler("SubmitValue", KpiScoringServer.SubmitValue)},
		{MethodName: "ImportValues", Handler: unaryHandler("ImportValues", KpiScoringServer.ImportValues)},
		{MethodName: "ListValues", Handler: unaryHandler("ListValues", KpiScoringServer.ListValues)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kpi/v1/kpi_scoring.proto",
}

func RegisterKpiScoringServer(s grpc.ServiceRegistrar, srv KpiScoringServer) {
	s.RegisterService(&KpiScoringServiceDesc, srv)
}

// KpiScoringClient calls the KPI scoring service over a client connection.
type KpiScoringClient struct {
	cc grpc.ClientConnInterface
}

func NewKpiScoringClient(cc grpc.ClientConnInterface) *KpiScoringClient {
	return &KpiScoringClient{cc: cc}
}

// Call invokes method with req and returns the response struct.
func (c *KpiScoringClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
