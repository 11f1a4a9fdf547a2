package server

import (
	"context"

	"google.golang.org/grpc"
)

const (
	IntelligenceServiceName = "docintel.v1.IntelligenceService"
	AnalyzeFullMethod       = "/" + IntelligenceServiceName + "/Analyze"
)

// IntelligenceServer is the server API for the intelligence service.
type IntelligenceServer interface {
	Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error)
}

func RegisterIntelligenceServer(s grpc.ServiceRegistrar, srv IntelligenceServer) {
	s.RegisterService(&IntelligenceServiceDesc, srv)
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AnalyzeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IntelligenceServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AnalyzeFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IntelligenceServer).Analyze(ctx, req.(*AnalyzeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var IntelligenceServiceDesc = grpc.ServiceDesc{
	ServiceName: IntelligenceServiceName,
	HandlerType: (*IntelligenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docintel/v1/intelligence",
}

// IntelligenceClient calls a remote intelligence service over the JSON codec.
type IntelligenceClient struct {
	cc grpc.ClientConnInterface
}

func NewIntelligenceClient(cc grpc.ClientConnInterface) *IntelligenceClient {
	return &IntelligenceClient{cc: cc}
}

func (c *IntelligenceClient) Analyze(ctx context.Context, req *AnalyzeRequest, opts ...grpc.CallOption) (*AnalyzeResponse, error) {
	out := new(AnalyzeResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, AnalyzeFullMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
