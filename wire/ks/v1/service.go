package ksv1

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// KeyServerClient is the client API for the KeyServer service defined in
// ks.proto, hand-written in the shape protoc-gen-go-grpc would generate.
type KeyServerClient interface {
	GenerateKey(ctx context.Context, in *GenerateKeyRequest, opts ...grpc.CallOption) (*GenerateKeyResponse, error)
	GetSecretKey(ctx context.Context, in *GetSecretKeyRequest, opts ...grpc.CallOption) (*GetSecretKeyResponse, error)
	HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error)
}

type keyServerClient struct {
	cc grpc.ClientConnInterface
}

// NewKeyServerClient wraps an existing connection with typed KS RPC methods.
func NewKeyServerClient(cc grpc.ClientConnInterface) KeyServerClient {
	return &keyServerClient{cc: cc}
}

func (c *keyServerClient) GenerateKey(ctx context.Context, in *GenerateKeyRequest, opts ...grpc.CallOption) (*GenerateKeyResponse, error) {
	out := new(GenerateKeyResponse)
	if err := c.cc.Invoke(ctx, "/actrix.ks.v1.KeyServer/GenerateKey", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keyServerClient) GetSecretKey(ctx context.Context, in *GetSecretKeyRequest, opts ...grpc.CallOption) (*GetSecretKeyResponse, error) {
	out := new(GetSecretKeyResponse)
	if err := c.cc.Invoke(ctx, "/actrix.ks.v1.KeyServer/GetSecretKey", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keyServerClient) HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error) {
	out := new(HealthCheckResponse)
	if err := c.cc.Invoke(ctx, "/actrix.ks.v1.KeyServer/HealthCheck", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// KeyServerServer is the server API for the KeyServer service.
type KeyServerServer interface {
	GenerateKey(context.Context, *GenerateKeyRequest) (*GenerateKeyResponse, error)
	GetSecretKey(context.Context, *GetSecretKeyRequest) (*GetSecretKeyResponse, error)
	HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
}

// UnimplementedKeyServerServer embeds in a concrete server implementation to
// satisfy KeyServerServer for methods it doesn't override, mirroring the
// forward-compatibility shim protoc-gen-go-grpc generates.
type UnimplementedKeyServerServer struct{}

func (UnimplementedKeyServerServer) GenerateKey(context.Context, *GenerateKeyRequest) (*GenerateKeyResponse, error) {
	return nil, fmt.Errorf("ksv1: GenerateKey not implemented")
}

func (UnimplementedKeyServerServer) GetSecretKey(context.Context, *GetSecretKeyRequest) (*GetSecretKeyResponse, error) {
	return nil, fmt.Errorf("ksv1: GetSecretKey not implemented")
}

func (UnimplementedKeyServerServer) HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error) {
	return nil, fmt.Errorf("ksv1: HealthCheck not implemented")
}

// RegisterKeyServerServer registers srv against s under the ServiceDesc below.
func RegisterKeyServerServer(s grpc.ServiceRegistrar, srv KeyServerServer) {
	s.RegisterService(&KeyServer_ServiceDesc, srv)
}

func _KeyServer_GenerateKey_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GenerateKeyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServerServer).GenerateKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/actrix.ks.v1.KeyServer/GenerateKey"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyServerServer).GenerateKey(ctx, req.(*GenerateKeyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _KeyServer_GetSecretKey_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSecretKeyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServerServer).GetSecretKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/actrix.ks.v1.KeyServer/GetSecretKey"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyServerServer).GetSecretKey(ctx, req.(*GetSecretKeyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _KeyServer_HealthCheck_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyServerServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/actrix.ks.v1.KeyServer/HealthCheck"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyServerServer).HealthCheck(ctx, req.(*HealthCheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// KeyServer_ServiceDesc is the hand-written grpc.ServiceDesc a protoc-gen-go-grpc
// run would otherwise generate from ks.proto's `service KeyServer`.
var KeyServer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "actrix.ks.v1.KeyServer",
	HandlerType: (*KeyServerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GenerateKey", Handler: _KeyServer_GenerateKey_Handler},
		{MethodName: "GetSecretKey", Handler: _KeyServer_GetSecretKey_Handler},
		{MethodName: "HealthCheck", Handler: _KeyServer_HealthCheck_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wire/ks/v1/ks.proto",
}
