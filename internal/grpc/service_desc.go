package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "cart.v1.CartService"

// CartServiceServer is the server API for cart.v1.CartService.
type CartServiceServer interface {
	GetCart(context.Context, *GetCartRequest) (*CartResponse, error)
	AddItem(context.Context, *AddItemRequest) (*CartResponse, error)
	UpdateQuantity(context.Context, *UpdateQuantityRequest) (*CartResponse, error)
	RemoveItem(context.Context, *RemoveItemRequest) (*CartResponse, error)
	ClearCart(context.Context, *ClearCartRequest) (*CartResponse, error)
	CleanupInactive(context.Context, *CleanupInactiveRequest) (*CleanupInactiveResponse, error)
}

var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCart", Handler: unaryHandler("GetCart", CartServiceServer.GetCart)},
		{MethodName: "AddItem", Handler: unaryHandler("AddItem", CartServiceServer.AddItem)},
		{MethodName: "UpdateQuantity", Handler: unaryHandler("UpdateQuantity", CartServiceServer.UpdateQuantity)},
		{MethodName: "RemoveItem", Handler: unaryHandler("RemoveItem", CartServiceServer.RemoveItem)},
		{MethodName: "ClearCart", Handler: unaryHandler("ClearCart", CartServiceServer.ClearCart)},
		{MethodName: "CleanupInactive", Handler: unaryHandler("CleanupInactive", CartServiceServer.CleanupInactive)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cart/v1/cart.proto",
}

func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}

func unaryHandler[Req, Resp any](
	method string,
	call func(CartServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CartServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CartServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CartServiceClient calls cart.v1.CartService using the JSON codec.
type CartServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCartServiceClient(cc grpc.ClientConnInterface) *CartServiceClient {
	return &CartServiceClient{cc: cc}
}

func (c *CartServiceClient) GetCart(ctx context.Context, in *GetCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "GetCart", in, opts)
}

func (c *CartServiceClient) AddItem(ctx context.Context, in *AddItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "AddItem", in, opts)
}

func (c *CartServiceClient) UpdateQuantity(ctx context.Context, in *UpdateQuantityRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "UpdateQuantity", in, opts)
}

func (c *CartServiceClient) RemoveItem(ctx context.Context, in *RemoveItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "RemoveItem", in, opts)
}

func (c *CartServiceClient) ClearCart(ctx context.Context, in *ClearCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "ClearCart", in, opts)
}

func (c *CartServiceClient) CleanupInactive(ctx context.Context, in *CleanupInactiveRequest, opts ...grpc.CallOption) (*CleanupInactiveResponse, error) {
	return invoke[CleanupInactiveResponse](ctx, c.cc, "CleanupInactive", in, opts)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
