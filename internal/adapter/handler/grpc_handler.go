package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/food-order/internal/core/domain"
	"github.com/rl1809/food-order/internal/core/service"
)

const grpcServiceName = "foodorder.v1.OrderService"

// JSONCodec carries gRPC messages as JSON so the service needs no generated stubs.
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string {
	return "json"
}

type ListMyOrdersRequest struct{}

type ListMyOrdersResponse struct {
	Orders []domain.OrderView `json:"orders"`
}

type CreateCheckoutSessionResponse struct {
	URL string `json:"url"`
}

type DeleteOrderRequest struct {
	OrderID string `json:"orderId"`
}

type DeleteOrderResponse struct {
	Message string `json:"message"`
}

type OrderServiceServer interface {
	ListMyOrders(context.Context, *ListMyOrdersRequest) (*ListMyOrdersResponse, error)
	CreateCheckoutSession(context.Context, *service.CheckoutRequest) (*CreateCheckoutSessionResponse, error)
	DeleteOrder(context.Context, *DeleteOrderRequest) (*DeleteOrderResponse, error)
}

type GRPCHandler struct {
	orderService *service.OrderService
	auth         *Authenticator
	logger       *slog.Logger
}

func NewGRPCHandler(orderService *service.OrderService, auth *Authenticator, logger *slog.Logger) *GRPCHandler {
	return &GRPCHandler{
		orderService: orderService,
		auth:         auth,
		logger:       logger.With("component", "grpc"),
	}
}

// ServerOptions returns the codec and auth interceptor the handler expects.
func (h *GRPCHandler) ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ForceServerCodec(JSONCodec{}),
		grpc.UnaryInterceptor(h.authInterceptor),
	}
}

func (h *GRPCHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&orderServiceDesc, h)
}

func (h *GRPCHandler) ListMyOrders(ctx context.Context, req *ListMyOrdersRequest) (*ListMyOrdersResponse, error) {
	userID, _ := UserIDFromContext(ctx)

	orders, err := h.orderService.ListMyOrders(ctx, userID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &ListMyOrdersResponse{Orders: orders}, nil
}

func (h *GRPCHandler) CreateCheckoutSession(ctx context.Context, req *service.CheckoutRequest) (*CreateCheckoutSessionResponse, error) {
	userID, _ := UserIDFromContext(ctx)

	url, err := h.orderService.CreateCheckoutSession(ctx, userID, *req)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &CreateCheckoutSessionResponse{URL: url}, nil
}

func (h *GRPCHandler) DeleteOrder(ctx context.Context, req *DeleteOrderRequest) (*DeleteOrderResponse, error) {
	userID, _ := UserIDFromContext(ctx)

	if err := h.orderService.DeleteOrder(ctx, userID, req.OrderID); err != nil {
		return nil, h.toStatus(err)
	}
	return &DeleteOrderResponse{Message: "Order deleted successfully"}, nil
}

func (h *GRPCHandler) authInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
	var authorization string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("authorization"); len(values) > 0 {
			authorization = values[0]
		}
	}

	user, err := h.auth.Authenticate(ctx, authorization)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		h.logger.Error("authentication failed", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Internal, "something went wrong")
	}

	return next(WithUserID(ctx, user.ID), req)
}

func (h *GRPCHandler) toStatus(err error) error {
	switch {
	case service.IsClientError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrRestaurantNotFound), errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, service.ErrOrderInProgress):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrPaymentSession):
		return status.Error(codes.Unavailable, err.Error())
	default:
		h.logger.Error("rpc failed", "error", err)
		return status.Error(codes.Internal, "something went wrong")
	}
}

func listMyOrdersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListMyOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).ListMyOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + grpcServiceName + "/ListMyOrders"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderServiceServer).ListMyOrders(ctx, req.(*ListMyOrdersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func createCheckoutSessionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(service.CheckoutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).CreateCheckoutSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + grpcServiceName + "/CreateCheckoutSession"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderServiceServer).CreateCheckoutSession(ctx, req.(*service.CheckoutRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeleteOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).DeleteOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + grpcServiceName + "/DeleteOrder"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderServiceServer).DeleteOrder(ctx, req.(*DeleteOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: grpcServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListMyOrders", Handler: listMyOrdersHandler},
		{MethodName: "CreateCheckoutSession", Handler: createCheckoutSessionHandler},
		{MethodName: "DeleteOrder", Handler: deleteOrderHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "foodorder/v1/order.proto",
}
