package grpc

import (
	"context"
	"errors"
	"strconv"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "cart.v1"

// CartService is what the transport needs from the reconciliation engine.
type CartService interface {
	GetCartView(ctx context.Context, ownerID string) (*domain.CartView, error)
	AddOrMergeLine(ctx context.Context, ownerID, productID, variantID string, quantity int) (*domain.CartView, error)
	SetLineQuantity(ctx context.Context, ownerID, productID, variantID string, quantity int) (*domain.CartView, error)
	RemoveLine(ctx context.Context, ownerID, productID, variantID string) (*domain.CartView, error)
	ClearCart(ctx context.Context, ownerID string) (*domain.CartView, error)
	CleanupInactiveLines(ctx context.Context, ownerID string) (int, error)
}

type Server struct {
	service CartService
	logger  *zap.Logger
}

func NewCartServiceServer(service CartService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		service: service,
		logger:  logger,
	}
}

func (s *Server) GetCart(ctx context.Context, req *GetCartRequest) (*CartResponse, error) {
	view, err := s.service.GetCartView(ctx, req.UserID)
	if err != nil {
		return nil, s.toStatus("get cart", err)
	}
	return &CartResponse{Cart: view}, nil
}

func (s *Server) AddItem(ctx context.Context, req *AddItemRequest) (*CartResponse, error) {
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := s.service.AddOrMergeLine(ctx, req.UserID, req.ProductID, req.VariantID, quantity)
	if err != nil {
		return nil, s.toStatus("add item", err)
	}
	return &CartResponse{Cart: view}, nil
}

func (s *Server) UpdateQuantity(ctx context.Context, req *UpdateQuantityRequest) (*CartResponse, error) {
	view, err := s.service.SetLineQuantity(ctx, req.UserID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		return nil, s.toStatus("update quantity", err)
	}
	return &CartResponse{Cart: view}, nil
}

func (s *Server) RemoveItem(ctx context.Context, req *RemoveItemRequest) (*CartResponse, error) {
	view, err := s.service.RemoveLine(ctx, req.UserID, req.ProductID, req.VariantID)
	if err != nil {
		return nil, s.toStatus("remove item", err)
	}
	return &CartResponse{Cart: view}, nil
}

func (s *Server) ClearCart(ctx context.Context, req *ClearCartRequest) (*CartResponse, error) {
	view, err := s.service.ClearCart(ctx, req.UserID)
	if err != nil {
		return nil, s.toStatus("clear cart", err)
	}
	return &CartResponse{Cart: view}, nil
}

func (s *Server) CleanupInactive(ctx context.Context, req *CleanupInactiveRequest) (*CleanupInactiveResponse, error) {
	removed, err := s.service.CleanupInactiveLines(ctx, req.UserID)
	if err != nil {
		return nil, s.toStatus("cleanup inactive", err)
	}
	return &CleanupInactiveResponse{Removed: removed}, nil
}

// toStatus maps a cart error to a status whose ErrorInfo reason names the
// error kind. Anything that is not a cart error is reported as internal.
func (s *Server) toStatus(op string, err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
	if de.Kind == domain.KindUpstreamTimeout || de.Kind == domain.KindConcurrentModification {
		s.logger.Warn("cart operation failed", zap.String("op", op), zap.Error(err))
	}

	st := status.New(Code(de.Kind), de.Message)
	withDetails, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   de.Kind.String(),
		Domain:   errorDomain,
		Metadata: errorMetadata(de),
	})
	if detailErr != nil {
		return st.Err()
	}
	return withDetails.Err()
}

// Code returns the gRPC code for an error kind.
func Code(k domain.Kind) codes.Code {
	switch k {
	case domain.KindInvalidArgument:
		return codes.InvalidArgument
	case domain.KindVariantUnavailable, domain.KindInsufficientStock:
		return codes.FailedPrecondition
	case domain.KindLineNotFound:
		return codes.NotFound
	case domain.KindConcurrentModification:
		return codes.Aborted
	case domain.KindUpstreamTimeout:
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func errorMetadata(e *domain.Error) map[string]string {
	md := map[string]string{}
	if e.ProductID != "" {
		md["product_id"] = e.ProductID
	}
	if e.VariantID != "" {
		md["variant_id"] = e.VariantID
	}
	if e.Kind == domain.KindInsufficientStock {
		md["requested"] = strconv.Itoa(e.Requested)
		md["available"] = strconv.Itoa(e.Available)
	}
	return md
}

var _ CartServiceServer = (*Server)(nil)
