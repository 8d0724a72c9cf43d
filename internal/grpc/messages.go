package grpc

import "github.com/fjod/go_cart/variant-cart/internal/domain"

type GetCartRequest struct {
	UserID string `json:"user_id"`
}

type AddItemRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	// Quantity defaults to 1 when omitted.
	Quantity *int `json:"quantity,omitempty"`
}

type UpdateQuantityRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type RemoveItemRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
}

type ClearCartRequest struct {
	UserID string `json:"user_id"`
}

type CleanupInactiveRequest struct {
	UserID string `json:"user_id"`
}

type CartResponse struct {
	Cart *domain.CartView `json:"cart"`
}

type CleanupInactiveResponse struct {
	Removed int `json:"removed"`
}
