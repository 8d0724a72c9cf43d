package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CartService is what the cart routes need from the reconciliation engine.
type CartService interface {
	GetCartView(ctx context.Context, ownerID string) (*domain.CartView, error)
	AddOrMergeLine(ctx context.Context, ownerID, productID, variantID string, quantity int) (*domain.CartView, error)
	SetLineQuantity(ctx context.Context, ownerID, productID, variantID string, quantity int) (*domain.CartView, error)
	RemoveLine(ctx context.Context, ownerID, productID, variantID string) (*domain.CartView, error)
	ClearCart(ctx context.Context, ownerID string) (*domain.CartView, error)
	CleanupInactiveLines(ctx context.Context, ownerID string) (int, error)
}

type CartHandler struct {
	service CartService
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(service CartService, timeout time.Duration, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{
		service: service,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  *int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CleanupResponseDTO struct {
	Removed int `json:"removed"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetCartView(ctx, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.service.AddOrMergeLine(ctx, userID, req.ProductID, req.VariantID, quantity)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, view)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := h.service.SetLineQuantity(ctx, userID,
		chi.URLParam(r, "product_id"), chi.URLParam(r, "variant_id"), req.Quantity)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	view, err := h.service.RemoveLine(ctx, userID, chi.URLParam(r, "product_id"), chi.URLParam(r, "variant_id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	view, err := h.service.ClearCart(ctx, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

func (h *CartHandler) CleanupInactive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	removed, err := h.service.CleanupInactiveLines(ctx, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, CleanupResponseDTO{Removed: removed})
}

func (h *CartHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, h.logger, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return "", false
	}
	return userID, true
}
