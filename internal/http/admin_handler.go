package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/fjod/go_cart/variant-cart/internal/service"
	"go.uber.org/zap"
)

type AdminService interface {
	ListCarts(ctx context.Context, req service.ListCartsRequest) (*domain.Page, error)
	CleanupAllCarts(ctx context.Context) (int, error)
}

type AdminHandler struct {
	service AdminService
	timeout time.Duration
	logger  *zap.Logger
}

func NewAdminHandler(service AdminService, timeout time.Duration, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		service: service,
		timeout: timeout,
		logger:  logger,
	}
}

type CleanupAllResponseDTO struct {
	CartsCleaned int `json:"carts_cleaned"`
}

func (h *AdminHandler) ListCarts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	page, err := intParam(q.Get("page"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_argument", "page must be a positive integer")
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_argument", "limit must be a positive integer")
		return
	}

	result, err := h.service.ListCarts(ctx, service.ListCartsRequest{
		OwnerID: q.Get("owner_id"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, result)
}

// CleanupAll may touch every cart, so it runs without the per-request timeout.
func (h *AdminHandler) CleanupAll(w http.ResponseWriter, r *http.Request) {
	cleaned, err := h.service.CleanupAllCarts(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, CleanupAllResponseDTO{CartsCleaned: cleaned})
}

// intParam returns 0 for an empty value so the service applies its default.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
