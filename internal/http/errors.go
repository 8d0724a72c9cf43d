package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, logger *zap.Logger, status int, code, message string) {
	respondJSON(w, logger, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts a cart error kind to its HTTP status and code.
func handleError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.Error("unexpected error", zap.Error(err))
		respondError(w, logger, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	httpStatus, code := StatusFor(de.Kind)
	if httpStatus >= http.StatusInternalServerError || de.Kind == domain.KindConcurrentModification {
		logger.Warn("cart operation failed", zap.String("code", code), zap.Error(err))
	}

	resp := ErrorResponse{
		Error: de.Message,
		Code:  code,
	}
	if de.ProductID != "" || de.VariantID != "" {
		resp.Details = map[string]any{
			"product_id": de.ProductID,
			"variant_id": de.VariantID,
		}
	}
	if de.Kind == domain.KindInsufficientStock {
		resp.Details["requested"] = de.Requested
		resp.Details["available"] = de.Available
	}
	respondJSON(w, logger, httpStatus, resp)
}

// StatusFor returns the HTTP status and error code for an error kind.
func StatusFor(k domain.Kind) (int, string) {
	switch k {
	case domain.KindInvalidArgument:
		return http.StatusBadRequest, "invalid_argument"
	case domain.KindVariantUnavailable:
		return http.StatusConflict, "variant_unavailable"
	case domain.KindInsufficientStock:
		return http.StatusConflict, "insufficient_stock"
	case domain.KindLineNotFound:
		return http.StatusNotFound, "line_not_found"
	case domain.KindConcurrentModification:
		return http.StatusConflict, "concurrent_modification"
	case domain.KindUpstreamTimeout:
		return http.StatusGatewayTimeout, "upstream_timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
