package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cart *CartHandler, admin *AdminHandler, cfg RouterConfig, logger *zap.Logger) http.Handler {
	if cfg.MaxRequestBodySize == 0 {
		cfg.MaxRequestBodySize = 1 << 20 // 1MB
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(AccessLogMiddleware(logger))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(HeaderAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			if cfg.RequestTimeout > 0 {
				r.Use(middleware.Timeout(cfg.RequestTimeout))
			}
			r.Get("/", cart.GetCart)
			r.Delete("/", cart.ClearCart)
			r.Post("/items", cart.AddItem)
			r.Put("/items/{product_id}/{variant_id}", cart.UpdateQuantity)
			r.Delete("/items/{product_id}/{variant_id}", cart.RemoveItem)
			r.Post("/cleanup", cart.CleanupInactive)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(logger))
			r.Get("/carts", admin.ListCarts)
			r.Post("/carts/cleanup", admin.CleanupAll)
		})
	})

	return r
}
