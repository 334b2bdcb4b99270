package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/handler"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/store"
)

// NewRouter assembles the cartd HTTP surface.
func NewRouter(st store.Store, jwt *auth.JWTManager) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	handler.NewCartHandler(st).RegisterRoutes(r, jwt)
	handler.NewOrderHandler(st).RegisterRoutes(r, jwt)

	return r
}
