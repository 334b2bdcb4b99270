package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/store"
)

type CheckoutPayload struct {
	StoreID         int64  `json:"store_id" validate:"required"`
	CustomerEmail   string `json:"customer_email" validate:"required,email"`
	ShippingAddress string `json:"shipping_address" validate:"required"`
	BillingAddress  string `json:"billing_address" validate:"required"`
	Notes           string `json:"notes,omitempty"`
}

type CheckoutResponse struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	Status        string `json:"status"`
	Total         string `json:"total"`
	CustomerEmail string `json:"customer_email"`
	Message       string `json:"message"`
}

// OrderHandler serves the checkout and order-lookup half of the contract.
type OrderHandler struct {
	store    store.Store
	validate *validator.Validate
}

func NewOrderHandler(st store.Store) *OrderHandler {
	return &OrderHandler{store: st, validate: validator.New()}
}

func (h *OrderHandler) RegisterRoutes(r chi.Router, jwt *auth.JWTManager) {
	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(jwt))
		r.Post("/orders/checkout", h.handleCheckout)
	})
	r.Get("/orders/{orderNumber}", h.handleGetOrderByNumber)
}

// handleCheckout creates an order from the authenticated user's cart.
// Checkout is never permitted for pure guests: no valid bearer token, no
// order. The user's cart is left intact; clearing it is the client's
// explicit follow-up.
func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload CheckoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.store.CreateOrder(r.Context(), userID, store.CheckoutParams{
		StoreID:         payload.StoreID,
		CustomerEmail:   payload.CustomerEmail,
		ShippingAddress: payload.ShippingAddress,
		BillingAddress:  payload.BillingAddress,
		Notes:           payload.Notes,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("handler: checkout failed")
		respondWithError(w, mapErrorToStatusCode(err), "checkout failed")
		return
	}

	respondWithJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID:       order.ID.String(),
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		Total:         order.Total.String(),
		CustomerEmail: order.CustomerEmail,
		Message:       "order placed",
	})
}

// handleGetOrderByNumber is the guest-accessible lookup. The email pairing
// is a weak authorization check; a wrong email and a missing order produce
// the same 404 so the endpoint cannot be used to enumerate orders.
func (h *OrderHandler) handleGetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	email := r.URL.Query().Get("email")
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "email is required")
		return
	}

	order, err := h.store.OrderByNumber(r.Context(), orderNumber, email)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "order not found")
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}
