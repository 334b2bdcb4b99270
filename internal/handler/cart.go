package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/store"
)

type AddItemPayload struct {
	StoreID   int64  `json:"store_id"`
	ProductID int64  `json:"product_id" validate:"required"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
	SessionID string `json:"session_id,omitempty"`
}

type UpdateItemPayload struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// CartHandler serves the cart half of the REST contract. Ownership
// resolution is uniform across routes: an authenticated request acts on the
// user's cart, a guest request on the session's cart, and a request carrying
// both triggers the guest-to-user merge before answering.
type CartHandler struct {
	store    store.Store
	validate *validator.Validate
}

func NewCartHandler(st store.Store) *CartHandler {
	return &CartHandler{store: st, validate: validator.New()}
}

func (h *CartHandler) RegisterRoutes(r chi.Router, jwt *auth.JWTManager) {
	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(jwt))
		r.Get("/cart", h.handleGetCart)
		r.Post("/cart/items", h.handleAddItem)
		r.Put("/cart/items/{id}", h.handleUpdateItem)
		r.Delete("/cart/items/{id}", h.handleRemoveItem)
		r.Delete("/cart/clear", h.handleClearCart)
		r.Get("/cart/count", h.handleGetCount)
	})
}

// handleGetCart returns the owner's cart. When the request carries both a
// valid bearer token and a session id, the guest cart is merged into the
// user's cart first. That pairing is what the client sends during the
// post-login migration window.
func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.storeIDFromQuery(w, r)
	if !ok {
		return
	}

	userID := userIDFromContext(r.Context())
	sessionID := r.URL.Query().Get("session_id")

	owner := userID
	if owner == "" {
		owner = sessionID
	}
	if owner == "" {
		respondWithError(w, http.StatusBadRequest, "session_id is required for guest requests")
		return
	}

	if userID != "" && sessionID != "" {
		if err := h.store.Merge(r.Context(), sessionID, userID); err != nil {
			// The merge is best-effort from the handler's point of
			// view; the cart read below still answers.
			log.Error().Err(err).Msg("handler: guest cart merge failed")
		}
	}

	c, err := h.store.GetCart(r.Context(), storeID, owner)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to get cart")
		respondWithError(w, mapErrorToStatusCode(err), "failed to get cart")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var payload AddItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.StoreID == 0 {
		respondWithError(w, http.StatusBadRequest, "store_id is required")
		return
	}

	owner, ok := h.ownerFromRequest(w, r, payload.SessionID)
	if !ok {
		return
	}

	c, err := h.store.AddItem(r.Context(), payload.StoreID, owner, payload.ProductID, payload.VariantID, payload.Quantity)
	if err != nil {
		log.Error().Err(err).Int64("product_id", payload.ProductID).Msg("handler: failed to add cart item")
		respondWithError(w, mapErrorToStatusCode(err), "failed to add item")
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.itemIDFromURL(w, r)
	if !ok {
		return
	}

	var payload UpdateItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	owner, ok := h.ownerFromRequest(w, r, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	c, err := h.store.UpdateItem(r.Context(), owner, itemID, payload.Quantity)
	if err != nil {
		log.Error().Err(err).Stringer("item_id", itemID).Msg("handler: failed to update cart item")
		respondWithError(w, mapErrorToStatusCode(err), "failed to update item")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.itemIDFromURL(w, r)
	if !ok {
		return
	}

	owner, ok := h.ownerFromRequest(w, r, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	c, err := h.store.RemoveItem(r.Context(), owner, itemID)
	if err != nil {
		log.Error().Err(err).Stringer("item_id", itemID).Msg("handler: failed to remove cart item")
		respondWithError(w, mapErrorToStatusCode(err), "failed to remove item")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.storeIDFromQuery(w, r)
	if !ok {
		return
	}

	owner, ok := h.ownerFromRequest(w, r, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	if err := h.store.ClearCart(r.Context(), storeID, owner); err != nil {
		log.Error().Err(err).Msg("handler: failed to clear cart")
		respondWithError(w, mapErrorToStatusCode(err), "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleGetCount(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerFromRequest(w, r, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	count, err := h.store.Count(r.Context(), owner)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to count cart items")
		respondWithError(w, mapErrorToStatusCode(err), "failed to count items")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *CartHandler) storeIDFromQuery(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("store_id")
	if raw == "" {
		respondWithError(w, http.StatusBadRequest, "store_id is required")
		return 0, false
	}
	storeID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || storeID <= 0 {
		respondWithError(w, http.StatusBadRequest, "store_id must be a positive integer")
		return 0, false
	}
	return storeID, true
}

func (h *CartHandler) itemIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	itemID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid item id")
		return uuid.Nil, false
	}
	return itemID, true
}

func (h *CartHandler) ownerFromRequest(w http.ResponseWriter, r *http.Request, sessionID string) (string, bool) {
	if userID := userIDFromContext(r.Context()); userID != "" {
		return userID, true
	}
	if sessionID != "" {
		return sessionID, true
	}
	respondWithError(w, http.StatusBadRequest, "session_id is required for guest requests")
	return "", false
}
